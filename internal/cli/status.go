package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewStatusCmd создаёт команду состояния scheduler.
func NewStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show scheduler state: triggers, next run, last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := clientFn().GetStatus()
			if err != nil {
				return err
			}

			rows := [][]string{
				{"triggers", strings.Join(st.Triggers, ", ")},
				{"timezone", st.Timezone},
				{"window", (time.Duration(st.WindowSeconds) * time.Second).String()},
				{"cooldown", (time.Duration(st.CooldownSeconds) * time.Second).String()},
				{"in_window", strconv.FormatBool(st.InWindow)},
				{"next_trigger", st.NextTrigger + " at " + st.NextTriggerAt},
				{"next_in", (time.Duration(st.NextInSeconds) * time.Second).String()},
			}
			if lr := st.LastRun; lr != nil {
				rows = append(rows,
					[]string{"last_run", lr.ID},
					[]string{"last_status", lr.Status + " (exit " + strconv.Itoa(lr.ExitCode) + ")"},
					[]string{"last_finished", lr.FinishedAt},
				)
			} else {
				rows = append(rows, []string{"last_run", "-"})
			}

			outputFn().Print([]string{"FIELD", "VALUE"}, rows, st)
			return nil
		},
	}
}
