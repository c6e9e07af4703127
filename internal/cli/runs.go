package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewRunsCmd создаёт группу команд истории запусков.
func NewRunsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect scraper run history",
	}

	cmd.AddCommand(
		newRunsListCmd(clientFn, outputFn),
		newRunsShowCmd(clientFn, outputFn),
	)

	return cmd
}

var runHeaders = []string{"ID", "TRIGGER", "MODE", "STATUS", "EXIT", "ATTEMPTS", "DURATION", "CREATED"}

func runRow(r RunResponse) []string {
	return []string{
		r.ID,
		r.Trigger,
		r.Mode,
		r.Status,
		strconv.Itoa(r.ExitCode),
		strconv.Itoa(r.Attempts),
		(time.Duration(r.DurationMs) * time.Millisecond).String(),
		r.CreatedAt,
	}
}

func newRunsListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListRunsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Status = strings.ToUpper(opts.Status)

			runs, err := clientFn().ListRuns(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = runRow(r)
			}

			outputFn().Print(runHeaders, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().StringVar(&opts.Trigger, "trigger", "", "Filter by trigger (e.g. 08:00, manual)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Skip this many results")

	return cmd
}

func newRunsShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show run details and output tail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := clientFn().GetRun(args[0])
			if err != nil {
				return err
			}

			out := outputFn()
			out.Print(runHeaders, [][]string{runRow(*run)}, run)

			if out.JSONMode() {
				return nil
			}
			if run.Error != "" {
				out.Line("\nError: %s", run.Error)
			}
			if run.OutputTail != "" {
				out.Line("\nOutput (tail):\n%s", strings.TrimRight(run.OutputTail, "\n"))
			}
			return nil
		},
	}
}
