package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Chronos/internal/domain"
	"github.com/shaiso/Chronos/internal/scheduler"
)

// NewScheduleCmd создаёт группу команд для работы с расписанием.
// Расчёт выполняется локально, без обращения к API.
func NewScheduleCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Inspect trigger schedules",
	}

	cmd.AddCommand(newScheduleNextCmd(outputFn))
	return cmd
}

// NextRun — одно ближайшее срабатывание.
type NextRun struct {
	Trigger string    `json:"trigger"`
	At      time.Time `json:"at"`
	In      string    `json:"in"`
}

func newScheduleNextCmd(outputFn func() *Output) *cobra.Command {
	var (
		times    string
		cronExpr string
		tz       string
		count    int
		from     string
	)

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print upcoming trigger times",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				triggers []domain.TriggerTime
				err      error
			)
			if cronExpr != "" {
				triggers, err = scheduler.ParseCronTriggers(cronExpr)
			} else {
				triggers, err = domain.ParseTriggerTimes(times)
			}
			if err != nil {
				return err
			}
			if len(triggers) == 0 {
				return fmt.Errorf("no trigger times given")
			}

			loc := time.Local
			if tz != "" && tz != "Local" {
				if loc, err = time.LoadLocation(tz); err != nil {
					return fmt.Errorf("load timezone %q: %w", tz, err)
				}
			}

			now := time.Now().In(loc)
			if from != "" {
				if now, err = time.Parse(time.RFC3339, from); err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
				now = now.In(loc)
			}

			next := NextRuns(now, triggers, count)

			out := outputFn()
			rows := make([][]string, len(next))
			for i, n := range next {
				rows[i] = []string{strconv.Itoa(i + 1), n.Trigger, n.At.Format("2006-01-02 15:04 MST"), n.In}
			}
			out.Print([]string{"#", "TRIGGER", "AT", "IN"}, rows, next)
			out.Success("cron: " + scheduler.CronExpr(triggers))
			return nil
		},
	}

	cmd.Flags().StringVar(&times, "times", "08:00,22:00", "Trigger times as HH:MM list")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Daily cron expression (overrides --times)")
	cmd.Flags().StringVar(&tz, "tz", "Local", "IANA timezone")
	cmd.Flags().IntVar(&count, "count", 4, "Number of upcoming runs")
	cmd.Flags().StringVar(&from, "from", "", "Compute from this RFC3339 time instead of now")

	return cmd
}

// NextRuns возвращает count ближайших срабатываний после now.
func NextRuns(now time.Time, triggers []domain.TriggerTime, count int) []NextRun {
	if count <= 0 {
		count = 1
	}

	out := make([]NextRun, 0, count)
	cursor := now
	for range count {
		at, trigger := scheduler.NextTrigger(cursor, triggers)
		out = append(out, NextRun{
			Trigger: trigger.String(),
			At:      at,
			In:      at.Sub(now).Round(time.Minute).String(),
		})
		cursor = at
	}
	return out
}
