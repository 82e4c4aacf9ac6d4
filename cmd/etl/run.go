package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/ingest"
)

type runFlags struct {
	runDate       string
	intervalStart string
	intervalEnd   string
	runID         string
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest one data interval",
		Long: `run copies one data interval from the USGS feed into its partition.

With no flags it ingests the most recent interval that has fully elapsed
under SCHEDULE_AT. --run-date selects the interval scheduled for that date.
--interval-start and --interval-end (RFC 3339) pass the orchestrator's
interval explicitly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			trig, err := triggerFromFlags(f, a.cfg.Schedule, domain.Now())
			if err != nil {
				return err
			}

			res, err := a.task().Run(cmd.Context(), trig)
			runDate := res.Partition.Date()
			if res.Partition.RunDate.IsZero() {
				runDate = ""
			}
			a.pushMetrics(cmd.Context(), runDate)
			return err
		},
	}

	cmd.Flags().StringVar(&f.runDate, "run-date", "", "logical run date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.intervalStart, "interval-start", "", "data interval start (RFC 3339)")
	cmd.Flags().StringVar(&f.intervalEnd, "interval-end", "", "data interval end (RFC 3339)")
	cmd.Flags().StringVar(&f.runID, "run-id", "", "run identifier (default: random UUID)")
	cmd.MarkFlagsRequiredTogether("interval-start", "interval-end")
	return cmd
}

// triggerFromFlags turns command-line flags into a run trigger.
func triggerFromFlags(f runFlags, schedule domain.DailySchedule, now time.Time) (ingest.Trigger, error) {
	trig := ingest.Trigger{RunID: f.runID}

	if f.runDate != "" {
		d, err := domain.ParseDate(f.runDate)
		if err != nil {
			return ingest.Trigger{}, fmt.Errorf("invalid --run-date: %w", err)
		}
		trig.RunDate = d
		trig.Interval = schedule.IntervalFor(d)
	}

	switch {
	case f.intervalStart != "" && f.intervalEnd != "":
		start, err := time.Parse(time.RFC3339, f.intervalStart)
		if err != nil {
			return ingest.Trigger{}, fmt.Errorf("invalid --interval-start: %w", err)
		}
		end, err := time.Parse(time.RFC3339, f.intervalEnd)
		if err != nil {
			return ingest.Trigger{}, fmt.Errorf("invalid --interval-end: %w", err)
		}
		trig.Interval = domain.Interval{Start: start, End: end}
	case f.intervalStart != "" || f.intervalEnd != "":
		return ingest.Trigger{}, errors.New("--interval-start and --interval-end must be set together")
	case f.runDate == "":
		trig.Interval, trig.RunDate = schedule.Latest(now)
	}
	return trig, nil
}
