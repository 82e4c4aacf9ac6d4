package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/quake-data-etl/internal/adapter/http"
	"github.com/couchcryptid/quake-data-etl/internal/backfill"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// errSkipNeedsDatabase rejects --skip-succeeded without a persistent ledger.
// The in-memory ledger starts empty, so nothing would ever be skipped.
var errSkipNeedsDatabase = errors.New("--skip-succeeded requires DATABASE_URL")

func newBackfillCmd(a *app) *cobra.Command {
	var (
		from, to      string
		skipSucceeded bool
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Ingest a range of run dates sequentially",
		Long: `backfill runs one ingestion per run date from --from through --to,
oldest first, waiting BACKFILL_RATE between runs. It stops at the first
failed date. When METRICS_ADDR is set, progress is served on /status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if skipSucceeded && a.cfg.DatabaseURL == "" {
				return errSkipNeedsDatabase
			}
			fromDate, err := domain.ParseDate(from)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			toDate := domain.TruncateDate(domain.Now()).AddDate(0, 0, -1)
			if to != "" {
				if toDate, err = domain.ParseDate(to); err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
			}

			b, err := backfill.New(a.task(), backfill.Options{
				From:          fromDate,
				To:            toDate,
				StartDate:     a.cfg.StartDate,
				Schedule:      a.cfg.Schedule,
				Every:         a.cfg.BackfillRate,
				SkipSucceeded: skipSucceeded,
				Ledger:        a.ledger,
			}, a.logger)
			if err != nil {
				return err
			}

			if a.cfg.MetricsAddr != "" {
				srv := httpadapter.NewServer(a.cfg.MetricsAddr, b, a.metrics.Registry, a.logger)
				go func() {
					if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.Error("status server error", "error", err)
					}
				}()
				defer func() {
					ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), a.cfg.ShutdownTimeout)
					defer cancel()
					if err := srv.Shutdown(ctx); err != nil {
						a.logger.Warn("status server shutdown", "error", err)
					}
				}()
			}

			err = b.Run(cmd.Context())
			a.pushMetrics(cmd.Context(), "")
			return err
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first run date, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last run date, inclusive (default: yesterday)")
	cmd.Flags().BoolVar(&skipSucceeded, "skip-succeeded", false, "skip dates whose latest recorded run succeeded")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
