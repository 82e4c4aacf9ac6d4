// Package backfill replays missed run dates one at a time, the way the
// orchestrator's catch-up does, for operators recovering a gap by hand.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/ingest"
	"github.com/couchcryptid/quake-data-etl/internal/ledger"
)

// ErrBeforeStart is returned for a range that begins before the first
// schedulable run date.
var ErrBeforeStart = errors.New("backfill range starts before start date")

// Runner executes one ingestion.
type Runner interface {
	Run(ctx context.Context, trig ingest.Trigger) (ingest.Result, error)
}

// Options bound and pace a backfill.
type Options struct {
	From      time.Time // first run date, inclusive
	To        time.Time // last run date, inclusive
	StartDate time.Time // earliest run date the job was ever scheduled for
	Schedule  domain.DailySchedule
	// Every is the minimum spacing between run starts. Zero disables pacing.
	Every time.Duration
	// SkipSucceeded consults Ledger and skips run dates whose latest run succeeded.
	SkipSucceeded bool
	Ledger        ledger.Ledger
}

// Status is a snapshot of progress.
type Status struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Skipped   int    `json:"skipped"`
	Current   string `json:"current,omitempty"`
	Failed    string `json:"failed,omitempty"`
	Error     string `json:"error,omitempty"`
	Done      bool   `json:"done"`
}

// Backfill runs a date range sequentially and stops at the first failure.
type Backfill struct {
	runner  Runner
	opts    Options
	dates   []time.Time
	limiter *rate.Limiter
	logger  *slog.Logger

	mu     sync.Mutex
	status Status
}

// New validates opts and plans the run dates.
func New(runner Runner, opts Options, logger *slog.Logger) (*Backfill, error) {
	from, to := domain.TruncateDate(opts.From), domain.TruncateDate(opts.To)
	if to.Before(from) {
		return nil, fmt.Errorf("backfill range %s..%s is empty", from.Format(domain.DateLayout), to.Format(domain.DateLayout))
	}
	if !opts.StartDate.IsZero() && from.Before(domain.TruncateDate(opts.StartDate)) {
		return nil, fmt.Errorf("%w: %s < %s", ErrBeforeStart,
			from.Format(domain.DateLayout), opts.StartDate.Format(domain.DateLayout))
	}
	if opts.SkipSucceeded && opts.Ledger == nil {
		return nil, errors.New("skip succeeded requires a ledger")
	}

	b := &Backfill{
		runner: runner,
		opts:   opts,
		dates:  Dates(from, to),
		logger: logger,
	}
	if opts.Every > 0 {
		b.limiter = rate.NewLimiter(rate.Every(opts.Every), 1)
	}
	b.status = Status{
		From:  from.Format(domain.DateLayout),
		To:    to.Format(domain.DateLayout),
		Total: len(b.dates),
	}
	return b, nil
}

// Dates returns every UTC date from from through to, inclusive.
func Dates(from, to time.Time) []time.Time {
	var out []time.Time
	end := domain.TruncateDate(to)
	for d := domain.TruncateDate(from); !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Run executes every planned date in order.
func (b *Backfill) Run(ctx context.Context) error {
	b.logger.Info("backfill started", "from", b.status.From, "to", b.status.To, "dates", len(b.dates))

	for _, day := range b.dates {
		if err := ctx.Err(); err != nil {
			return err
		}
		date := day.Format(domain.DateLayout)

		if b.opts.SkipSucceeded {
			ok, err := b.opts.Ledger.Succeeded(ctx, day)
			if err != nil {
				return b.fail(date, fmt.Errorf("check ledger: %w", err))
			}
			if ok {
				b.logger.Info("run date already succeeded, skipping", "run_date", date)
				b.update(func(s *Status) { s.Skipped++ })
				continue
			}
		}

		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		b.update(func(s *Status) { s.Current = date })
		trig := ingest.Trigger{
			Interval: b.opts.Schedule.IntervalFor(day),
			RunDate:  day,
		}
		if _, err := b.runner.Run(ctx, trig); err != nil {
			return b.fail(date, err)
		}
		b.update(func(s *Status) {
			s.Completed++
			s.Current = ""
		})
	}

	b.update(func(s *Status) { s.Done = true })
	st := b.snapshot()
	b.logger.Info("backfill finished", "completed", st.Completed, "skipped", st.Skipped)
	return nil
}

func (b *Backfill) fail(date string, err error) error {
	b.update(func(s *Status) {
		s.Current = ""
		s.Failed = date
		s.Error = err.Error()
	})
	return fmt.Errorf("backfill %s: %w", date, err)
}

func (b *Backfill) update(fn func(*Status)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.status)
}

func (b *Backfill) snapshot() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// CheckReadiness reports an error once a run date has failed.
func (b *Backfill) CheckReadiness(_ context.Context) error {
	st := b.snapshot()
	if st.Failed != "" {
		return fmt.Errorf("backfill failed at %s", st.Failed)
	}
	return nil
}

// Status returns a snapshot of progress.
func (b *Backfill) Status() any {
	return b.snapshot()
}
