// Package ingest runs one scheduled ingestion: compute the run window, open a
// query-engine session with freshly resolved credentials, copy the source
// window into its partition and report the outcome.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/engine"
	"github.com/couchcryptid/quake-data-etl/internal/ledger"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/secrets"
)

// Notifier is told about every partition a run replaces.
type Notifier interface {
	PartitionWritten(ctx context.Context, ev domain.PartitionWritten) error
}

// Settings are the per-deployment constants of a run.
type Settings struct {
	SourceURL    string
	SourceFormat string

	// Partition is the output template; its RunDate is set per run.
	Partition domain.Partition

	Endpoint string
	Region   string
	URLStyle string
	UseSSL   bool

	AccessKeyName string
	SecretKeyName string
}

// SettingsFromConfig extracts run settings from the process configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		SourceURL:     cfg.SourceURL,
		SourceFormat:  cfg.SourceFormat,
		Partition:     cfg.Partition(cfg.StartDate),
		Endpoint:      cfg.StorageEndpoint,
		Region:        cfg.StorageRegion,
		URLStyle:      cfg.StorageURLStyle,
		UseSSL:        cfg.StorageUseSSL,
		AccessKeyName: cfg.AccessKeyName,
		SecretKeyName: cfg.SecretKeyName,
	}
}

// Trigger is what the orchestrator hands one invocation.
type Trigger struct {
	Interval domain.Interval
	// RunDate is the logical date naming the partition. Zero means the UTC
	// date of Interval.Start.
	RunDate time.Time
	// RunID identifies the invocation in logs, the ledger and events. Zero
	// means a new random UUID.
	RunID string
}

// Result describes a finished run.
type Result struct {
	RunID     string
	Window    domain.RunWindow
	Partition domain.Partition
	Rows      int64
	Bytes     int64
}

// Task executes ingestion runs. It holds no per-run state, so one Task can
// serve a whole backfill.
type Task struct {
	engine   engine.Engine
	secrets  secrets.Store
	notifier Notifier
	ledger   ledger.Ledger
	logger   *slog.Logger
	metrics  *observability.Metrics
	settings Settings
}

// Option configures optional Task collaborators.
type Option func(*Task)

// WithNotifier publishes a PartitionWritten event after each successful copy.
func WithNotifier(n Notifier) Option {
	return func(t *Task) { t.notifier = n }
}

// WithLedger records every run outcome.
func WithLedger(l ledger.Ledger) Option {
	return func(t *Task) { t.ledger = l }
}

// NewTask creates a Task.
func NewTask(eng engine.Engine, store secrets.Store, settings Settings, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Task {
	t := &Task{
		engine:   eng,
		secrets:  store,
		logger:   logger,
		metrics:  metrics,
		settings: settings,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run executes one ingestion. The returned error never contains credential
// values. On failure only the start line is logged, nothing is published, and
// reporting the error is left to the caller.
func (t *Task) Run(ctx context.Context, trig Trigger) (Result, error) {
	started := domain.Now()

	window, err := domain.ComputeWindow(trig.Interval)
	if err != nil {
		t.metrics.RunsTotal.WithLabelValues("failure").Inc()
		return Result{}, fmt.Errorf("compute window: %w", err)
	}

	runDate := trig.RunDate
	if runDate.IsZero() {
		runDate = trig.Interval.Start
	}
	part := t.settings.Partition
	part.RunDate = domain.TruncateDate(runDate)

	res := Result{
		RunID:     trig.RunID,
		Window:    window,
		Partition: part,
	}
	if res.RunID == "" {
		res.RunID = uuid.NewString()
	}

	logger := t.logger.With("run_id", res.RunID, "run_date", part.Date())
	logger.Info("start load", "start_date", window.Start, "end_date", window.End)

	creds, err := t.execute(ctx, logger, &res)

	finished := domain.Now()
	t.metrics.RunDuration.Observe(finished.Sub(started).Seconds())
	rec := domain.RunRecord{
		RunID:        res.RunID,
		RunDate:      part.RunDate,
		Window:       window,
		PartitionURI: part.URI(),
		Rows:         res.Rows,
		Bytes:        res.Bytes,
		StartedAt:    started,
		FinishedAt:   finished,
	}

	if err != nil {
		err = creds.RedactError(err)
		t.metrics.RunsTotal.WithLabelValues("failure").Inc()
		rec.Status = domain.RunFailed
		rec.Error = err.Error()
		t.record(ctx, logger, rec)
		return res, err
	}

	t.metrics.RunsTotal.WithLabelValues("success").Inc()
	t.metrics.RowsWritten.Add(float64(res.Rows))
	t.metrics.BytesWritten.Add(float64(res.Bytes))
	t.metrics.LastSuccessTimestamp.Set(float64(finished.Unix()))
	rec.Status = domain.RunSucceeded
	t.record(ctx, logger, rec)

	logger.Info("ingest finished",
		"start_date", window.Start,
		"uri", part.URI(),
		"rows", res.Rows,
		"bytes", res.Bytes,
	)
	return res, nil
}

// execute resolves credentials, runs the copy in a scoped session and
// notifies downstream. The credentials are returned so the caller can
// redact whatever error comes back.
func (t *Task) execute(ctx context.Context, logger *slog.Logger, res *Result) (domain.Credentials, error) {
	creds, err := secrets.LoadCredentials(ctx, t.secrets, t.settings.AccessKeyName, t.settings.SecretKeyName)
	if err != nil {
		return creds, fmt.Errorf("resolve credentials: %w", err)
	}

	cp, err := t.copy(ctx, creds, res.Window, res.Partition)
	if err != nil {
		return creds, err
	}
	res.Rows, res.Bytes = cp.Rows, cp.Bytes
	logger.Debug("copy complete", "rows", cp.Rows, "bytes", cp.Bytes)

	if t.notifier != nil {
		ev := domain.PartitionWritten{
			RunID:       res.RunID,
			Layer:       res.Partition.Layer,
			Source:      res.Partition.Source,
			RunDate:     res.Partition.Date(),
			WindowStart: res.Window.Start,
			WindowEnd:   res.Window.End,
			URI:         res.Partition.URI(),
			Format:      res.Partition.Format,
			Compression: res.Partition.Compression,
			Rows:        cp.Rows,
			Bytes:       cp.Bytes,
			WrittenAt:   domain.Now(),
		}
		if err := t.notifier.PartitionWritten(ctx, ev); err != nil {
			return creds, fmt.Errorf("notify downstream: %w", err)
		}
	}
	return creds, nil
}

// copy opens one session, runs the copy and always closes the session.
func (t *Task) copy(ctx context.Context, creds domain.Credentials, window domain.RunWindow, part domain.Partition) (_ engine.CopyResult, err error) {
	sess, err := t.engine.Open(ctx, engine.SessionConfig{
		Credentials: creds,
		Endpoint:    t.settings.Endpoint,
		Region:      t.settings.Region,
		URLStyle:    t.settings.URLStyle,
		UseSSL:      t.settings.UseSSL,
		TimeZone:    "UTC",
	})
	if err != nil {
		return engine.CopyResult{}, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	src := domain.SourceRequest{
		BaseURL: t.settings.SourceURL,
		Format:  t.settings.SourceFormat,
		Window:  window,
	}
	cp, err := sess.Copy(ctx, src, part)
	if err != nil {
		return engine.CopyResult{}, fmt.Errorf("copy %s: %w", window, err)
	}
	return cp, nil
}

// record writes rec to the ledger. A ledger outage never changes the run outcome.
func (t *Task) record(ctx context.Context, logger *slog.Logger, rec domain.RunRecord) {
	if t.ledger == nil {
		return
	}
	if err := t.ledger.Record(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn("record run failed", "error", err)
	}
}
