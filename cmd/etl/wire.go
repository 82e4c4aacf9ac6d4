package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/objectstore"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/objectstore/miniostore"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/objectstore/s3store"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/usgs"
	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/engine"
	"github.com/couchcryptid/quake-data-etl/internal/engine/duckdb"
	"github.com/couchcryptid/quake-data-etl/internal/engine/native"
	"github.com/couchcryptid/quake-data-etl/internal/ingest"
	"github.com/couchcryptid/quake-data-etl/internal/ledger"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/secrets"
)

// app holds the process-wide collaborators shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	pool    *pgxpool.Pool
	ledger  ledger.Ledger

	closers []func() error
}

func (a *app) init(ctx context.Context, cfg *config.Config) error {
	a.cfg = cfg
	a.logger = observability.NewLogger(cfg)
	slog.SetDefault(a.logger)
	a.metrics = observability.NewMetrics()

	if cfg.DatabaseURL == "" {
		a.ledger = ledger.NewMemory()
		return nil
	}

	// pgxpool connects on first use, so an unreachable database only affects
	// the operations that need it.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("configure database: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, func() error { pool.Close(); return nil })
	a.ledger = ledger.NewPostgres(pool)
	return nil
}

// close releases everything init and task opened, newest first.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *app) secretStore() secrets.Store {
	switch a.cfg.SecretsBackend {
	case "file":
		return secrets.FileStore{Dir: a.cfg.SecretsDir}
	case "postgres":
		return secrets.NewPostgresStore(a.pool)
	default:
		return secrets.EnvStore{Prefix: a.cfg.SecretsEnvPrefix}
	}
}

func (a *app) storeFactory() objectstore.Factory {
	if a.cfg.StorageDriver == "s3" {
		return s3store.New
	}
	return miniostore.New
}

func (a *app) engine() engine.Engine {
	if a.cfg.Engine == "native" {
		client := usgs.NewClient(a.cfg.SourceTimeout, a.metrics, a.logger)
		return native.New(client, a.storeFactory(), a.logger)
	}
	return duckdb.New(a.logger)
}

func (a *app) task() *ingest.Task {
	opts := []ingest.Option{ingest.WithLedger(a.ledger)}
	if len(a.cfg.KafkaBrokers) > 0 {
		n := kafka.NewNotifier(a.cfg.KafkaBrokers, a.cfg.KafkaTopic, a.logger)
		a.closers = append(a.closers, n.Close)
		opts = append(opts, ingest.WithNotifier(n))
	}
	return ingest.NewTask(a.engine(), a.secretStore(), ingest.SettingsFromConfig(a.cfg), a.logger, a.metrics, opts...)
}

// pushMetrics sends run metrics to the Pushgateway when one is configured.
// A push failure is logged and does not fail the command.
func (a *app) pushMetrics(ctx context.Context, runDate string) {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	if err := a.metrics.Push(context.WithoutCancel(ctx), a.cfg.PushgatewayURL, runDate); err != nil {
		a.logger.Warn("push metrics failed", "error", err)
	}
}
