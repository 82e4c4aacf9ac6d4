package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// Each attempt is its own row. The orchestrator reuses one run ID across
// retries, so run_id is not unique.
const createTable = `CREATE TABLE IF NOT EXISTS ingest_runs (
	id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	run_id        TEXT NOT NULL,
	run_date      DATE NOT NULL,
	window_start  DATE NOT NULL,
	window_end    DATE NOT NULL,
	partition_uri TEXT NOT NULL,
	status        TEXT NOT NULL,
	rows_written  BIGINT NOT NULL DEFAULT 0,
	bytes_written BIGINT NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL
)`

const createIndex = `CREATE INDEX IF NOT EXISTS ingest_runs_run_date_idx ON ingest_runs (run_date, finished_at DESC, id DESC)`

const insertRun = `INSERT INTO ingest_runs
	(run_id, run_date, window_start, window_end, partition_uri, status, rows_written, bytes_written, error, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const latestStatus = `SELECT status FROM ingest_runs WHERE run_date = $1 ORDER BY finished_at DESC, id DESC LIMIT 1`

// DB is the subset of *pgxpool.Pool the ledger needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres persists run records in the ingest_runs table. The schema is
// created on first use, so an unreachable database surfaces as a Record or
// Succeeded error rather than at startup.
type Postgres struct {
	db DB

	mu     sync.Mutex
	schema bool
}

// NewPostgres wraps a connection pool.
func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the ingest_runs table and index if they are missing.
// After the first success it does nothing; a failure is retried on the next call.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.schema {
		return nil
	}
	for _, stmt := range []string{createTable, createIndex} {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure ledger schema: %w", err)
		}
	}
	p.schema = true
	return nil
}

// Record implements Ledger.
func (p *Postgres) Record(ctx context.Context, rec domain.RunRecord) error {
	if err := p.EnsureSchema(ctx); err != nil {
		return err
	}
	_, err := p.db.Exec(ctx, insertRun,
		rec.RunID,
		domain.TruncateDate(rec.RunDate),
		rec.Window.Start,
		rec.Window.End,
		rec.PartitionURI,
		string(rec.Status),
		rec.Rows,
		rec.Bytes,
		rec.Error,
		rec.StartedAt,
		rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

// Succeeded implements Ledger.
func (p *Postgres) Succeeded(ctx context.Context, runDate time.Time) (bool, error) {
	if err := p.EnsureSchema(ctx); err != nil {
		return false, err
	}
	var status string
	err := p.db.QueryRow(ctx, latestStatus, domain.TruncateDate(runDate)).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query run status: %w", err)
	}
	return domain.RunStatus(status) == domain.RunSucceeded, nil
}
