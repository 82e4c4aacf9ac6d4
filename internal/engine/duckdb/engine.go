// Package duckdb runs the ingestion copy inside an in-memory DuckDB session
// with the httpfs extension reading the source and writing the data lake.
package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/engine"
)

// Engine opens one in-memory DuckDB database per session.
type Engine struct {
	logger *slog.Logger
}

var _ engine.Engine = (*Engine)(nil)

// New creates a DuckDB engine.
func New(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// execer is the subset of *sql.Conn a session executes statements on.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Open creates the database, pins a single connection so every SET applies
// to the statements that follow, and runs the session setup.
func (e *Engine) Open(ctx context.Context, cfg engine.SessionConfig) (engine.Session, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open duckdb connection: %w", err)
	}

	s := &session{
		conn:    conn,
		closers: []func() error{conn.Close, db.Close},
		creds:   cfg.Credentials,
		logger:  e.logger,
	}
	for _, st := range setupStatements(cfg) {
		if err := s.exec(ctx, st); err != nil {
			return nil, errors.Join(err, s.Close())
		}
	}
	return s, nil
}

type session struct {
	conn    execer
	closers []func() error
	creds   domain.Credentials
	logger  *slog.Logger
	closed  bool
}

func (s *session) exec(ctx context.Context, st statement) error {
	s.logger.Debug("duckdb exec", "statement", st.redacted)
	if _, err := s.conn.ExecContext(ctx, st.sql); err != nil {
		return s.creds.RedactError(fmt.Errorf("duckdb %s: %w", st.name, err))
	}
	return nil
}

// Copy implements engine.Session.
func (s *session) Copy(ctx context.Context, src domain.SourceRequest, dst domain.Partition) (engine.CopyResult, error) {
	u, err := src.URL()
	if err != nil {
		return engine.CopyResult{}, err
	}
	st, err := copyStatement(u, dst)
	if err != nil {
		return engine.CopyResult{}, err
	}

	s.logger.Debug("duckdb exec", "statement", st.redacted)
	res, err := s.conn.ExecContext(ctx, st.sql)
	if err != nil {
		return engine.CopyResult{}, s.creds.RedactError(fmt.Errorf("duckdb %s: %w", st.name, err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		rows = 0
	}
	return engine.CopyResult{Rows: rows}, nil
}

// Close releases the connection and the database. It is safe to call twice.
func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close duckdb session: %w", err)
	}
	return nil
}
