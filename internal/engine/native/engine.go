// Package native runs the ingestion copy in-process: HTTP fetch, CSV type
// inference, Parquet encoding in memory and a single object upload.
package native

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/objectstore"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/engine"
	"github.com/couchcryptid/quake-data-etl/internal/tabular"
)

// ContentType is sent with every Parquet upload.
const ContentType = "application/vnd.apache.parquet"

// Fetcher retrieves the raw source export for a request.
type Fetcher interface {
	Fetch(ctx context.Context, req domain.SourceRequest) ([]byte, error)
}

// Engine builds sessions from a fetcher and an object store factory.
type Engine struct {
	fetcher Fetcher
	stores  objectstore.Factory
	logger  *slog.Logger
}

var _ engine.Engine = (*Engine)(nil)

// New creates a native engine.
func New(fetcher Fetcher, stores objectstore.Factory, logger *slog.Logger) *Engine {
	return &Engine{fetcher: fetcher, stores: stores, logger: logger}
}

// Open implements engine.Engine. No connection is made until Copy.
func (e *Engine) Open(_ context.Context, cfg engine.SessionConfig) (engine.Session, error) {
	return &session{engine: e, cfg: cfg}, nil
}

type session struct {
	engine *Engine
	cfg    engine.SessionConfig
}

// Copy implements engine.Session. The store is only contacted once the whole
// file is encoded, so a failed fetch or parse leaves the existing object as is.
func (s *session) Copy(ctx context.Context, src domain.SourceRequest, dst domain.Partition) (engine.CopyResult, error) {
	if err := dst.Validate(); err != nil {
		return engine.CopyResult{}, err
	}
	if dst.Format != "parquet" {
		return engine.CopyResult{}, fmt.Errorf("unsupported output format %q", dst.Format)
	}

	body, err := s.engine.fetcher.Fetch(ctx, src)
	if err != nil {
		return engine.CopyResult{}, fmt.Errorf("fetch source: %w", err)
	}

	tbl, err := tabular.ParseCSV(body)
	if err != nil {
		return engine.CopyResult{}, fmt.Errorf("parse source: %w", err)
	}

	var buf bytes.Buffer
	if err := tabular.WriteParquet(&buf, tbl, dst.Compression); err != nil {
		return engine.CopyResult{}, fmt.Errorf("encode parquet: %w", err)
	}
	s.engine.logger.Debug("parquet encoded",
		"rows", tbl.NumRows(),
		"columns", len(tbl.Columns),
		"bytes", buf.Len(),
	)

	store, err := s.engine.stores(ctx, objectstore.Config{
		Endpoint:    s.cfg.Endpoint,
		Region:      s.cfg.Region,
		URLStyle:    s.cfg.URLStyle,
		UseSSL:      s.cfg.UseSSL,
		Bucket:      dst.Bucket,
		Credentials: s.cfg.Credentials,
	})
	if err != nil {
		return engine.CopyResult{}, s.cfg.Credentials.RedactError(fmt.Errorf("open object store: %w", err))
	}

	size := int64(buf.Len())
	if _, err := store.Put(ctx, dst.Key(), bytes.NewReader(buf.Bytes()), size, ContentType); err != nil {
		return engine.CopyResult{}, s.cfg.Credentials.RedactError(fmt.Errorf("upload partition: %w", err))
	}
	return engine.CopyResult{Rows: tbl.NumRows(), Bytes: size}, nil
}

// Close implements engine.Session. The native session holds no resources.
func (s *session) Close() error { return nil }
