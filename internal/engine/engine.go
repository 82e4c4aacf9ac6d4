// Package engine defines the query-engine session an ingestion run executes
// its single copy in.
package engine

import (
	"context"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// SessionConfig is applied when a session opens.
type SessionConfig struct {
	Credentials domain.Credentials
	Endpoint    string // object store host:port
	Region      string
	URLStyle    string // "path" or "vhost"
	UseSSL      bool
	TimeZone    string
}

// CopyResult reports what one copy wrote. Bytes is zero when the engine
// cannot observe the encoded size.
type CopyResult struct {
	Rows  int64
	Bytes int64
}

// Session is scoped to one run and must be closed by its opener.
type Session interface {
	// Copy fetches the source window and replaces the partition object.
	Copy(ctx context.Context, src domain.SourceRequest, dst domain.Partition) (CopyResult, error)
	Close() error
}

// Engine opens sessions.
type Engine interface {
	Open(ctx context.Context, cfg SessionConfig) (Session, error)
}
