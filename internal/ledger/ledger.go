// Package ledger records the outcome of every ingestion run so operators and
// backfills can see which partitions were last written successfully.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// Ledger stores run records.
type Ledger interface {
	Record(ctx context.Context, rec domain.RunRecord) error
	// Succeeded reports whether the latest record for runDate is a success.
	Succeeded(ctx context.Context, runDate time.Time) (bool, error)
}

// Memory is an in-process Ledger. Records are lost when the process exits.
type Memory struct {
	mu      sync.Mutex
	records []domain.RunRecord
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{}
}

// Record implements Ledger.
func (m *Memory) Record(_ context.Context, rec domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Succeeded implements Ledger.
func (m *Memory) Succeeded(_ context.Context, runDate time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := domain.TruncateDate(runDate)
	for i := len(m.records) - 1; i >= 0; i-- {
		if domain.TruncateDate(m.records[i].RunDate).Equal(day) {
			return m.records[i].Status == domain.RunSucceeded, nil
		}
	}
	return false, nil
}

// Records returns a copy of everything recorded so far, oldest first.
func (m *Memory) Records() []domain.RunRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.RunRecord, len(m.records))
	copy(out, m.records)
	return out
}
