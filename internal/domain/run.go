package domain

import "time"

// RunStatus is the terminal outcome of one invocation.
type RunStatus string

const (
	RunSucceeded RunStatus = "success"
	RunFailed    RunStatus = "failed"
)

// RunRecord is the ledger entry written for every invocation.
type RunRecord struct {
	RunID        string
	RunDate      time.Time
	Window       RunWindow
	PartitionURI string
	Status       RunStatus
	Rows         int64
	Bytes        int64
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// PartitionWritten is published downstream after a partition is replaced.
type PartitionWritten struct {
	RunID       string    `json:"run_id"`
	Layer       string    `json:"layer"`
	Source      string    `json:"source"`
	RunDate     string    `json:"run_date"`
	WindowStart string    `json:"window_start"`
	WindowEnd   string    `json:"window_end"`
	URI         string    `json:"uri"`
	Format      string    `json:"format"`
	Compression string    `json:"compression"`
	Rows        int64     `json:"rows"`
	Bytes       int64     `json:"bytes"`
	WrittenAt   time.Time `json:"written_at"`
}
