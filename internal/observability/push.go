package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job label for this binary.
const PushJob = "quake_etl"

// Push sends the registry to a Pushgateway, grouped by run date so that
// backfill runs do not overwrite each other's series.
func (m *Metrics) Push(ctx context.Context, url, runDate string) error {
	if m.Registry == nil {
		return fmt.Errorf("push metrics: registry not initialized")
	}
	p := push.New(url, PushJob).Gatherer(m.Registry)
	if runDate != "" {
		p = p.Grouping("run_date", runDate)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
