package secondary

import (
	"context"

	"gitlab.com/pixelgrid.net/internal/domain"
	"gitlab.com/pixelgrid.net/internal/protocol"
)

// StatsStore mirrors worker statistics and dispatch summaries to an
// external store for dashboards. It is write-only from the dispatch
// path and never consulted for scheduling decisions.
type StatsStore interface {
	SaveWorkerStats(ctx context.Context, workerKey string, stats *protocol.SlaveStatistics) error
	SaveSummary(ctx context.Context, summary *domain.DispatchSummary) error
}
