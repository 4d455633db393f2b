package dispatch

import (
	"context"
	"time"

	"gitlab.com/pixelgrid.net/internal/domain"
	"gitlab.com/pixelgrid.net/internal/tcp"
)

// IDispatchService is the master's dispatch core: it routes every
// image request to exactly one worker, keeps at most one job in flight
// per worker, and returns every response to the submitter that
// originated its packet id.
type IDispatchService interface {
	// Run consumes transport events until the context ends.
	Run(ctx context.Context, events <-chan tcp.Event)
	// Snapshot returns a consistent view of the dispatch state.
	Snapshot() Snapshot
}

// WorkerView is a registry entry plus its busy flag, in registration
// order.
type WorkerView struct {
	Number int                  `json:"number"`
	Busy   bool                 `json:"busy"`
	Worker *domain.WorkerRecord `json:"worker"`
}

// Snapshot is a point-in-time copy of the dispatch state, served by the
// status API and the progress logger.
type Snapshot struct {
	Workers       []WorkerView `json:"workers"`
	QueuedPackets []string     `json:"queued_packets"`
	PendingCount  int          `json:"pending_count"`
	Received      int          `json:"received"`
	Completed     int          `json:"completed"`
	Rejected      int          `json:"rejected"`
	FirstJobAt    time.Time    `json:"first_job_at"`
	LastEventAt   time.Time    `json:"last_event_at"`
}
