package status

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/pixelgrid.net/internal/core/services/dispatch"
	"gitlab.com/pixelgrid.net/internal/handlers"
)

// ApiHandler serves the master's read-only status endpoints.
type ApiHandler struct {
	DispatchService dispatch.IDispatchService
}

func NewHandler(dispatchService dispatch.IDispatchService) *ApiHandler {
	return &ApiHandler{
		DispatchService: dispatchService,
	}
}

func (api *ApiHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/workers", api.GetWorkers).Methods("GET")
	r.HandleFunc("/api/stats", api.GetStats).Methods("GET")
	r.HandleFunc("/api/queue", api.GetQueue).Methods("GET")
}

// GetWorkers returns the registry in registration order with busy
// flags and cached statistics.
func (api *ApiHandler) GetWorkers(w http.ResponseWriter, r *http.Request) {
	snap := api.DispatchService.Snapshot()
	handlers.ResponseWithJson(w, http.StatusOK, map[string]interface{}{"workers": snap.Workers})
}

// GetStats returns the dispatch counters and wall-clock span.
func (api *ApiHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	snap := api.DispatchService.Snapshot()

	var wallClock time.Duration
	if !snap.FirstJobAt.IsZero() {
		wallClock = snap.LastEventAt.Sub(snap.FirstJobAt)
	}

	handlers.ResponseWithJson(w, http.StatusOK, map[string]interface{}{
		"received":      snap.Received,
		"completed":     snap.Completed,
		"rejected":      snap.Rejected,
		"pending":       snap.PendingCount,
		"queue_depth":   len(snap.QueuedPackets),
		"first_job_at":  snap.FirstJobAt,
		"last_event_at": snap.LastEventAt,
		"wall_clock":    wallClock.String(),
	})
}

// GetQueue returns the packet ids currently waiting for a free worker.
func (api *ApiHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	snap := api.DispatchService.Snapshot()
	handlers.ResponseWithJson(w, http.StatusOK, map[string]interface{}{"queued_packets": snap.QueuedPackets})
}
