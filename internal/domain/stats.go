package domain

import "time"

// DispatchSummary is the end-to-end balance report the master emits
// when every received job has been answered.
type DispatchSummary struct {
	Received       int                `json:"received"`
	Completed      int                `json:"completed"`
	Rejected       int                `json:"rejected"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
	WallClock      time.Duration      `json:"wall_clock"`
	PerWorkerShare map[string]int     `json:"per_worker_share"`
	ShareDeviation float64            `json:"share_deviation"`
	WorkerAverages map[string]float64 `json:"worker_averages"`
}
