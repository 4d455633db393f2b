package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorkerRecord represents a registered worker on the master. Records are
// appended in registration order; that order defines the "Slave #N"
// display numbering and the iteration order of the selection policies.
// The busy flag is owned by the dispatcher, not stored here.
type WorkerRecord struct {
	ID                    string    `json:"id"`
	IpAddress             string    `json:"ip_address"`
	Port                  int       `json:"port"`
	RegisteredAt          time.Time `json:"registered_at"`
	TasksCompleted        int       `json:"tasks_completed"`
	TotalProcessingTime   float64   `json:"total_processing_time"`
	AverageProcessingTime float64   `json:"average_processing_time"`
}

// NewWorkerRecord creates a record for a freshly registered worker.
func NewWorkerRecord(ip string, port int) *WorkerRecord {
	return &WorkerRecord{
		ID:           uuid.NewString(),
		IpAddress:    ip,
		Port:         port,
		RegisteredAt: time.Now(),
	}
}

// Key returns the "ip:port" identity the dispatcher indexes workers by.
func (w *WorkerRecord) Key() string {
	return WorkerKey(w.IpAddress, w.Port)
}

// WorkerKey builds the registry key for an (ip, port) pair.
func WorkerKey(ip string, port int) string {
	return fmt.Sprintf("%s:%d", ip, port)
}
