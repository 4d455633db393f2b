package connectionmanager

import (
	"net"
	"sync"

	"gitlab.com/pixelgrid.net/internal/core/ports/primary"
)

// ConnectionManager tracks the live connections the master delivers
// jobs on, keyed by the worker's "ip:port" identity. Connections are
// owned by the transport; the manager only holds references and must
// tolerate a peer vanishing at any point.
type ConnectionManager struct {
	Connections map[string]net.Conn
	ConnMutex   sync.RWMutex
	Logger      primary.Logger
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(logger primary.Logger) *ConnectionManager {
	return &ConnectionManager{
		Connections: make(map[string]net.Conn),
		Logger:      logger,
	}
}

// RegisterWorker associates a worker key with its live connection.
func (cm *ConnectionManager) RegisterWorker(workerKey string, conn net.Conn) {
	cm.ConnMutex.Lock()
	cm.Connections[workerKey] = conn
	cm.ConnMutex.Unlock()
}

// RemoveWorker drops a worker's connection reference.
func (cm *ConnectionManager) RemoveWorker(workerKey string) {
	cm.ConnMutex.Lock()
	delete(cm.Connections, workerKey)
	cm.ConnMutex.Unlock()
}

// GetConnection returns the connection for a specific worker
func (cm *ConnectionManager) GetConnection(workerKey string) (net.Conn, bool) {
	cm.ConnMutex.RLock()
	defer cm.ConnMutex.RUnlock()

	conn, exists := cm.Connections[workerKey]
	return conn, exists
}

// CloseAll closes every tracked connection.
func (cm *ConnectionManager) CloseAll() {
	cm.ConnMutex.Lock()
	defer cm.ConnMutex.Unlock()

	for workerKey, conn := range cm.Connections {
		if err := conn.Close(); err != nil {
			cm.Logger.Error("Failed to close connection", "workerKey", workerKey, "error", err)
		}
	}
}
