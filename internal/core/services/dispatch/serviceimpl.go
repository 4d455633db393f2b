package dispatch

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"gitlab.com/pixelgrid.net/internal/core/ports/primary"
	"gitlab.com/pixelgrid.net/internal/core/ports/secondary"
	"gitlab.com/pixelgrid.net/internal/domain"
	"gitlab.com/pixelgrid.net/internal/protocol"
	"gitlab.com/pixelgrid.net/internal/tcp"
	"gitlab.com/pixelgrid.net/internal/tcp/connectionmanager"
)

var _ IDispatchService = (*Dispatcher)(nil)

// errSendFailed marks a dispatch attempt on a dead worker connection.
var errSendFailed = errors.New("worker connection unavailable")

// Dispatcher implements the master dispatch core. One coarse mutex
// guards the registry, the busy map, the pending map and the task
// queue, so that selecting a worker and marking it busy is atomic: no
// two concurrent requests can claim the same free worker.
type Dispatcher struct {
	mu sync.Mutex

	workers []*domain.WorkerRecord
	byKey   map[string]*domain.WorkerRecord
	busy    map[string]bool
	pending map[string]*domain.PendingRequest
	// assigned maps an in-flight packet id to the worker key it was
	// dispatched to; the janitor uses it to release wedged workers.
	assigned map[string]string
	queue    []*domain.PendingTask

	received  int
	completed int
	rejected  int
	// completedBy counts answered jobs per worker key for the final
	// balance report.
	completedBy map[string]int
	firstJobAt  time.Time
	lastEventAt time.Time

	policy     SelectionPolicy
	connMgr    *connectionmanager.ConnectionManager
	statsStore secondary.StatsStore
	logger     primary.Logger

	sweepInterval time.Duration
	sweepAfter    time.Duration
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithPolicy sets the worker-selection policy.
func WithPolicy(p SelectionPolicy) DispatcherOption {
	return func(d *Dispatcher) {
		d.policy = p
	}
}

// WithStatsStore mirrors worker statistics to an external store.
func WithStatsStore(s secondary.StatsStore) DispatcherOption {
	return func(d *Dispatcher) {
		d.statsStore = s
	}
}

// WithPendingSweep enables the janitor that expires pending requests
// whose worker never answered, releasing the worker after age.
func WithPendingSweep(interval, age time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.sweepInterval = interval
		d.sweepAfter = age
	}
}

// NewDispatcher creates the dispatch core.
func NewDispatcher(logger primary.Logger, options ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		byKey:       make(map[string]*domain.WorkerRecord),
		busy:        make(map[string]bool),
		pending:     make(map[string]*domain.PendingRequest),
		assigned:    make(map[string]string),
		completedBy: make(map[string]int),
		policy:      &RoundRobinPolicy{},
		connMgr:     connectionmanager.NewConnectionManager(logger),
		logger:      logger,
	}

	for _, option := range options {
		option(d)
	}

	return d
}

// Run consumes transport events until the context ends. The dispatcher
// owns this loop; the transport registers no callbacks.
func (d *Dispatcher) Run(ctx context.Context, events <-chan tcp.Event) {
	if d.sweepInterval > 0 {
		go d.runSweep(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			d.handleEvent(ctx, ev)
		}
	}
}

func (d *Dispatcher) handleEvent(ctx context.Context, ev tcp.Event) {
	if ev.Err != nil {
		d.logger.Debug("Connection terminated", "remote", ev.Conn.RemoteAddr().String(), "error", ev.Err)
		return
	}

	switch ev.Msg.Type {
	case protocol.MsgSlaveRegister:
		d.registerWorker(ev.Msg, ev.Conn)
	case protocol.MsgImageRequest:
		d.acceptJob(ev.Msg, ev.Conn)
	case protocol.MsgImageResponse:
		d.handleResult(ctx, ev.Msg)
	case protocol.MsgSlaveStatistics:
		d.handleStats(ctx, ev.Msg)
	case protocol.MsgAcknowledgment:
		d.logger.Debug("Ignoring acknowledgment", "sender", ev.Msg.SenderIp)
	default:
		d.logger.Warn("Unknown message type", "type", int(ev.Msg.Type))
	}
}

// registerWorker admits a worker into the registry. Re-registration of
// a known (ip, port) is ignored without a fresh acknowledgment.
func (d *Dispatcher) registerWorker(msg *protocol.NetworkMessage, conn net.Conn) {
	reg, err := protocol.DecodeRegistration(msg.Data)
	if err != nil {
		d.logger.Error("Failed to parse registration", "error", err)
		return
	}

	key := domain.WorkerKey(reg.IpAddress, reg.Port)

	d.mu.Lock()
	if _, exists := d.byKey[key]; exists {
		d.mu.Unlock()
		d.logger.Debug("Ignoring duplicate registration", "worker", key)
		return
	}

	record := domain.NewWorkerRecord(reg.IpAddress, reg.Port)
	d.workers = append(d.workers, record)
	d.byKey[key] = record
	d.busy[key] = false
	number := len(d.workers)
	d.mu.Unlock()

	d.connMgr.RegisterWorker(key, conn)

	if err := tcp.SendMessage(conn, protocol.NewAcknowledgment()); err != nil {
		d.logger.Error("Failed to acknowledge registration", "worker", key, "error", err)
	}

	d.logger.Info("Worker registered", "worker", key, "number", number)

	// Registration adds capacity; queued tasks may dispatch now.
	d.drainQueue()
}

// acceptJob admits a submitter's request. With an empty registry the
// job is rejected outright rather than queued; queueing only covers
// the all-workers-busy case.
func (d *Dispatcher) acceptJob(msg *protocol.NetworkMessage, conn net.Conn) {
	packet, err := protocol.DecodeImagePacket(msg.Data)
	if err != nil {
		d.logger.Error("Failed to parse image request", "error", err)
		return
	}

	d.mu.Lock()

	if len(d.workers) == 0 {
		d.rejected++
		d.mu.Unlock()
		d.logger.Warn("No workers registered, dropping job", "packetId", packet.PacketId)
		return
	}

	d.received++
	now := time.Now()
	if d.firstJobAt.IsZero() {
		d.firstJobAt = now
	}
	d.lastEventAt = now

	request := &domain.PendingRequest{
		PacketId:      packet.PacketId,
		Conn:          conn,
		SubmitterAddr: conn.RemoteAddr().String(),
		FileName:      packet.FileName,
	}
	d.pending[packet.PacketId] = request

	task := &domain.PendingTask{
		PacketId:   packet.PacketId,
		Packet:     packet,
		RawPayload: msg.Data,
		Request:    request,
	}

	if worker := d.selectFreeLocked(); worker != nil {
		if err := d.assignLocked(task, worker); err != nil {
			d.logger.Error("Failed to dispatch job", "packetId", task.PacketId, "worker", worker.Key(), "error", err)
		}
	} else {
		d.queue = append(d.queue, task)
		d.logger.Info("All workers busy, job queued", "packetId", packet.PacketId, "depth", len(d.queue))
	}

	d.mu.Unlock()
}

// selectFreeLocked materializes the free set in registry order and asks
// the policy for one worker. Caller holds d.mu, which is what makes
// (selectWorker, markBusy) atomic.
func (d *Dispatcher) selectFreeLocked() *domain.WorkerRecord {
	free := make([]*domain.WorkerRecord, 0, len(d.workers))
	for _, w := range d.workers {
		if !d.busy[w.Key()] {
			free = append(free, w)
		}
	}
	return d.policy.Select(free)
}

// assignLocked marks the worker busy and forwards the original request
// payload on its connection. On send failure the busy flag reverts and
// the task returns to the head of the queue; the next drain retries it
// with whichever free worker the policy picks, which may be the same
// one. Caller holds d.mu.
func (d *Dispatcher) assignLocked(task *domain.PendingTask, worker *domain.WorkerRecord) error {
	key := worker.Key()
	d.busy[key] = true
	d.assigned[task.PacketId] = key
	task.Request.DispatchedAt = time.Now()

	conn, exists := d.connMgr.GetConnection(key)
	if !exists {
		d.busy[key] = false
		delete(d.assigned, task.PacketId)
		d.queue = append([]*domain.PendingTask{task}, d.queue...)
		d.logger.Error("Worker connection not found", "worker", key)
		return errSendFailed
	}

	out := protocol.NewMessage(protocol.MsgImageRequest, task.RawPayload)
	if err := tcp.SendMessage(conn, out); err != nil {
		d.busy[key] = false
		delete(d.assigned, task.PacketId)
		d.queue = append([]*domain.PendingTask{task}, d.queue...)
		return err
	}

	d.logger.Info("Job dispatched", "packetId", task.PacketId, "worker", key)
	return nil
}

// handleResult routes a worker's response back to its submitter and
// frees the worker. The responsible worker is derived from the echoed
// slave port and the connection's remote ip.
func (d *Dispatcher) handleResult(ctx context.Context, msg *protocol.NetworkMessage) {
	packet, err := protocol.DecodeImagePacket(msg.Data)
	if err != nil {
		d.logger.Error("Failed to parse image response", "error", err)
		return
	}

	d.mu.Lock()
	d.completed++
	d.lastEventAt = time.Now()

	request, known := d.pending[packet.PacketId]
	if !known {
		d.mu.Unlock()
		// The busy flag would be unowned: do not free any worker.
		d.logger.Warn("Response for unknown packet, discarding", "packetId", packet.PacketId)
		return
	}

	workerKey := domain.WorkerKey(msg.SenderIp, packet.SlavePort)
	d.busy[workerKey] = false
	d.completedBy[workerKey]++
	delete(d.pending, packet.PacketId)
	delete(d.assigned, packet.PacketId)

	elapsed := time.Since(request.DispatchedAt)
	done := d.received > 0 && d.completed == d.received
	d.mu.Unlock()

	response := protocol.NewMessage(protocol.MsgImageResponse, msg.Data)
	if err := tcp.SendMessage(request.Conn, response); err != nil {
		// Submitter gone; the worker is already free.
		d.logger.Warn("Failed to forward response to submitter", "packetId", packet.PacketId, "error", err)
	} else {
		d.logger.Info("Response delivered", "packetId", packet.PacketId, "worker", workerKey, "elapsed", elapsed)
	}

	d.drainQueue()

	if done {
		d.emitSummary(ctx)
	}
}

// handleStats refreshes a worker's cached statistics.
func (d *Dispatcher) handleStats(ctx context.Context, msg *protocol.NetworkMessage) {
	stats, err := protocol.DecodeStatistics(msg.Data)
	if err != nil {
		d.logger.Error("Failed to parse slave statistics", "error", err)
		return
	}

	key := domain.WorkerKey(msg.SenderIp, stats.Port)

	d.mu.Lock()
	record, exists := d.byKey[key]
	if exists {
		record.TasksCompleted = stats.TasksCompleted
		record.TotalProcessingTime = stats.TotalProcessingTime
		record.AverageProcessingTime = stats.AverageProcessingTime
	}
	d.mu.Unlock()

	if !exists {
		d.logger.Warn("Statistics from unknown worker", "worker", key)
		return
	}

	d.logger.Debug("Worker statistics updated",
		"worker", key,
		"tasksCompleted", stats.TasksCompleted,
		"averageProcessingTime", stats.AverageProcessingTime,
	)

	if d.statsStore != nil {
		if err := d.statsStore.SaveWorkerStats(ctx, key, stats); err != nil {
			d.logger.Error("Failed to mirror worker statistics", "worker", key, "error", err)
		}
	}
}

// drainQueue dispatches queued tasks while free workers remain. Called
// after every event that may add capacity.
func (d *Dispatcher) drainQueue() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for len(d.queue) > 0 {
		worker := d.selectFreeLocked()
		if worker == nil {
			return
		}

		task := d.queue[0]
		d.queue = d.queue[1:]

		if err := d.assignLocked(task, worker); err != nil {
			// assignLocked put the task back at the head; stop instead
			// of spinning against the same broken connection.
			d.logger.Error("Failed to dispatch queued job", "packetId", task.PacketId, "worker", worker.Key(), "error", err)
			return
		}
	}
}

// Snapshot returns a consistent copy of the dispatch state.
func (d *Dispatcher) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := Snapshot{
		Workers:       make([]WorkerView, 0, len(d.workers)),
		QueuedPackets: make([]string, 0, len(d.queue)),
		PendingCount:  len(d.pending),
		Received:      d.received,
		Completed:     d.completed,
		Rejected:      d.rejected,
		FirstJobAt:    d.firstJobAt,
		LastEventAt:   d.lastEventAt,
	}

	for i, w := range d.workers {
		copied := *w
		snap.Workers = append(snap.Workers, WorkerView{
			Number: i + 1,
			Busy:   d.busy[w.Key()],
			Worker: &copied,
		})
	}
	for _, task := range d.queue {
		snap.QueuedPackets = append(snap.QueuedPackets, task.PacketId)
	}

	return snap
}

// emitSummary logs the end-to-end balance report. The trigger is
// edge-triggered on each response; a later job reopens the cycle.
func (d *Dispatcher) emitSummary(ctx context.Context) {
	d.mu.Lock()

	summary := &domain.DispatchSummary{
		Received:       d.received,
		Completed:      d.completed,
		Rejected:       d.rejected,
		StartedAt:      d.firstJobAt,
		FinishedAt:     d.lastEventAt,
		WallClock:      d.lastEventAt.Sub(d.firstJobAt),
		PerWorkerShare: make(map[string]int, len(d.completedBy)),
		WorkerAverages: make(map[string]float64, len(d.workers)),
	}
	for key, n := range d.completedBy {
		summary.PerWorkerShare[key] = n
	}
	for _, w := range d.workers {
		summary.WorkerAverages[w.Key()] = w.AverageProcessingTime
	}

	if len(d.workers) > 0 && d.completed > 0 {
		ideal := float64(d.completed) / float64(len(d.workers))
		var worst float64
		for _, w := range d.workers {
			dev := float64(d.completedBy[w.Key()]) - ideal
			if dev < 0 {
				dev = -dev
			}
			if dev > worst {
				worst = dev
			}
		}
		summary.ShareDeviation = worst / ideal
	}
	d.mu.Unlock()

	d.logger.Info("All jobs completed",
		"received", summary.Received,
		"completed", summary.Completed,
		"wallClock", summary.WallClock,
		"perWorkerShare", summary.PerWorkerShare,
		"shareDeviation", summary.ShareDeviation,
	)

	if d.statsStore != nil {
		if err := d.statsStore.SaveSummary(ctx, summary); err != nil {
			d.logger.Error("Failed to mirror dispatch summary", "error", err)
		}
	}
}

// runSweep expires pending requests whose worker never answered. Each
// expired entry releases its worker and drops the submitter handle; the
// submitter receives nothing, matching the no-retry contract.
func (d *Dispatcher) runSweep(ctx context.Context) {
	ticker := time.NewTicker(d.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweepPending()
		}
	}
}

func (d *Dispatcher) sweepPending() {
	cutoff := time.Now().Add(-d.sweepAfter)

	d.mu.Lock()
	var expired []string
	for packetId, request := range d.pending {
		if !request.DispatchedAt.IsZero() && request.DispatchedAt.Before(cutoff) {
			expired = append(expired, packetId)
			if workerKey, ok := d.assigned[packetId]; ok {
				d.busy[workerKey] = false
				delete(d.assigned, packetId)
			}
			delete(d.pending, packetId)
		}
	}
	d.mu.Unlock()

	for _, packetId := range expired {
		d.logger.Warn("Expired pending request", "packetId", packetId, "age", d.sweepAfter)
	}
	if len(expired) > 0 {
		d.drainQueue()
	}
}
