package worker

import (
	"context"
	"fmt"
	"net"
	"time"

	"gitlab.com/pixelgrid.net/internal/core/ports/primary"
	"gitlab.com/pixelgrid.net/internal/core/services/filter"
	"gitlab.com/pixelgrid.net/internal/protocol"
	"gitlab.com/pixelgrid.net/internal/tcp"
)

// Worker is a filter-executing node. On startup it dials the master,
// registers its advertised port and awaits the acknowledgment; after
// that it serves inbound job frames one at a time. The decode-filter-
// encode transform runs on a background goroutine so the connection
// reader is never blocked by computation.
type Worker struct {
	port       int
	masterAddr string
	mode       filter.Mode
	logger     primary.Logger
	client     *tcp.Client

	stats statistics
}

// statistics is only touched from the processing goroutine.
type statistics struct {
	tasksCompleted int
	totalSeconds   float64
}

// averageSeconds recomputes the running mean.
func (s *statistics) averageSeconds() float64 {
	if s.tasksCompleted == 0 {
		return 0
	}
	return s.totalSeconds / float64(s.tasksCompleted)
}

// record folds one job's wall-clock time into the counters.
func (s *statistics) record(elapsed time.Duration) {
	s.tasksCompleted++
	s.totalSeconds += elapsed.Seconds()
}

// New creates a worker node for the given advertised port.
func New(port int, masterAddr string, mode filter.Mode, logger primary.Logger) *Worker {
	return &Worker{
		port:       port,
		masterAddr: masterAddr,
		mode:       mode,
		logger:     logger,
	}
}

// Run connects, registers and serves jobs until the context ends or the
// master connection fails.
func (w *Worker) Run(ctx context.Context) error {
	client, err := tcp.Dial(w.masterAddr, w.logger)
	if err != nil {
		return err
	}
	w.client = client
	defer client.Close()

	if err := w.register(ctx); err != nil {
		return err
	}

	w.logger.Info("Worker registered with master", "master", w.masterAddr, "port", w.port, "mode", string(w.mode))

	// The master keeps at most one job in flight per worker; the
	// buffer only absorbs a frame that lands while the previous job
	// is finishing.
	jobs := make(chan *protocol.ImagePacket, 1)
	defer close(jobs)
	go w.processLoop(jobs)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-client.Events():
			if ev.Err != nil {
				return fmt.Errorf("master connection lost: %w", ev.Err)
			}
			switch ev.Msg.Type {
			case protocol.MsgImageRequest:
				packet, err := protocol.DecodeImagePacket(ev.Msg.Data)
				if err != nil {
					w.logger.Error("Failed to parse image request", "error", err)
					continue
				}
				jobs <- packet
			default:
				w.logger.Debug("Ignoring message", "type", ev.Msg.Type.String())
			}
		}
	}
}

// register announces the advertised address and waits for the master's
// acknowledgment.
func (w *Worker) register(ctx context.Context) error {
	ip, _ := hostOf(w.client.LocalAddr())

	reg := protocol.SlaveRegistrationData{IpAddress: ip, Port: w.port}
	payload, err := reg.Encode()
	if err != nil {
		return err
	}
	if err := w.client.Send(protocol.NewMessage(protocol.MsgSlaveRegister, payload)); err != nil {
		return fmt.Errorf("failed to send registration: %w", err)
	}

	timer := time.NewTimer(protocol.RegistrationAckTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("no acknowledgment from master within %s", protocol.RegistrationAckTimeout)
		case ev := <-w.client.Events():
			if ev.Err != nil {
				return fmt.Errorf("master connection lost during registration: %w", ev.Err)
			}
			if ev.Msg.Type == protocol.MsgAcknowledgment {
				return nil
			}
			w.logger.Debug("Ignoring message before acknowledgment", "type", ev.Msg.Type.String())
		}
	}
}

// processLoop runs jobs strictly one at a time.
func (w *Worker) processLoop(jobs <-chan *protocol.ImagePacket) {
	for packet := range jobs {
		w.process(packet)
	}
}

// process runs the filter pipeline over one job and pushes back a
// statistics frame followed by the response. A pipeline failure is
// logged and produces no response.
func (w *Worker) process(packet *protocol.ImagePacket) {
	started := time.Now()

	src, err := filter.DecodeImage(packet.ImageData)
	if err != nil {
		w.logger.Error("Failed to decode image", "packetId", packet.PacketId, "error", err)
		return
	}

	out, err := filter.Apply(w.mode, src, packet.FilterSize)
	if err != nil {
		w.logger.Error("Filter pipeline failed", "packetId", packet.PacketId, "error", err)
		return
	}

	encoded, encFormat, err := filter.EncodeForTransport(out)
	if err != nil {
		w.logger.Error("Failed to encode result", "packetId", packet.PacketId, "error", err)
		return
	}

	elapsed := time.Since(started)
	w.stats.record(elapsed)

	if err := w.sendStatistics(); err != nil {
		w.logger.Error("Failed to send statistics", "error", err)
	}

	response := &protocol.ImagePacket{
		PacketId:   packet.PacketId,
		FileName:   packet.FileName,
		ImageData:  encoded,
		Width:      packet.Width,
		Height:     packet.Height,
		Format:     packet.Format,
		FilterSize: packet.FilterSize,
		SlavePort:  w.port,
	}
	payload, err := response.Encode()
	if err != nil {
		w.logger.Error("Failed to encode response", "packetId", packet.PacketId, "error", err)
		return
	}
	if err := w.client.Send(protocol.NewMessage(protocol.MsgImageResponse, payload)); err != nil {
		w.logger.Error("Failed to send response", "packetId", packet.PacketId, "error", err)
		return
	}

	w.logger.Info("Job completed",
		"packetId", packet.PacketId,
		"elapsed", elapsed,
		"encodedAs", encFormat,
		"bytes", len(encoded),
	)
}

// sendStatistics pushes the running counters; the statistics frame goes
// out before the response frame for the same job.
func (w *Worker) sendStatistics() error {
	stats := protocol.SlaveStatistics{
		Port:                  w.port,
		TasksCompleted:        w.stats.tasksCompleted,
		TotalProcessingTime:   w.stats.totalSeconds,
		AverageProcessingTime: w.stats.averageSeconds(),
	}
	payload, err := stats.Encode()
	if err != nil {
		return err
	}
	return w.client.Send(protocol.NewMessage(protocol.MsgSlaveStatistics, payload))
}

func hostOf(addr net.Addr) (string, error) {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), err
	}
	return host, nil
}
