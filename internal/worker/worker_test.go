package worker

import (
	"context"
	"math"
	"testing"
	"time"

	"gitlab.com/pixelgrid.net/internal/core/services/filter"
	"gitlab.com/pixelgrid.net/internal/protocol"
	"gitlab.com/pixelgrid.net/internal/tcp"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

func TestStatisticsRunningAverage(t *testing.T) {
	var s statistics

	if got := s.averageSeconds(); got != 0 {
		t.Fatalf("average with no tasks = %g, want 0", got)
	}

	s.record(2 * time.Second)
	s.record(4 * time.Second)

	if s.tasksCompleted != 2 {
		t.Fatalf("tasksCompleted = %d, want 2", s.tasksCompleted)
	}
	if math.Abs(s.totalSeconds-6) > 1e-9 {
		t.Fatalf("totalSeconds = %g, want 6", s.totalSeconds)
	}
	if math.Abs(s.averageSeconds()-3) > 1e-9 {
		t.Fatalf("average = %g, want 3", s.averageSeconds())
	}
}

func waitEvent(t *testing.T, events <-chan tcp.Event) tcp.Event {
	t.Helper()
	select {
	case ev := <-events:
		if ev.Err != nil {
			t.Fatalf("event error: %v", ev.Err)
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return tcp.Event{}
	}
}

// End to end against an in-process master endpoint: register, ack, one
// job through the light pipeline, statistics frame before the response.
func TestWorkerServesOneJob(t *testing.T) {
	master := tcp.NewServer(nopLogger{}, tcp.WithAddress("127.0.0.1:0"))
	if err := master.Start(); err != nil {
		t.Fatalf("start master endpoint: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = master.Stop(ctx)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	node := New(9100, master.Addr().String(), filter.ModeLight, nopLogger{})
	runErr := make(chan error, 1)
	go func() { runErr <- node.Run(ctx) }()

	// Registration arrives first.
	regEv := waitEvent(t, master.Events())
	if regEv.Msg.Type != protocol.MsgSlaveRegister {
		t.Fatalf("first frame type = %v, want SlaveRegister", regEv.Msg.Type)
	}
	reg, err := protocol.DecodeRegistration(regEv.Msg.Data)
	if err != nil {
		t.Fatalf("decode registration: %v", err)
	}
	if reg.Port != 9100 {
		t.Fatalf("advertised port = %d, want 9100", reg.Port)
	}

	if err := tcp.SendMessage(regEv.Conn, protocol.NewAcknowledgment()); err != nil {
		t.Fatalf("send ack: %v", err)
	}

	// Build a tiny real image for the job.
	src := filter.NewBGRImage(10, 10)
	for i := range src.Pix {
		src.Pix[i] = byte(i % 256)
	}
	imageData, _, err := filter.EncodeForTransport(src)
	if err != nil {
		t.Fatalf("encode input: %v", err)
	}

	request := &protocol.ImagePacket{
		PacketId:   "p1",
		FileName:   "tiny.png",
		ImageData:  imageData,
		Width:      10,
		Height:     10,
		Format:     "png",
		FilterSize: 3,
	}
	payload, err := request.Encode()
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	if err := tcp.SendMessage(regEv.Conn, protocol.NewMessage(protocol.MsgImageRequest, payload)); err != nil {
		t.Fatalf("send request: %v", err)
	}

	// Statistics frame first, then the response.
	statsEv := waitEvent(t, master.Events())
	if statsEv.Msg.Type != protocol.MsgSlaveStatistics {
		t.Fatalf("frame type = %v, want SlaveStatistics first", statsEv.Msg.Type)
	}
	stats, err := protocol.DecodeStatistics(statsEv.Msg.Data)
	if err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Port != 9100 || stats.TasksCompleted != 1 {
		t.Fatalf("stats = %+v, want port 9100 with 1 task", stats)
	}

	respEv := waitEvent(t, master.Events())
	if respEv.Msg.Type != protocol.MsgImageResponse {
		t.Fatalf("frame type = %v, want ImageResponse", respEv.Msg.Type)
	}
	response, err := protocol.DecodeImagePacket(respEv.Msg.Data)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.PacketId != "p1" {
		t.Fatalf("response packetId = %q, want p1", response.PacketId)
	}
	if response.SlavePort != 9100 {
		t.Fatalf("response slavePort = %d, want 9100", response.SlavePort)
	}
	if response.FilterSize != 3 || response.Width != 10 || response.Height != 10 {
		t.Fatalf("response did not preserve request fields: %+v", response)
	}
	if len(response.ImageData) == 0 {
		t.Fatal("response carries no image data")
	}

	cancel()
	select {
	case <-runErr:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop on cancellation")
	}
}
