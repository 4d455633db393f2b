package domain

import (
	"net"
	"time"

	"gitlab.com/pixelgrid.net/internal/protocol"
)

// PendingRequest tracks a job that has been accepted from a submitter
// and not yet answered. The dispatcher's map is the sole strong holder;
// removing the entry drops the connection handle.
type PendingRequest struct {
	PacketId      string
	Conn          net.Conn
	SubmitterAddr string
	FileName      string
	DispatchedAt  time.Time
}

// PendingTask is a queued job: the original unmodified request payload
// plus its correlation key. RawPayload is forwarded to the worker
// byte-for-byte as it arrived from the submitter. Tasks are queued when
// no worker is free, or put back after a failed send to a worker.
type PendingTask struct {
	PacketId   string
	Packet     *protocol.ImagePacket
	RawPayload []byte
	Request    *PendingRequest
}
