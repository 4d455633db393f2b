package protocol

import "time"

// Protocol constants
const (
	// Message types
	MsgImageRequest    MessageType = 0
	MsgImageResponse   MessageType = 1
	MsgSlaveRegister   MessageType = 2
	MsgAcknowledgment  MessageType = 3
	MsgSlaveStatistics MessageType = 4

	// MaxFrameSize is the largest frame body the transport accepts.
	MaxFrameSize = 50_000_000

	// AckPayload is the literal body of an Acknowledgment message.
	AckPayload = "OK"

	// Configuration constants
	RegistrationAckTimeout = 30 * time.Second
	ConnectionRetryDelay   = 1 * time.Second
)
