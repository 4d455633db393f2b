package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the kind of payload a NetworkMessage carries.
type MessageType int

var messageTypeNames = map[MessageType]string{
	MsgImageRequest:    "ImageRequest",
	MsgImageResponse:   "ImageResponse",
	MsgSlaveRegister:   "SlaveRegister",
	MsgAcknowledgment:  "Acknowledgment",
	MsgSlaveStatistics: "SlaveStatistics",
}

// String returns the wire name of the message type.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", int(t))
}

// UnmarshalJSON accepts the type either as an integer, a quoted integer,
// or the type's wire name. Peers in the wild emit both encodings.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty message type")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to parse message type: %w", err)
		}
		if n, err := strconv.Atoi(s); err == nil {
			*t = MessageType(n)
			return nil
		}
		for mt, name := range messageTypeNames {
			if name == s {
				*t = mt
				return nil
			}
		}
		return fmt.Errorf("unknown message type %q", s)
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("failed to parse message type: %w", err)
	}
	*t = MessageType(n)
	return nil
}

// NetworkMessage is the wire envelope carried inside every frame.
// Data holds the serialized per-kind payload; encoding/json renders it
// as base64 on the wire. SenderIp and SenderPort are never trusted from
// the wire: the receiving transport overwrites them with the observed
// remote endpoint of the connection the frame arrived on.
type NetworkMessage struct {
	Type       MessageType `json:"Type"`
	Data       []byte      `json:"Data"`
	MessageId  string      `json:"MessageId"`
	SenderIp   string      `json:"SenderIp"`
	SenderPort int         `json:"SenderPort"`
	Timestamp  time.Time   `json:"Timestamp"`
}

// NewMessage builds an envelope of the given kind around payload with a
// freshly minted message identifier.
func NewMessage(t MessageType, payload []byte) *NetworkMessage {
	return &NetworkMessage{
		Type:      t,
		Data:      payload,
		MessageId: uuid.NewString(),
		Timestamp: time.Now(),
	}
}

// NewAcknowledgment builds the "OK" handshake reply.
func NewAcknowledgment() *NetworkMessage {
	return NewMessage(MsgAcknowledgment, []byte(AckPayload))
}

// Encode serializes the envelope to its wire body.
func (m *NetworkMessage) Encode() ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal network message: %w", err)
	}
	return body, nil
}

// DecodeMessage parses a frame body into an envelope.
func DecodeMessage(body []byte) (*NetworkMessage, error) {
	var msg NetworkMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal network message: %w", err)
	}
	return &msg, nil
}
