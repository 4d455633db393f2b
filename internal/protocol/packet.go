package protocol

import (
	"encoding/json"
	"fmt"
)

// Protocol data structures
type (

	// ImagePacket is the payload of ImageRequest and ImageResponse
	// messages. PacketId is assigned by the submitter and preserved
	// verbatim end-to-end; it is the sole correlation key for routing
	// a response back to its submitter. SlavePort is only set on
	// responses, where the worker echoes its own listening port.
	ImagePacket struct {
		PacketId   string `json:"PacketId"`
		FileName   string `json:"FileName"`
		ImageData  []byte `json:"ImageData"`
		Width      int    `json:"Width"`
		Height     int    `json:"Height"`
		Format     string `json:"Format"`
		FilterSize int    `json:"FilterSize"`
		SlavePort  int    `json:"SlavePort,omitempty"`
	}

	// SlaveRegistrationData is the payload a worker sends to announce
	// the address the master should identify it by.
	SlaveRegistrationData struct {
		IpAddress string `json:"IpAddress"`
		Port      int    `json:"Port"`
	}

	// SlaveStatistics is the self-reported counters a worker pushes
	// after every completed job. Times are in seconds.
	SlaveStatistics struct {
		Port                  int     `json:"Port"`
		TasksCompleted        int     `json:"TasksCompleted"`
		TotalProcessingTime   float64 `json:"TotalProcessingTime"`
		AverageProcessingTime float64 `json:"AverageProcessingTime"`
	}
)

// Encode serializes the packet for use as a message payload.
func (p *ImagePacket) Encode() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image packet: %w", err)
	}
	return data, nil
}

// DecodeImagePacket parses an ImageRequest/ImageResponse payload.
func DecodeImagePacket(data []byte) (*ImagePacket, error) {
	var p ImagePacket
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal image packet: %w", err)
	}
	return &p, nil
}

// Encode serializes the registration payload.
func (r *SlaveRegistrationData) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal registration data: %w", err)
	}
	return data, nil
}

// DecodeRegistration parses a SlaveRegister payload.
func DecodeRegistration(data []byte) (*SlaveRegistrationData, error) {
	var r SlaveRegistrationData
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal registration data: %w", err)
	}
	return &r, nil
}

// Encode serializes the statistics payload.
func (s *SlaveStatistics) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal slave statistics: %w", err)
	}
	return data, nil
}

// DecodeStatistics parses a SlaveStatistics payload.
func DecodeStatistics(data []byte) (*SlaveStatistics, error) {
	var s SlaveStatistics
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal slave statistics: %w", err)
	}
	return &s, nil
}
