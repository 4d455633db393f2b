package tcp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"gitlab.com/pixelgrid.net/internal/protocol"
)

// ErrFrameTooLarge is returned when a frame announces a body above
// protocol.MaxFrameSize. The oversized body has already been drained
// from the stream when this is returned, so the reader may continue.
var ErrFrameTooLarge = errors.New("frame exceeds maximum body size")

// ReadFrame reads one length-prefixed frame body from r. The prefix is
// a little-endian uint32 byte count of the body; the prefix itself is
// not included in the count. io.EOF is returned only for a clean
// disconnect before the length word; a short length word is peer
// misbehavior and surfaces as io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	length := binary.LittleEndian.Uint32(header[:])
	if length > protocol.MaxFrameSize {
		if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
			return nil, fmt.Errorf("failed to discard oversized frame: %w", err)
		}
		return nil, ErrFrameTooLarge
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("failed to read frame body: %w", err)
	}

	return body, nil
}

// WriteFrame writes one length-prefixed frame to w. Success means the
// bytes left the local buffer, not that the peer received them.
func WriteFrame(w io.Writer, body []byte) error {
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(body)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return fmt.Errorf("failed to write frame body: %w", err)
		}
	}
	return nil
}
