package submit

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"gitlab.com/pixelgrid.net/internal/core/ports/primary"
	"gitlab.com/pixelgrid.net/internal/protocol"
	"gitlab.com/pixelgrid.net/internal/tcp"
)

// Submitter pushes image jobs to the master over one persistent
// connection and collects the results, which may arrive in any order.
type Submitter struct {
	masterAddr string
	filterSize int
	outDir     string
	logger     primary.Logger
}

// New creates a submitter client.
func New(masterAddr string, filterSize int, outDir string, logger primary.Logger) *Submitter {
	return &Submitter{
		masterAddr: masterAddr,
		filterSize: filterSize,
		outDir:     outDir,
		logger:     logger,
	}
}

// Run submits every file and blocks until all results arrived or the
// context ended. Each job gets a unique packet id; results are matched
// by that id alone.
func (s *Submitter) Run(ctx context.Context, files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("no input files")
	}

	client, err := tcp.Dial(s.masterAddr, s.logger)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.outDir != "" {
		if err := os.MkdirAll(s.outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	sentAt := make(map[string]time.Time, len(files))
	names := make(map[string]string, len(files))

	for _, file := range files {
		packet, err := s.buildPacket(file)
		if err != nil {
			s.logger.Error("Skipping file", "file", file, "error", err)
			continue
		}
		payload, err := packet.Encode()
		if err != nil {
			return err
		}
		if err := client.Send(protocol.NewMessage(protocol.MsgImageRequest, payload)); err != nil {
			return fmt.Errorf("failed to submit %s: %w", file, err)
		}
		sentAt[packet.PacketId] = time.Now()
		names[packet.PacketId] = packet.FileName
		s.logger.Info("Job submitted", "packetId", packet.PacketId, "file", packet.FileName)
	}

	if len(sentAt) == 0 {
		return fmt.Errorf("no jobs submitted")
	}

	for len(sentAt) > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("gave up waiting for %d results: %w", len(sentAt), ctx.Err())
		case ev := <-client.Events():
			if ev.Err != nil {
				return fmt.Errorf("master connection lost: %w", ev.Err)
			}
			if ev.Msg.Type != protocol.MsgImageResponse {
				s.logger.Debug("Ignoring message", "type", ev.Msg.Type.String())
				continue
			}

			packet, err := protocol.DecodeImagePacket(ev.Msg.Data)
			if err != nil {
				s.logger.Error("Failed to parse response", "error", err)
				continue
			}

			started, known := sentAt[packet.PacketId]
			if !known {
				s.logger.Warn("Response for unknown packet", "packetId", packet.PacketId)
				continue
			}
			delete(sentAt, packet.PacketId)

			s.logger.Info("Result received",
				"packetId", packet.PacketId,
				"file", names[packet.PacketId],
				"roundTrip", time.Since(started),
				"bytes", len(packet.ImageData),
				"slavePort", packet.SlavePort,
			)

			if s.outDir != "" {
				if err := s.writeResult(packet); err != nil {
					s.logger.Error("Failed to write result", "packetId", packet.PacketId, "error", err)
				}
			}
		}
	}

	return nil
}

// buildPacket loads a file and wraps it into a request packet.
func (s *Submitter) buildPacket(file string) (*protocol.ImagePacket, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to probe image: %w", err)
	}

	return &protocol.ImagePacket{
		PacketId:   uuid.NewString(),
		FileName:   filepath.Base(file),
		ImageData:  data,
		Width:      cfg.Width,
		Height:     cfg.Height,
		Format:     format,
		FilterSize: s.filterSize,
	}, nil
}

func (s *Submitter) writeResult(packet *protocol.ImagePacket) error {
	name := fmt.Sprintf("filtered_%s", packet.FileName)
	path := filepath.Join(s.outDir, name)
	if err := os.WriteFile(path, packet.ImageData, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
