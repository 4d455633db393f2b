package submit

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

func writeTestPNG(t *testing.T, dir string, name string, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = byte(i % 256)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestBuildPacketProbesImage(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "sample.png", 20, 15)

	s := New("127.0.0.1:9000", 5, "", nopLogger{})
	packet, err := s.buildPacket(path)
	if err != nil {
		t.Fatalf("buildPacket: %v", err)
	}

	if packet.PacketId == "" {
		t.Fatal("packet id not assigned")
	}
	if packet.FileName != "sample.png" {
		t.Fatalf("fileName = %q", packet.FileName)
	}
	if packet.Width != 20 || packet.Height != 15 {
		t.Fatalf("dimensions = %dx%d, want 20x15", packet.Width, packet.Height)
	}
	if packet.Format != "png" {
		t.Fatalf("format = %q", packet.Format)
	}
	if packet.FilterSize != 5 {
		t.Fatalf("filterSize = %d, want 5", packet.FilterSize)
	}
	if len(packet.ImageData) == 0 {
		t.Fatal("image bytes not loaded")
	}
}

func TestBuildPacketIdsAreUnique(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "sample.png", 4, 4)

	s := New("127.0.0.1:9000", 3, "", nopLogger{})
	a, err := s.buildPacket(path)
	if err != nil {
		t.Fatalf("buildPacket: %v", err)
	}
	b, err := s.buildPacket(path)
	if err != nil {
		t.Fatalf("buildPacket: %v", err)
	}
	if a.PacketId == b.PacketId {
		t.Fatal("packet ids must be unique per job")
	}
}

func TestBuildPacketRejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-an-image.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := New("127.0.0.1:9000", 3, "", nopLogger{})
	if _, err := s.buildPacket(path); err == nil {
		t.Fatal("non-image accepted")
	}
}
