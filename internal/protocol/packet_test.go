package protocol

import "testing"

func TestImagePacketRoundTrip(t *testing.T) {
	in := &ImagePacket{
		PacketId:   "p1",
		FileName:   "photo.png",
		ImageData:  []byte{1, 2, 3, 4},
		Width:      10,
		Height:     10,
		Format:     "png",
		FilterSize: 3,
		SlavePort:  9100,
	}

	data, err := in.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	out, err := DecodeImagePacket(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if out.PacketId != in.PacketId || out.FileName != in.FileName ||
		out.Width != in.Width || out.Height != in.Height ||
		out.Format != in.Format || out.FilterSize != in.FilterSize ||
		out.SlavePort != in.SlavePort {
		t.Fatalf("packets differ: %#v vs %#v", out, in)
	}
	if string(out.ImageData) != string(in.ImageData) {
		t.Fatalf("image data differs")
	}
}

func TestRegistrationRoundTrip(t *testing.T) {
	in := &SlaveRegistrationData{IpAddress: "127.0.0.1", Port: 9100}

	data, err := in.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeRegistration(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.IpAddress != in.IpAddress || out.Port != in.Port {
		t.Fatalf("registration differs: %#v vs %#v", out, in)
	}
}

func TestStatisticsRoundTrip(t *testing.T) {
	in := &SlaveStatistics{Port: 9100, TasksCompleted: 4, TotalProcessingTime: 8.0, AverageProcessingTime: 2.0}

	data, err := in.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeStatistics(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *out != *in {
		t.Fatalf("statistics differ: %#v vs %#v", out, in)
	}
}
