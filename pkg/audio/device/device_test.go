package device_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/twistvox/twistvox/pkg/audio"
	"github.com/twistvox/twistvox/pkg/audio/device"
)

func collect(t *testing.T, src audio.FrameSource) []audio.AudioFrame {
	t.Helper()
	var frames []audio.AudioFrame
	timeout := time.After(2 * time.Second)
	for {
		select {
		case f, ok := <-src.Frames():
			if !ok {
				return frames
			}
			frames = append(frames, f)
		case <-timeout:
			t.Fatal("timed out collecting frames")
		}
	}
}

func TestReaderSource_ChunksAndTimestamps(t *testing.T) {
	t.Parallel()

	// 100 ms of 16 kHz mono: 1600 samples, 3200 bytes.
	pcm := make([]byte, 3200)
	src, err := device.NewReaderSource(bytes.NewReader(pcm), device.Config{
		SampleRate:    16000,
		Channels:      1,
		ChunkDuration: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewReaderSource: %v", err)
	}
	defer src.Close()

	frames := collect(t, src)
	if len(frames) != 5 {
		t.Fatalf("frames = %d, want 5", len(frames))
	}
	for i, f := range frames {
		if f.SampleRate != 16000 || f.Channels != 1 {
			t.Errorf("frame %d format = %d/%d", i, f.SampleRate, f.Channels)
		}
		if len(f.Data) != 640 {
			t.Errorf("frame %d size = %d bytes, want 640", i, len(f.Data))
		}
		want := time.Duration(i) * 20 * time.Millisecond
		if f.Timestamp != want {
			t.Errorf("frame %d timestamp = %v, want %v", i, f.Timestamp, want)
		}
	}
}

func TestReaderSource_ShortFinalRead(t *testing.T) {
	t.Parallel()

	// One full 20 ms chunk plus half a chunk.
	pcm := make([]byte, 640+320)
	src, err := device.NewReaderSource(bytes.NewReader(pcm), device.Config{
		SampleRate: 16000,
		Channels:   1,
	})
	if err != nil {
		t.Fatalf("NewReaderSource: %v", err)
	}
	defer src.Close()

	frames := collect(t, src)
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	if len(frames[1].Data) != 320 {
		t.Errorf("final frame size = %d bytes, want 320", len(frames[1].Data))
	}
}

func TestReaderSource_StereoChunkSize(t *testing.T) {
	t.Parallel()

	pcm := make([]byte, 3840*2)
	src, err := device.NewReaderSource(bytes.NewReader(pcm), device.Config{
		SampleRate: 48000,
		Channels:   2,
	})
	if err != nil {
		t.Fatalf("NewReaderSource: %v", err)
	}
	defer src.Close()

	frames := collect(t, src)
	// 48 kHz stereo, 20 ms chunks: 960 samples * 2 ch * 2 bytes = 3840.
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	if len(frames[0].Data) != 3840 {
		t.Errorf("frame size = %d bytes, want 3840", len(frames[0].Data))
	}
}

func TestReaderSource_RejectsBadConfig(t *testing.T) {
	t.Parallel()

	if _, err := device.NewReaderSource(bytes.NewReader(nil), device.Config{SampleRate: 0, Channels: 1}); err == nil {
		t.Error("zero sample rate should be rejected")
	}
	if _, err := device.NewReaderSource(bytes.NewReader(nil), device.Config{SampleRate: 16000, Channels: 3}); err == nil {
		t.Error("three channels should be rejected")
	}
}

func TestReaderSource_CloseStopsStream(t *testing.T) {
	t.Parallel()

	// An endless zero reader; only Close can stop it.
	src, err := device.NewReaderSource(zeroReader{}, device.Config{
		SampleRate: 16000,
		Channels:   1,
	})
	if err != nil {
		t.Fatalf("NewReaderSource: %v", err)
	}

	// Pull a couple of frames, then close.
	for range 2 {
		select {
		case <-src.Frames():
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for frame")
		}
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-src.Frames():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("frame channel never closed after Close")
		}
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestPlatform_ConnectServesOneSharedStream(t *testing.T) {
	t.Parallel()

	// 40 ms of 16 kHz mono.
	pcm := make([]byte, 1280)
	platform := device.NewPlatform(func() (io.Reader, error) {
		return bytes.NewReader(pcm), nil
	}, device.Config{
		SampleRate:    16000,
		Channels:      1,
		ChunkDuration: 20 * time.Millisecond,
	})

	conn, err := platform.Connect(context.Background(), "local")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// Every participant ID resolves to the same local stream.
	src := conn.Source("user-1")
	if other := conn.Source("user-2"); other != src {
		t.Error("participants got distinct sources, want one shared stream")
	}

	frames := collect(t, src)
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	if err := conn.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
}

func TestPlatform_ConnectOpenError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("device gone")
	platform := device.NewPlatform(func() (io.Reader, error) {
		return nil, wantErr
	}, device.Config{SampleRate: 16000, Channels: 1})

	if _, err := platform.Connect(context.Background(), "local"); !errors.Is(err, wantErr) {
		t.Fatalf("Connect err = %v, want %v", err, wantErr)
	}
}

func TestPlatform_DisconnectDrainsStream(t *testing.T) {
	t.Parallel()

	// A second of audio the consumer never reads.
	pcm := make([]byte, 32000)
	platform := device.NewPlatform(func() (io.Reader, error) {
		return bytes.NewReader(pcm), nil
	}, device.Config{SampleRate: 16000, Channels: 1})

	conn, err := platform.Connect(context.Background(), "local")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	src := conn.Source("user-1")

	if err := conn.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	// The stream is fully consumed and closed once Disconnect returns.
	if _, ok := <-src.Frames(); ok {
		t.Error("frames remained buffered after Disconnect")
	}
	if err := conn.Disconnect(); err != nil {
		t.Errorf("second Disconnect: %v", err)
	}
}
