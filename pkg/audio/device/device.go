// Package device provides an [audio.FrameSource] backed by a raw PCM byte
// stream, typically the stdout of a local capture tool:
//
//	arecord -f S16_LE -r 16000 -c 1 | twistvox ...
//
// It exists so the capture pipeline can run against a microphone (or a
// recorded file) without a voice platform in the loop, which is how the
// scoring path is exercised locally and in integration tests.
package device

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/twistvox/twistvox/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.FrameSource = (*ReaderSource)(nil)

// DefaultChunkDuration is the frame size emitted when none is configured.
// 20 ms matches what voice platforms deliver, so downstream buffer tuning
// behaves the same for both source kinds.
const DefaultChunkDuration = 20 * time.Millisecond

// Config describes the PCM stream a [ReaderSource] reads.
type Config struct {
	// SampleRate of the incoming stream in Hz. Required.
	SampleRate int

	// Channels in the incoming stream: 1 or 2. Required.
	Channels int

	// ChunkDuration is how much audio each emitted frame covers.
	// Defaults to [DefaultChunkDuration].
	ChunkDuration time.Duration
}

func (c Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("device: sample rate %d is not positive", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("device: channel count %d not supported, want 1 or 2", c.Channels)
	}
	return nil
}

// ReaderSource reads little-endian int16 PCM from an io.Reader and emits it
// as fixed-size [audio.AudioFrame] chunks. Frame timestamps are derived from
// the byte offset in the stream, not the wall clock, so a file replays with
// the same timing every run.
//
// The source stops when the reader returns io.EOF or any other error, or
// when Close is called.
type ReaderSource struct {
	r      io.Reader
	cfg    Config
	frames chan audio.AudioFrame

	closeOnce sync.Once
	done      chan struct{}
}

// NewReaderSource starts reading from r according to cfg.
func NewReaderSource(r io.Reader, cfg Config) (*ReaderSource, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.ChunkDuration <= 0 {
		cfg.ChunkDuration = DefaultChunkDuration
	}

	s := &ReaderSource{
		r:      r,
		cfg:    cfg,
		frames: make(chan audio.AudioFrame, 16),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Frames implements [audio.FrameSource].
func (s *ReaderSource) Frames() <-chan audio.AudioFrame {
	return s.frames
}

// Close implements [audio.FrameSource]. It stops the read loop; the frame
// channel is closed once the loop exits. Safe to call more than once.
func (s *ReaderSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}

// readLoop reads chunk-sized slices from the reader and delivers them until
// EOF, a read error, or Close.
func (s *ReaderSource) readLoop() {
	defer close(s.frames)

	chunkBytes := s.chunkBytes()
	var offset int64 // bytes consumed so far, for timestamping

	for {
		select {
		case <-s.done:
			return
		default:
		}

		buf := make([]byte, chunkBytes)
		n, err := io.ReadFull(s.r, buf)
		if n > 0 {
			// Truncate a short final read to whole samples.
			n -= n % (2 * s.cfg.Channels)
		}
		if n > 0 {
			frame := audio.AudioFrame{
				Data:       buf[:n],
				SampleRate: s.cfg.SampleRate,
				Channels:   s.cfg.Channels,
				Timestamp:  s.timestampAt(offset),
			}
			offset += int64(n)
			select {
			case s.frames <- frame:
			case <-s.done:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				slog.Warn("device: pcm read error", "error", err)
			}
			return
		}
	}
}

// chunkBytes is the byte size of one emitted frame.
func (s *ReaderSource) chunkBytes() int {
	samples := int(int64(s.cfg.SampleRate) * int64(s.cfg.ChunkDuration) / int64(time.Second))
	if samples < 1 {
		samples = 1
	}
	return samples * 2 * s.cfg.Channels
}

// timestampAt converts a byte offset into stream time.
func (s *ReaderSource) timestampAt(offset int64) time.Duration {
	samples := offset / int64(2*s.cfg.Channels)
	return time.Duration(samples) * time.Second / time.Duration(s.cfg.SampleRate)
}
