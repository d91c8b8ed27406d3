// Package capture turns a raw [audio.FrameSource] into a single bounded
// voice clip. It watches the stream for speech using a peak-amplitude
// detector, records once speech is confirmed, and finalizes when the speaker
// goes quiet or the recording budget runs out.
//
// All timing decisions are made in sample time derived from the frames
// themselves, not the wall clock, so the same input produces the same clip
// whether it arrives live or replayed from a file.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/twistvox/twistvox/pkg/audio"
)

var (
	// ErrNoSpeech is returned when the stream ended or the wait budget ran
	// out before speech was confirmed.
	ErrNoSpeech = errors.New("capture: no speech detected")

	// ErrCaptureActive is returned when a capture is already running on this
	// recorder. One recorder serves one source; concurrent captures of the
	// same speaker are never meaningful.
	ErrCaptureActive = errors.New("capture: capture already in progress")

	// ErrStopped is returned when Stop was called before speech was
	// confirmed.
	ErrStopped = errors.New("capture: capture stopped")
)

// The capture target format matches what the transcriber consumes.
const (
	targetSampleRate = 16000
	targetChannels   = 1
)

// Config tunes the capture state machine. Zero values take the defaults
// noted on each field.
type Config struct {
	// MaxDuration bounds the whole capture: the wait for speech and the
	// recording draw on one shared budget. Default 15s.
	MaxDuration time.Duration

	// MinDuration is the shortest recording that can finalize; trailing
	// silence is not counted against it. Default 1s.
	MinDuration time.Duration

	// SilenceThreshold is how much trailing silence ends the recording.
	// Default 1500ms.
	SilenceThreshold time.Duration

	// ConfirmationWindow is the number of consecutive voiced chunks needed
	// before recording starts, filtering out coughs and key clicks.
	// Default 3.
	ConfirmationWindow int

	// VoiceThreshold is the peak amplitude at or above which a chunk counts
	// as voiced, in absolute int16 units. Default 500.
	VoiceThreshold int16

	// PreBufferChunks is how many chunks before the confirmed speech onset
	// are kept, so the first syllable is not clipped. Default 5.
	PreBufferChunks int
}

func (c Config) withDefaults() Config {
	if c.MaxDuration <= 0 {
		c.MaxDuration = 15 * time.Second
	}
	if c.MinDuration <= 0 {
		c.MinDuration = time.Second
	}
	if c.SilenceThreshold <= 0 {
		c.SilenceThreshold = 1500 * time.Millisecond
	}
	if c.ConfirmationWindow <= 0 {
		c.ConfirmationWindow = 3
	}
	if c.VoiceThreshold <= 0 {
		c.VoiceThreshold = 500
	}
	if c.PreBufferChunks <= 0 {
		c.PreBufferChunks = 5
	}
	return c
}

// Clip is one finalized voice recording, mono 16 kHz, peak-normalized.
type Clip struct {
	// OwnerID identifies the speaker the clip was captured from.
	OwnerID string

	// StartedAt is the wall-clock time the capture began, for persistence.
	StartedAt time.Time

	// PCM is little-endian int16 mono audio at SampleRate.
	PCM []byte

	// SampleRate of the recorded audio in Hz.
	SampleRate int

	// Duration is the sample-derived length of the recording.
	Duration time.Duration

	// TimedOut is set when the recording hit MaxDuration and was cut off
	// rather than ending on silence.
	TimedOut bool
}

// Recorder captures clips from one speaker's frame source. A Recorder runs
// at most one capture at a time; Capture fails fast with [ErrCaptureActive]
// while another is in flight.
type Recorder struct {
	cfg   Config
	inUse atomic.Bool

	stopMu sync.Mutex
	stop   chan struct{}
}

// NewRecorder returns a Recorder with cfg's zero values replaced by
// defaults.
func NewRecorder(cfg Config) *Recorder {
	return &Recorder{cfg: cfg.withDefaults()}
}

// Stop finalizes the running capture early, as if the speaker had gone
// silent. A capture that has not confirmed speech yet fails with
// [ErrStopped]. No-op when no capture is running.
func (r *Recorder) Stop() {
	r.stopMu.Lock()
	defer r.stopMu.Unlock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
}

// captureState tracks where the state machine is in a capture.
type captureState int

const (
	awaitingSpeech captureState = iota
	recording
)

// Capture consumes frames from src until a clip is finalized. The stream
// position drives all timing. MaxDuration is one shared budget for the
// whole call: consuming it all before speech is confirmed fails with
// [ErrNoSpeech], and a recording still running when the budget runs out is
// finalized with TimedOut set.
//
// Frames are converted to 16 kHz mono before analysis, so the source may
// deliver any int16 PCM format.
func (r *Recorder) Capture(ctx context.Context, ownerID string, src audio.FrameSource) (*Clip, error) {
	if !r.inUse.CompareAndSwap(false, true) {
		return nil, ErrCaptureActive
	}
	defer r.inUse.Store(false)

	r.stopMu.Lock()
	stop := make(chan struct{})
	r.stop = stop
	r.stopMu.Unlock()
	defer func() {
		r.stopMu.Lock()
		r.stop = nil
		r.stopMu.Unlock()
	}()

	var (
		conv = audio.FormatConverter{Target: audio.Format{
			SampleRate: targetSampleRate,
			Channels:   targetChannels,
		}}
		state     = awaitingSpeech
		startedAt = time.Now().UTC()

		// Stream time consumed since Capture began, and since recording
		// began, in sample-derived duration. total is charged for every
		// chunk in either state, so waiting plus recording can never
		// consume more than MaxDuration of stream time.
		total    time.Duration
		recorded time.Duration
		silence  time.Duration

		voicedRun int
		preBuffer [][]byte
		clip      []byte
	)

	finalize := func(timedOut bool) (*Clip, error) {
		out := normalizePeak(clip)
		c := &Clip{
			OwnerID:    ownerID,
			StartedAt:  startedAt,
			PCM:        out,
			SampleRate: targetSampleRate,
			Duration:   pcmDuration(len(out)),
			TimedOut:   timedOut,
		}
		slog.Debug("capture finalized",
			"owner_id", ownerID,
			"duration", c.Duration,
			"timed_out", timedOut,
		)
		return c, nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("capture: %w", ctx.Err())
		case <-stop:
			if state == recording {
				return finalize(false)
			}
			return nil, ErrStopped
		case frame, ok := <-src.Frames():
			if !ok {
				// Source ended. A confirmed recording of usable length
				// still counts.
				if state == recording && recorded >= r.cfg.MinDuration {
					return finalize(false)
				}
				return nil, ErrNoSpeech
			}

			frame = conv.Convert(frame)
			if len(frame.Data) == 0 {
				continue
			}
			chunkDur := frame.Duration()
			voiced := peakAmplitude(frame.Data) >= r.cfg.VoiceThreshold
			total += chunkDur

			switch state {
			case awaitingSpeech:
				preBuffer = append(preBuffer, frame.Data)
				if len(preBuffer) > r.cfg.PreBufferChunks+r.cfg.ConfirmationWindow {
					preBuffer = preBuffer[1:]
				}

				if voiced {
					voicedRun++
				} else {
					voicedRun = 0
				}

				if voicedRun >= r.cfg.ConfirmationWindow {
					state = recording
					for _, chunk := range preBuffer {
						clip = append(clip, chunk...)
						recorded += pcmDuration(len(chunk))
					}
					preBuffer = nil
					slog.Debug("speech confirmed", "owner_id", ownerID, "after", total)
					continue
				}

				if total >= r.cfg.MaxDuration {
					return nil, ErrNoSpeech
				}

			case recording:
				clip = append(clip, frame.Data...)
				recorded += chunkDur

				if voiced {
					silence = 0
				} else {
					silence += chunkDur
				}

				if total >= r.cfg.MaxDuration {
					return finalize(true)
				}
				if recorded >= r.cfg.MinDuration && silence >= r.cfg.SilenceThreshold {
					return finalize(false)
				}
			}
		}
	}
}

// peakAmplitude returns the largest absolute sample value in little-endian
// int16 PCM.
func peakAmplitude(pcm []byte) int16 {
	var peak int16
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(pcm[i]) | int16(pcm[i+1])<<8
		if s == -32768 {
			return 32767
		}
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// pcmDuration converts a mono byte count at the target rate into duration.
func pcmDuration(bytes int) time.Duration {
	return time.Duration(bytes/2) * time.Second / targetSampleRate
}

// normalizePeak scales the clip so its loudest sample sits at 90% of full
// scale. Quiet speakers come up, clipping-hot ones come down; silence is
// returned untouched.
func normalizePeak(pcm []byte) []byte {
	peak := peakAmplitude(pcm)
	if peak == 0 {
		return pcm
	}
	gain := 0.9 * 32767.0 / float64(peak)

	out := make([]byte, len(pcm)&^1)
	for i := 0; i+1 < len(pcm); i += 2 {
		s := float64(int16(pcm[i])|int16(pcm[i+1])<<8) * gain
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		v := int16(s)
		out[i] = byte(v)
		out[i+1] = byte(v >> 8)
	}
	return out
}
