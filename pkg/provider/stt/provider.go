// Package stt defines the Transcriber interface for speech-to-text backends.
//
// Twistvox transcribes bounded clips, not live streams: the capture layer
// hands over one finalized recording per attempt and the game needs exactly
// one text back. The interface is synchronous: Transcribe blocks
// until the backend has committed to a result or the context expires.
//
// Implementations must be safe for concurrent use; attempts from different
// players run in parallel.
package stt

import (
	"context"
	"errors"
	"time"
)

// ErrTranscriptionFailed wraps backend failures so callers can distinguish
// "the engine broke" from "the player said nothing useful". Check with
// errors.Is.
var ErrTranscriptionFailed = errors.New("stt: transcription failed")

// Request carries one clip to be transcribed.
type Request struct {
	// PCM is little-endian int16 audio.
	PCM []byte

	// SampleRate of PCM in Hz. Whisper-family backends want 16000.
	SampleRate int

	// Channels in PCM; multi-channel audio is downmixed by the backend.
	Channels int

	// Hint is the phrase the speaker was asked to say. Backends that accept
	// an initial prompt use it to bias recognition toward the expected
	// vocabulary; others ignore it.
	Hint string
}

// Duration returns the clip length implied by the PCM size.
func (r Request) Duration() time.Duration {
	if r.SampleRate <= 0 || r.Channels <= 0 {
		return 0
	}
	samples := len(r.PCM) / 2 / r.Channels
	return time.Duration(samples) * time.Second / time.Duration(r.SampleRate)
}

// Result is a committed transcription.
type Result struct {
	// Text is the transcribed speech, trimmed. Empty when the backend heard
	// nothing intelligible.
	Text string

	// ModelTime is how long the backend spent on inference.
	ModelTime time.Duration
}

// Transcriber is the abstraction over any speech-to-text backend.
type Transcriber interface {
	// Transcribe runs recognition on one clip and returns the committed
	// result. An unintelligible clip yields an empty Text with a nil error;
	// backend failures are wrapped in [ErrTranscriptionFailed].
	Transcribe(ctx context.Context, req Request) (Result, error)
}
