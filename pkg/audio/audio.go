// Package audio defines the types and interfaces for voice capture within
// Twistvox.
//
// The two primary abstractions are:
//
//   - [FrameSource] — a stream of PCM frames from one speaker, whatever the
//     transport behind it (a Discord voice channel, a local input device, a
//     recorded file in tests).
//   - [Platform] — connects to a voice channel and returns a [Connection]
//     that hands out per-participant frame sources.
//
// Audio flows one way: from the platform toward the capture layer. Twistvox
// listens, it never speaks.
//
// This package lives under pkg/ because external platform adapters are
// expected to implement [Platform] and [Connection].
package audio

import (
	"context"
	"time"
)

// AudioFrame is a single chunk of PCM audio flowing through the capture
// pipeline.
type AudioFrame struct {
	// Data is little-endian int16 PCM.
	Data []byte

	// SampleRate in Hz (48000 from Discord, 16000 into the transcriber).
	SampleRate int

	// Channels: 2 for Discord input, 1 after downmix.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Samples returns the number of samples per channel in the frame.
func (f AudioFrame) Samples() int {
	if f.Channels == 0 {
		return 0
	}
	return len(f.Data) / 2 / f.Channels
}

// Duration returns the play time the frame covers.
func (f AudioFrame) Duration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(f.Samples()) * time.Second / time.Duration(f.SampleRate)
}

// FrameSource is a read-only stream of audio frames from a single speaker.
//
// Frames delivers frames in capture order and is closed when the source ends
// (the speaker left, the device closed, Close was called). Close releases
// the underlying transport resources; it is safe to call more than once.
type FrameSource interface {
	Frames() <-chan AudioFrame
	Close() error
}

// EventType classifies participant lifecycle events emitted by a [Connection].
type EventType int

const (
	// EventJoin is emitted when a participant enters the voice channel.
	EventJoin EventType = iota

	// EventLeave is emitted when a participant leaves the voice channel.
	EventLeave
)

// String returns the human-readable name of the event type.
func (e EventType) String() string {
	switch e {
	case EventJoin:
		return "JOIN"
	case EventLeave:
		return "LEAVE"
	default:
		return "UNKNOWN"
	}
}

// Event describes a participant lifecycle change on a voice channel.
type Event struct {
	// Type indicates whether the participant joined or left.
	Type EventType

	// UserID is the platform-specific unique identifier for the participant.
	UserID string

	// Username is the human-readable display name, when the platform knows it.
	Username string
}

// Connection is an active listening session on a voice channel.
//
// A Connection is obtained from [Platform.Connect] and remains valid until
// [Connection.Disconnect] is called. Sources returned by Source are closed
// automatically when the connection terminates.
//
// Implementations must be safe for concurrent use.
type Connection interface {
	// Source returns the frame source for the given participant, creating
	// it if needed. Frames arrive once the participant starts speaking.
	// Closing the source detaches it from the connection; the participant's
	// later audio is discarded until Source is called again.
	Source(userID string) FrameSource

	// OnParticipantChange registers cb as the callback to invoke whenever a
	// participant joins or leaves the channel. Only one callback may be
	// registered at a time; subsequent calls replace the previous
	// registration. The callback runs on an internal goroutine and must not
	// block.
	OnParticipantChange(cb func(Event))

	// Disconnect tears down the connection and closes all sources. Safe to
	// call more than once; subsequent calls are no-ops and return nil.
	Disconnect() error
}

// Platform is the entry point for a voice-channel provider. Implementations
// wrap provider-specific SDKs and expose the uniform [Connection]
// abstraction.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Connect joins the voice channel identified by channelID and returns an
	// active [Connection]. The supplied ctx governs the connection attempt
	// only; once connected, the Connection lives until
	// [Connection.Disconnect].
	Connect(ctx context.Context, channelID string) (Connection, error)
}

// BytesToInt16 converts little-endian PCM bytes to int16 samples.
func BytesToInt16(b []byte) []int16 {
	pcm := make([]int16, len(b)/2)
	for i := range pcm {
		pcm[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return pcm
}

// Int16ToBytes converts int16 samples to little-endian PCM bytes.
func Int16ToBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}
