// Package mock provides in-memory mock implementations of the
// [audio.FrameSource], [audio.Connection], and [audio.Platform] interfaces
// for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	src := mock.NewSource(16)
//	conn := &mock.Connection{Sources: map[string]audio.FrameSource{"user-1": src}}
//	platform := &mock.Platform{ConnectResult: conn}
//	got, err := platform.Connect(ctx, "channel-42")
package mock

import (
	"context"
	"sync"

	"github.com/twistvox/twistvox/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.FrameSource = (*Source)(nil)
	_ audio.Connection  = (*Connection)(nil)
	_ audio.Platform    = (*Platform)(nil)
)

// Source is a mock [audio.FrameSource] fed by the test. Push frames with
// [Source.Push], end the stream with [Source.End] or [Source.Close].
type Source struct {
	mu     sync.Mutex
	frames chan audio.AudioFrame
	closed bool

	// CallCountClose records how many times Close was called.
	CallCountClose int

	// CloseError is returned by [Source.Close].
	CloseError error
}

// NewSource returns a Source with the given channel buffer.
func NewSource(buffer int) *Source {
	return &Source{frames: make(chan audio.AudioFrame, buffer)}
}

// Frames implements [audio.FrameSource].
func (s *Source) Frames() <-chan audio.AudioFrame {
	return s.frames
}

// Push delivers one frame to the consumer. Blocks when the buffer is full.
// Pushing after End or Close panics, same as any send on a closed channel.
func (s *Source) Push(frame audio.AudioFrame) {
	s.frames <- frame
}

// End closes the frame stream without counting as a Close call, simulating
// the speaker leaving.
func (s *Source) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
}

// Close implements [audio.FrameSource].
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
	return s.CloseError
}

// Connection is a mock implementation of [audio.Connection].
// Set the exported fields before use; inspect the Call* fields after.
type Connection struct {
	mu sync.Mutex

	// Sources maps user IDs to the sources returned by [Connection.Source].
	// A user with no entry gets a fresh empty [Source] which is remembered
	// for subsequent calls.
	Sources map[string]audio.FrameSource

	// DisconnectError is returned by [Connection.Disconnect].
	DisconnectError error

	// SourceCalls records the userID argument of every Source invocation.
	SourceCalls []string

	// CallCountDisconnect records how many times Disconnect was called.
	CallCountDisconnect int

	// RecordedCallbacks holds the callbacks registered via
	// OnParticipantChange, in order of registration.
	RecordedCallbacks []func(audio.Event)
}

// Source implements [audio.Connection].
func (c *Connection) Source(userID string) audio.FrameSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SourceCalls = append(c.SourceCalls, userID)
	if c.Sources == nil {
		c.Sources = make(map[string]audio.FrameSource)
	}
	src, ok := c.Sources[userID]
	if !ok {
		src = NewSource(16)
		c.Sources[userID] = src
	}
	return src
}

// OnParticipantChange implements [audio.Connection]. The callback is
// appended to RecordedCallbacks; simulate events with [Connection.EmitEvent].
func (c *Connection) OnParticipantChange(cb func(audio.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RecordedCallbacks = append(c.RecordedCallbacks, cb)
}

// Disconnect implements [audio.Connection]. Returns DisconnectError.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountDisconnect++
	return c.DisconnectError
}

// EmitEvent calls all registered participant-change callbacks with the given
// event. Use this in tests to simulate participants joining or leaving.
func (c *Connection) EmitEvent(ev audio.Event) {
	c.mu.Lock()
	cbs := make([]func(audio.Event), len(c.RecordedCallbacks))
	copy(cbs, c.RecordedCallbacks)
	c.mu.Unlock()
	for _, cb := range cbs {
		cb(ev)
	}
}

// ConnectCall records the arguments of a single [Platform.Connect] invocation.
type ConnectCall struct {
	// ChannelID is the channelID argument passed to Connect.
	ChannelID string
}

// Platform is a mock implementation of [audio.Platform].
type Platform struct {
	mu sync.Mutex

	// ConnectResult is the [audio.Connection] returned by Connect.
	ConnectResult audio.Connection

	// ConnectError is the error returned by Connect.
	ConnectError error

	// ConnectCalls records all Connect invocations.
	ConnectCalls []ConnectCall
}

// Connect implements [audio.Platform]. Records the call and returns
// ConnectResult / ConnectError.
func (p *Platform) Connect(_ context.Context, channelID string) (audio.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = append(p.ConnectCalls, ConnectCall{ChannelID: channelID})
	return p.ConnectResult, p.ConnectError
}
