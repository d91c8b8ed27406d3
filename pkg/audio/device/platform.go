package device

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/twistvox/twistvox/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Platform   = (*Platform)(nil)
	_ audio.Connection = (*connection)(nil)
)

// Platform adapts one local PCM stream to the [audio.Platform] interface so
// the whole pipeline can run without Discord in the loop. Connect wraps the
// stream in a [ReaderSource]; every participant ID maps to that one source,
// since a microphone has exactly one speaker.
type Platform struct {
	open func() (io.Reader, error)
	cfg  Config
}

// NewPlatform returns a Platform whose connections read from the stream
// open returns. open is called once per Connect, so a file-backed stream
// can be reopened for each session.
func NewPlatform(open func() (io.Reader, error), cfg Config) *Platform {
	return &Platform{open: open, cfg: cfg}
}

// Connect implements [audio.Platform]. channelID is accepted for interface
// compatibility and only used in logs.
func (p *Platform) Connect(_ context.Context, channelID string) (audio.Connection, error) {
	r, err := p.open()
	if err != nil {
		return nil, err
	}
	src, err := NewReaderSource(r, p.cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("device: stream connected", "channel_id", channelID,
		"sample_rate", p.cfg.SampleRate, "channels", p.cfg.Channels)
	return &connection{src: src}, nil
}

// connection serves the single local stream to every caller.
type connection struct {
	src *ReaderSource

	disconnectOnce sync.Once
	disconnectErr  error
}

// Source implements [audio.Connection]. All participant IDs share the one
// local stream.
func (c *connection) Source(string) audio.FrameSource {
	return c.src
}

// OnParticipantChange implements [audio.Connection]. A local stream has no
// participant lifecycle; the callback is never invoked.
func (c *connection) OnParticipantChange(func(audio.Event)) {}

// Disconnect implements [audio.Connection]. It stops the read loop and
// discards any frames it produced after the last consumer stopped reading,
// so Disconnect returns with the stream fully settled.
func (c *connection) Disconnect() error {
	c.disconnectOnce.Do(func() {
		c.disconnectErr = c.src.Close()
		audio.Drain(c.src.Frames())
	})
	return c.disconnectErr
}
