package discord

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/twistvox/twistvox/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Connection = (*Connection)(nil)

const sourceBuffer = 64

// Connection wraps a discordgo.VoiceConnection and adapts it to the
// [audio.Connection] interface. It demuxes incoming Opus packets by SSRC,
// decodes them to PCM, and routes the frames to the [audio.FrameSource]
// attached for the speaking user. Speaking updates populate the SSRC to
// user-ID mapping; until a speaking update arrives for an SSRC, its frames
// are keyed by the SSRC rendered as a string.
//
// Audio for users with no attached source is discarded, not buffered.
//
// Connection is safe for concurrent use.
type Connection struct {
	vc      *discordgo.VoiceConnection
	session *discordgo.Session
	guildID string

	mu       sync.Mutex
	sources  map[string]*userSource // keyed by user ID
	ssrcUser map[uint32]string

	changeMu sync.Mutex
	changeCb func(audio.Event)

	done      chan struct{}
	closeOnce sync.Once

	removeHandler func() // removes the VoiceStateUpdate handler

	// disconnectVC tears down the voice connection during Disconnect.
	// Defaults to vc.Disconnect; overridden in tests.
	disconnectVC func() error
}

// newConnection initialises a Connection for an already-joined voice channel
// and starts the receive loop.
func newConnection(vc *discordgo.VoiceConnection, session *discordgo.Session, guildID string) *Connection {
	c := &Connection{
		vc:           vc,
		session:      session,
		guildID:      guildID,
		sources:      make(map[string]*userSource),
		ssrcUser:     make(map[uint32]string),
		done:         make(chan struct{}),
		disconnectVC: vc.Disconnect,
	}

	// Speaking updates carry the SSRC to user-ID mapping.
	vc.AddHandler(c.handleSpeakingUpdate)

	// VoiceStateUpdate events detect participants joining and leaving.
	c.removeHandler = session.AddHandler(c.handleVoiceStateUpdate)

	go c.recvLoop()
	return c
}

// userSource is the per-user [audio.FrameSource] view over the connection.
type userSource struct {
	conn   *Connection
	userID string
	frames chan audio.AudioFrame
	closed bool // guarded by conn.mu
}

// Frames implements [audio.FrameSource].
func (s *userSource) Frames() <-chan audio.AudioFrame {
	return s.frames
}

// Close implements [audio.FrameSource]. It detaches the source from the
// connection; subsequent audio from the user is discarded.
func (s *userSource) Close() error {
	s.conn.detach(s.userID)
	return nil
}

// Source returns the frame source for the given user, creating it if needed.
func (c *Connection) Source(userID string) audio.FrameSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	if src, ok := c.sources[userID]; ok {
		return src
	}
	src := &userSource{
		conn:   c,
		userID: userID,
		frames: make(chan audio.AudioFrame, sourceBuffer),
	}
	c.sources[userID] = src
	return src
}

// detach removes and closes the source for userID, if attached.
func (c *Connection) detach(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	src, ok := c.sources[userID]
	if !ok {
		return
	}
	delete(c.sources, userID)
	if !src.closed {
		src.closed = true
		close(src.frames)
	}
}

// OnParticipantChange registers cb as the callback for participant
// join/leave events. Only one callback may be registered; subsequent calls
// replace the previous one.
func (c *Connection) OnParticipantChange(cb func(audio.Event)) {
	c.changeMu.Lock()
	defer c.changeMu.Unlock()
	c.changeCb = cb
}

// Disconnect tears down the voice connection and stops the receive loop.
// Safe to call more than once; subsequent calls return nil.
func (c *Connection) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		if c.removeHandler != nil {
			c.removeHandler()
		}
		if c.disconnectVC != nil {
			err = c.disconnectVC()
		}

		// Close all sources so downstream consumers see EOF.
		c.mu.Lock()
		for id, src := range c.sources {
			if !src.closed {
				src.closed = true
				close(src.frames)
			}
			delete(c.sources, id)
		}
		c.mu.Unlock()
	})
	return err
}

// recvLoop reads Opus packets from the Discord voice connection, decodes
// them, and delivers AudioFrames to the attached source for the speaking
// user. Frames are dropped rather than blocking when a source's buffer is
// full.
func (c *Connection) recvLoop() {
	// Each SSRC gets its own decoder to maintain state across frames.
	decoders := make(map[uint32]*opusDecoder)

	for {
		select {
		case <-c.done:
			return
		case pkt, ok := <-c.vc.OpusRecv:
			if !ok {
				return
			}
			if pkt == nil {
				continue
			}

			dec, exists := decoders[pkt.SSRC]
			if !exists {
				var err error
				dec, err = newOpusDecoder()
				if err != nil {
					slog.Error("discord: create opus decoder", "ssrc", pkt.SSRC, "error", err)
					continue
				}
				decoders[pkt.SSRC] = dec
			}

			c.mu.Lock()
			userID, mapped := c.ssrcUser[pkt.SSRC]
			if !mapped {
				userID = strconv.FormatUint(uint64(pkt.SSRC), 10)
			}
			src, attached := c.sources[userID]
			c.mu.Unlock()

			if !attached {
				continue
			}

			pcm, err := dec.decode(pkt.Opus)
			if err != nil {
				slog.Warn("discord: opus decode error", "ssrc", pkt.SSRC, "error", err)
				continue
			}

			frame := audio.AudioFrame{
				Data:       pcm,
				SampleRate: opusSampleRate,
				Channels:   opusChannels,
				Timestamp:  time.Duration(pkt.Timestamp) * time.Second / time.Duration(opusSampleRate),
			}

			select {
			case src.frames <- frame:
			default:
				// Source buffer full — drop rather than block the demux.
			}
		}
	}
}

// handleSpeakingUpdate records the SSRC to user-ID mapping Discord sends
// when a participant starts or stops speaking.
func (c *Connection) handleSpeakingUpdate(_ *discordgo.VoiceConnection, vs *discordgo.VoiceSpeakingUpdate) {
	if vs == nil || vs.UserID == "" {
		return
	}
	c.mu.Lock()
	c.ssrcUser[uint32(vs.SSRC)] = vs.UserID
	c.mu.Unlock()
}

// handleVoiceStateUpdate processes Discord VoiceStateUpdate events to detect
// participant joins and leaves for the voice channel this connection is on.
// A leaving participant's source is closed so an in-flight capture finalizes
// instead of hanging.
func (c *Connection) handleVoiceStateUpdate(_ *discordgo.Session, vsu *discordgo.VoiceStateUpdate) {
	if vsu.GuildID != c.guildID {
		return
	}

	channelID := c.vc.ChannelID

	// Participant left our channel.
	if vsu.BeforeUpdate != nil && vsu.BeforeUpdate.ChannelID == channelID && vsu.ChannelID != channelID {
		c.detach(vsu.UserID)
		c.emitEvent(audio.Event{
			Type:     audio.EventLeave,
			UserID:   vsu.UserID,
			Username: memberUsername(vsu),
		})
		return
	}

	// Participant joined our channel.
	if vsu.ChannelID == channelID && (vsu.BeforeUpdate == nil || vsu.BeforeUpdate.ChannelID != channelID) {
		c.emitEvent(audio.Event{
			Type:     audio.EventJoin,
			UserID:   vsu.UserID,
			Username: memberUsername(vsu),
		})
	}
}

// emitEvent safely invokes the registered participant change callback.
func (c *Connection) emitEvent(ev audio.Event) {
	c.changeMu.Lock()
	cb := c.changeCb
	c.changeMu.Unlock()
	if cb != nil {
		go cb(ev)
	}
}

func memberUsername(vsu *discordgo.VoiceStateUpdate) string {
	if vsu.Member != nil && vsu.Member.User != nil {
		return vsu.Member.User.Username
	}
	return ""
}
