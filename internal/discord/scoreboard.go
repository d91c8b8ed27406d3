package discord

import (
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// ChannelMessenger is the subset of the discordgo session the scoreboard
// needs, extracted so tests can substitute a recorder.
type ChannelMessenger interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Scoreboard maintains one embed message in a text channel and edits it in
// place as a timed challenge progresses, so the channel sees a single
// live-updating scoreboard instead of ten separate progress posts.
//
// Updates are driven by the challenge loop, one per attempt; there is no
// ticker. Send failures are logged and swallowed, a lost scoreboard must
// not abort the run.
type Scoreboard struct {
	mu        sync.Mutex
	messenger ChannelMessenger
	channelID string
	messageID string
}

// NewScoreboard creates a scoreboard posting into channelID.
func NewScoreboard(messenger ChannelMessenger, channelID string) *Scoreboard {
	return &Scoreboard{
		messenger: messenger,
		channelID: channelID,
	}
}

// Update creates the scoreboard message on first call and edits it in
// place afterwards.
func (sb *Scoreboard) Update(embed *discordgo.MessageEmbed) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.messageID == "" {
		msg, err := sb.messenger.ChannelMessageSendEmbed(sb.channelID, embed)
		if err != nil {
			slog.Warn("scoreboard: failed to create message", "channel", sb.channelID, "err", err)
			return
		}
		sb.messageID = msg.ID
		slog.Debug("scoreboard: created message", "message_id", msg.ID, "channel", sb.channelID)
		return
	}

	if _, err := sb.messenger.ChannelMessageEditEmbed(sb.channelID, sb.messageID, embed); err != nil {
		slog.Warn("scoreboard: failed to edit message", "message_id", sb.messageID, "err", err)
	}
}

// MessageID returns the posted message's ID, or "" before the first Update.
func (sb *Scoreboard) MessageID() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.messageID
}
