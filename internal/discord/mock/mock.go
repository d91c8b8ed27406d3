// Package mock provides test doubles for Discord interaction testing.
package mock

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// InteractionResponder records interaction responses for test assertions.
type InteractionResponder struct {
	// Responses records all InteractionRespond calls.
	Responses []*discordgo.InteractionResponse

	// FollowUps records all FollowupMessageCreate calls.
	FollowUps []*discordgo.WebhookParams

	// Err is returned by InteractionRespond and FollowupMessageCreate
	// when non-nil, allowing error injection.
	Err error
}

// InteractionRespond records the response and returns the configured error.
func (m *InteractionResponder) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	m.Responses = append(m.Responses, resp)
	return m.Err
}

// FollowupMessageCreate records the follow-up and returns a stub message.
func (m *InteractionResponder) FollowupMessageCreate(i *discordgo.Interaction, wait bool, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	m.FollowUps = append(m.FollowUps, params)
	if m.Err != nil {
		return nil, m.Err
	}
	return &discordgo.Message{ID: "mock-followup"}, nil
}

// LastResponse returns the most recently recorded response, or nil.
func (m *InteractionResponder) LastResponse() *discordgo.InteractionResponse {
	if len(m.Responses) == 0 {
		return nil
	}
	return m.Responses[len(m.Responses)-1]
}

// LastFollowUp returns the most recently recorded follow-up, or nil.
func (m *InteractionResponder) LastFollowUp() *discordgo.WebhookParams {
	if len(m.FollowUps) == 0 {
		return nil
	}
	return m.FollowUps[len(m.FollowUps)-1]
}

// SentMessage records one ChannelMessageSendEmbed or edit call.
type SentMessage struct {
	ChannelID string
	MessageID string
	Embed     *discordgo.MessageEmbed
}

// ChannelMessenger is a recording implementation of the scoreboard's
// messenger interface.
type ChannelMessenger struct {
	mu sync.Mutex

	// Sends records every ChannelMessageSendEmbed call.
	Sends []SentMessage

	// Edits records every ChannelMessageEditEmbed call.
	Edits []SentMessage

	// Err is returned by both methods when non-nil.
	Err error

	nextID int
}

// ChannelMessageSendEmbed records the send and returns a message with a
// generated ID.
func (m *ChannelMessenger) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.nextID++
	id := fmt.Sprintf("msg-%d", m.nextID)
	m.Sends = append(m.Sends, SentMessage{ChannelID: channelID, MessageID: id, Embed: embed})
	return &discordgo.Message{ID: id, ChannelID: channelID}, nil
}

// ChannelMessageEditEmbed records the edit.
func (m *ChannelMessenger) ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.Edits = append(m.Edits, SentMessage{ChannelID: channelID, MessageID: messageID, Embed: embed})
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}
