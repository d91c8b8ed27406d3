package commands

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/twistvox/twistvox/internal/capture"
	"github.com/twistvox/twistvox/internal/resilience"
	"github.com/twistvox/twistvox/pkg/provider/stt"
)

// interactionUserID extracts the user ID from an interaction, handling
// both guild (Member) and DM (User) contexts.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// interactionDisplayName returns the name to show and persist for the
// interaction author.
func interactionDisplayName(i *discordgo.InteractionCreate) string {
	if i.Member != nil {
		if i.Member.Nick != "" {
			return i.Member.Nick
		}
		if i.Member.User != nil {
			return i.Member.User.Username
		}
	}
	if i.User != nil {
		return i.User.Username
	}
	return "Unknown"
}

// subOptions returns the options of the first subcommand, or the top-level
// options when the command has no subcommands.
func subOptions(data discordgo.ApplicationCommandInteractionData) []*discordgo.ApplicationCommandInteractionDataOption {
	if len(data.Options) > 0 && data.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return data.Options[0].Options
	}
	return data.Options
}

// optionString returns the named string option, or "" when absent.
func optionString(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, o := range opts {
		if o.Name == name {
			return o.StringValue()
		}
	}
	return ""
}

// optionInt returns the named integer option, or 0 when absent.
func optionInt(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) int {
	for _, o := range opts {
		if o.Name == name {
			return int(o.IntValue())
		}
	}
	return 0
}

// optionUserID returns the named user option's ID, or "" when absent.
func optionUserID(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, o := range opts {
		if o.Name == name {
			if v, ok := o.Value.(string); ok {
				return v
			}
		}
	}
	return ""
}

// mention formats a user ID as a Discord mention.
func mention(userID string) string {
	return "<@" + userID + ">"
}

// attemptErrorMessage maps pipeline failures to the player-facing text.
func attemptErrorMessage(err error) string {
	switch {
	case errors.Is(err, capture.ErrNoSpeech):
		return "❌ I didn't hear anything. Make sure your microphone is working!"
	case errors.Is(err, stt.ErrTranscriptionFailed), errors.Is(err, resilience.ErrAllFailed):
		return "❌ Could not understand your speech. Try speaking more clearly!"
	case errors.Is(err, context.DeadlineExceeded):
		return "❌ Time's up! Try again."
	default:
		return "❌ Something went wrong processing your attempt. Try again!"
	}
}
