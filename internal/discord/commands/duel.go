package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/twistvox/twistvox/internal/attempt"
	"github.com/twistvox/twistvox/internal/discord"
	"github.com/twistvox/twistvox/internal/game"
	"github.com/twistvox/twistvox/internal/observe"
	"github.com/twistvox/twistvox/internal/twister"
)

// duelAcceptPrefix routes the accept button custom ID "duel_accept:<duel-id>".
const duelAcceptPrefix = "duel_accept:"

// matchTimeout bounds a whole duel match including round delays.
const matchTimeout = 10 * time.Minute

// DuelCommands holds the dependencies for the /duel command group.
type DuelCommands struct {
	guildID string
	voices  *VoiceManager
	duels   *game.DuelCoordinator
	runner  *attempt.Runner
	metrics *observe.Metrics
}

// NewDuelCommands creates the command group and registers its handlers
// with the bot's router.
func NewDuelCommands(bot *discord.Bot, voices *VoiceManager, duels *game.DuelCoordinator, runner *attempt.Runner) *DuelCommands {
	dc := &DuelCommands{
		guildID: bot.GuildID(),
		voices:  voices,
		duels:   duels,
		runner:  runner,
		metrics: observe.DefaultMetrics(),
	}
	dc.Register(bot.Router())
	return dc
}

// Register registers the /duel command group with the router.
func (dc *DuelCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("duel", dc.Definition(), func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		discord.RespondEphemeral(s, i, "Please use a subcommand: `/duel challenge` or `/duel accept`.")
	})
	router.RegisterHandler("duel/challenge", dc.handleChallenge)
	router.RegisterHandler("duel/accept", dc.handleAccept)
	router.RegisterComponentPrefix(duelAcceptPrefix, dc.handleAcceptButton)
}

// Definition returns the ApplicationCommand definition for Discord.
func (dc *DuelCommands) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "duel",
		Description: "Head-to-head tongue twister duels",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "challenge",
				Description: "Challenge another player to a duel",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionUser,
						Name:        "opponent",
						Description: "The player to challenge",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "accept",
				Description: "Accept a pending duel challenge",
			},
		},
	}
}

func (dc *DuelCommands) handleChallenge(s *discordgo.Session, i *discordgo.InteractionCreate) {
	challengerID := interactionUserID(i)
	opponentID := optionUserID(subOptions(i.ApplicationCommandData()), "opponent")

	duel, err := dc.duels.Challenge(challengerID, opponentID)
	if err != nil {
		discord.RespondEphemeral(s, i, challengeErrorMessage(err))
		return
	}

	embed := discord.DuelChallengeEmbed(
		mention(challengerID), mention(opponentID),
		dc.duels.BestOf(), dc.duels.RoundsToWin(),
		dc.duels.AcceptTimeout(),
	)
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "Accept Duel",
							Style:    discordgo.SuccessButton,
							CustomID: duelAcceptPrefix + duel.ID,
						},
					},
				},
			},
		},
	})
	if err != nil {
		slog.Warn("duel challenge response failed", "duel_id", duel.ID, "err", err)
	}
}

// challengeErrorMessage maps coordinator errors to user-facing text.
func challengeErrorMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrSelfChallenge):
		return "❌ You can't duel yourself!"
	case errors.Is(err, game.ErrNotSharedChannel):
		return "❌ Both players must be in the same voice channel!"
	case errors.Is(err, game.ErrDuelPending):
		return "❌ One of you already has a pending duel!"
	default:
		return fmt.Sprintf("❌ Could not start the duel: %v", err)
	}
}

func (dc *DuelCommands) handleAccept(s *discordgo.Session, i *discordgo.InteractionCreate) {
	dc.accept(s, i, interactionUserID(i))
}

// handleAcceptButton accepts via the challenge message's button. Only the
// challenged player can consume the duel; anyone else gets the same
// not-found reply the coordinator produces.
func (dc *DuelCommands) handleAcceptButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	dc.accept(s, i, interactionUserID(i))
}

func (dc *DuelCommands) accept(s *discordgo.Session, i *discordgo.InteractionCreate, opponentID string) {
	duel, err := dc.duels.Accept(opponentID)
	if err != nil {
		discord.RespondEphemeral(s, i, "❌ You have no pending duel challenge, or it expired.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if _, joinErr := dc.voices.Join(ctx, duel.ChannelID); joinErr != nil {
		cancel()
		slog.Warn("duel voice join failed", "channel", duel.ChannelID, "err", joinErr)
		discord.RespondEphemeral(s, i, "❌ Failed to join the voice channel!")
		return
	}
	cancel()

	discord.Respond(s, i, fmt.Sprintf(
		"⚔️ **DUEL ACCEPTED!** %s vs %s. Best of %d. First to %d round wins takes it. Get ready!",
		mention(duel.ChallengerID), mention(duel.OpponentID),
		dc.duels.BestOf(), dc.duels.RoundsToWin(),
	))

	go dc.runMatch(s, i, duel)
}

// runMatch drives the accepted duel to completion and posts the results.
// It runs in its own goroutine so the interaction handler returns promptly.
func (dc *DuelCommands) runMatch(s *discordgo.Session, i *discordgo.InteractionCreate, duel game.PendingDuel) {
	defer dc.voices.Leave(duel.ChannelID)

	ctx, cancel := context.WithTimeout(context.Background(), matchTimeout)
	defer cancel()

	playTurn := func(ctx context.Context, playerID string, tw twister.TongueTwister, round int) (*game.AttemptResult, error) {
		discord.FollowUpEmbed(s, i, discord.DuelRoundEmbed(round, dc.duels.BestOf(), tw, mention(playerID)))

		src, err := dc.voices.Source(duel.ChannelID, playerID)
		if err != nil {
			return nil, err
		}
		turnCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		defer cancel()
		return dc.runner.RunAttempt(turnCtx, attempt.Request{
			PlayerID: playerID,
			Username: playerID,
			Twister:  tw,
			Source:   src,
			Mode:     "duel",
		})
	}

	observer := func(rr game.RoundResult) {
		discord.FollowUp(s, i, roundSummary(rr))
	}

	result, err := dc.duels.RunMatch(ctx, duel, playTurn, observer)
	if err != nil {
		slog.Warn("duel match aborted", "duel_id", duel.ID, "err", err)
		discord.FollowUp(s, i, "❌ The duel was cut short!")
		return
	}

	outcome := "decided"
	winnerMention := ""
	if result.WinnerID != "" {
		winnerMention = mention(result.WinnerID)
	} else {
		outcome = "tie"
	}
	dc.metrics.RecordDuelMatch(ctx, outcome)

	discord.FollowUpEmbed(s, i, discord.DuelCompleteEmbed(
		result, mention(result.ChallengerID), mention(result.OpponentID), winnerMention,
	))
}

// roundSummary renders one round's outcome as a channel message.
func roundSummary(rr game.RoundResult) string {
	line := func(who string, res *game.AttemptResult) string {
		if res == nil {
			return fmt.Sprintf("%s: no attempt (skipping round)", who)
		}
		return fmt.Sprintf("%s: **%d points** (%.1f%% accuracy, %.1fs)", who, res.Score, res.Accuracy, res.TimeSeconds)
	}

	verdict := "Round drawn!"
	if rr.WinnerID != "" {
		verdict = fmt.Sprintf("%s takes round %d!", mention(rr.WinnerID), rr.Round)
	}
	return fmt.Sprintf("**Round %d** - _%s_\n%s\n%s\n%s",
		rr.Round, rr.Twister.Text,
		line("Challenger", rr.Challenger),
		line("Opponent", rr.Opponent),
		verdict,
	)
}
