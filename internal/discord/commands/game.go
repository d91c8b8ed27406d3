package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/twistvox/twistvox/internal/attempt"
	"github.com/twistvox/twistvox/internal/discord"
	"github.com/twistvox/twistvox/internal/game"
	"github.com/twistvox/twistvox/internal/store"
	"github.com/twistvox/twistvox/internal/twister"
	"github.com/twistvox/twistvox/pkg/audio"
)

// attemptTimeout bounds one capture → transcribe → score round trip.
const attemptTimeout = 45 * time.Second

// difficultyChoices is shared by every command with a difficulty option.
var difficultyChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "Easy", Value: string(twister.Easy)},
	{Name: "Medium", Value: string(twister.Medium)},
	{Name: "Hard", Value: string(twister.Hard)},
	{Name: "Insane", Value: string(twister.Insane)},
}

// GameCommands holds the dependencies for the /twister command group.
type GameCommands struct {
	guildID  string
	voices   *VoiceManager
	registry *game.Registry
	corpus   *twister.Corpus
	runner   *attempt.Runner
	store    store.Store // nil when persistence is disabled

	// timedTotal is the number of twisters in one timed challenge.
	timedTotal int
}

// GameCommandsConfig wires a GameCommands.
type GameCommandsConfig struct {
	GuildID    string
	Voices     *VoiceManager
	Registry   *game.Registry
	Corpus     *twister.Corpus
	Runner     *attempt.Runner
	Store      store.Store
	TimedTotal int
}

// NewGameCommands creates the command group and registers its handlers
// with the bot's router.
func NewGameCommands(bot *discord.Bot, cfg GameCommandsConfig) *GameCommands {
	gc := &GameCommands{
		guildID:    cfg.GuildID,
		voices:     cfg.Voices,
		registry:   cfg.Registry,
		corpus:     cfg.Corpus,
		runner:     cfg.Runner,
		store:      cfg.Store,
		timedTotal: cfg.TimedTotal,
	}
	if gc.timedTotal <= 0 {
		gc.timedTotal = 10
	}
	gc.Register(bot.Router())
	return gc
}

// SetVoices wires the voice manager after construction. The manager's
// participant callback typically points back at [GameCommands.HandleVoiceEvent],
// so the two are created in sequence.
func (gc *GameCommands) SetVoices(voices *VoiceManager) {
	gc.voices = voices
}

// Register registers the /twister command group with the router.
func (gc *GameCommands) Register(router *discord.CommandRouter) {
	def := gc.Definition()
	router.RegisterCommand("twister", def, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		discord.RespondEphemeral(s, i, "Please use a subcommand, e.g. `/twister join` or `/twister start`.")
	})
	router.RegisterHandler("twister/join", gc.handleJoin)
	router.RegisterHandler("twister/leave", gc.handleLeave)
	router.RegisterHandler("twister/start", gc.handleStart)
	router.RegisterHandler("twister/practice", gc.handlePractice)
	router.RegisterHandler("twister/challenge", gc.handleChallenge)
	router.RegisterHandler("twister/daily", gc.handleDaily)
	router.RegisterHandler("twister/list", gc.handleList)
	router.RegisterHandler("twister/custom-add", gc.handleCustomAdd)
	router.RegisterHandler("twister/custom-list", gc.handleCustomList)
	router.RegisterAutocomplete("twister/practice", gc.autocompleteTwister)
}

// Definition returns the ApplicationCommand definition for Discord.
func (gc *GameCommands) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "twister",
		Description: "Tongue twister voice games",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "join",
				Description: "Join your voice channel and start a session",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "leave",
				Description: "End your session and leave the voice channel",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "start",
				Description: "Start a random tongue twister challenge",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "difficulty",
						Description: "Difficulty level (default: random)",
						Choices:     difficultyChoices,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "practice",
				Description: "Practice a specific tongue twister (no scoring)",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:         discordgo.ApplicationCommandOptionInteger,
						Name:         "id",
						Description:  "Tongue twister ID",
						Required:     true,
						Autocomplete: true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "challenge",
				Description: "Timed challenge: a run of twisters with escalating difficulty",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "daily",
				Description: "Attempt today's shared daily twister",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "View all tongue twisters",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "difficulty",
						Description: "Filter by difficulty",
						Choices:     difficultyChoices,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "custom-add",
				Description: "Add a custom tongue twister",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "text",
						Description: "The tongue twister text",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "difficulty",
						Description: "Difficulty level (default: estimated from length)",
						Choices:     difficultyChoices,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "custom-list",
				Description: "View custom tongue twisters",
			},
		},
	}
}

// voiceChannelOf returns the voice channel the user occupies, or "".
func (gc *GameCommands) voiceChannelOf(s *discordgo.Session, userID string) string {
	vs, err := s.State.VoiceState(gc.guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

// HandleVoiceEvent ends the session of a player who left a channel the bot
// is listening in. Wired as the VoiceManager's event callback.
func (gc *GameCommands) HandleVoiceEvent(channelID string, ev audio.Event) {
	if ev.Type != audio.EventLeave {
		return
	}
	view, err := gc.registry.End(ev.UserID, channelID)
	if err != nil {
		return
	}
	slog.Info("session ended, player left voice",
		"player", ev.UserID,
		"channel", channelID,
		"attempts", view.Attempts,
	)
	gc.persistSessionEnd(view)
	gc.voices.Leave(channelID)
}

func (gc *GameCommands) handleJoin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	channelID := gc.voiceChannelOf(s, userID)
	if channelID == "" {
		discord.RespondEphemeral(s, i, "❌ You must be in a voice channel to use this command!")
		return
	}

	sess, err := gc.registry.Join(userID, channelID, gc.guildID, game.ModePractice)
	if err != nil {
		discord.RespondEphemeral(s, i, "❌ You already have an active session in this channel!")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := gc.voices.Join(ctx, channelID); err != nil {
		if _, endErr := gc.registry.End(userID, channelID); endErr != nil {
			slog.Warn("session cleanup after failed join", "err", endErr)
		}
		slog.Warn("voice join failed", "channel", channelID, "err", err)
		discord.RespondEphemeral(s, i, "❌ Failed to join voice channel. Check bot permissions!")
		return
	}

	if gc.store != nil {
		err := gc.store.CreateSession(ctx, store.SessionRecord{
			ID:        sess.ID,
			PlayerID:  userID,
			GuildID:   gc.guildID,
			ChannelID: channelID,
			Mode:      string(game.ModePractice),
			StartedAt: sess.StartedAt,
		})
		if err != nil {
			slog.Warn("session record failed", "session", sess.ID, "err", err)
		}
	}

	channelName := channelID
	if ch, err := s.State.Channel(channelID); err == nil {
		channelName = ch.Name
	}
	discord.RespondEmbed(s, i, discord.SessionStartedEmbed(channelName, interactionDisplayName(i)))
}

func (gc *GameCommands) handleLeave(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	channelID := gc.voiceChannelOf(s, userID)
	if channelID == "" {
		discord.RespondEphemeral(s, i, "❌ You're not in a voice channel!")
		return
	}

	view, err := gc.registry.End(userID, channelID)
	if err != nil {
		discord.RespondEphemeral(s, i, "❌ You don't have an active session!")
		return
	}

	gc.persistSessionEnd(view)
	gc.voices.Leave(channelID)
	discord.RespondEmbed(s, i, discord.SessionEndedEmbed(view))
}

func (gc *GameCommands) persistSessionEnd(view game.SessionView) {
	if gc.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := gc.store.EndSession(ctx, view.ID, view.Attempts, view.TotalScore); err != nil {
		slog.Warn("session end record failed", "session", view.ID, "err", err)
	}
}

func (gc *GameCommands) handleStart(s *discordgo.Session, i *discordgo.InteractionCreate) {
	difficulty := twister.Difficulty(optionString(subOptions(i.ApplicationCommandData()), "difficulty"))
	tw := gc.corpus.Random(difficulty)
	gc.runSingleAttempt(s, i, tw, "challenge", false)
}

func (gc *GameCommands) handlePractice(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := optionInt(subOptions(i.ApplicationCommandData()), "id")
	tw, ok := gc.corpus.ByID(id)
	if !ok {
		discord.RespondEphemeral(s, i, fmt.Sprintf("❌ Tongue twister #%d not found!", id))
		return
	}
	gc.runSingleAttempt(s, i, tw, "practice", true)
}

// runSingleAttempt is the shared flow behind /twister start, practice, and
// daily: announce the twister, capture and score one attempt, report it.
func (gc *GameCommands) runSingleAttempt(s *discordgo.Session, i *discordgo.InteractionCreate, tw twister.TongueTwister, mode string, practice bool) {
	userID := interactionUserID(i)
	channelID := gc.voiceChannelOf(s, userID)
	if channelID == "" {
		discord.RespondEphemeral(s, i, "❌ You must be in a voice channel!")
		return
	}

	sess, err := gc.registry.Get(userID, channelID)
	if err != nil {
		discord.RespondEphemeral(s, i, "❌ You must join a session first with `/twister join`!")
		return
	}
	if err := sess.BeginAttempt(tw.ID); err != nil {
		discord.RespondEphemeral(s, i, "❌ An attempt is already in progress. Finish it first!")
		return
	}

	src, err := gc.voices.Source(channelID, userID)
	if err != nil {
		sess.AbortAttempt()
		discord.RespondEphemeral(s, i, "❌ Voice connection lost! Rejoin with `/twister join`.")
		return
	}

	discord.RespondEmbed(s, i, discord.ChallengeEmbed(tw, practice))

	ctx, cancel := context.WithTimeout(context.Background(), attemptTimeout)
	defer cancel()

	var day time.Time
	if mode == "daily" {
		day = time.Now().UTC().Truncate(24 * time.Hour)
	}

	result, err := gc.runner.RunAttempt(ctx, attempt.Request{
		PlayerID: userID,
		Username: interactionDisplayName(i),
		Twister:  tw,
		Source:   src,
		Mode:     mode,
		Practice: practice,
		Day:      day,
	})
	if err != nil {
		sess.AbortAttempt()
		discord.FollowUpEphemeral(s, i, attemptErrorMessage(err))
		return
	}

	if err := sess.RecordAttempt(*result); err != nil {
		slog.Warn("record attempt", "session", sess.ID, "err", err)
	}

	embed := discord.ResultsEmbed(result, tw, practice)
	if mode == "daily" {
		if rank := gc.dailyRank(ctx, userID, day); rank > 0 {
			embed.Footer = &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf("Daily Challenge Rank: #%d | Try again tomorrow for a new challenge!", rank),
			}
		}
	}
	discord.FollowUpEmbed(s, i, embed)
}

func (gc *GameCommands) handleDaily(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if gc.store == nil {
		discord.RespondEphemeral(s, i, "❌ The daily challenge needs persistence, which is disabled on this deployment.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	day := time.Now().UTC().Truncate(24 * time.Hour)
	twID, err := gc.store.DailyTwister(ctx, day, func() int { return gc.corpus.Random("").ID })
	if err != nil {
		slog.Warn("daily twister lookup failed", "err", err)
		discord.RespondEphemeral(s, i, "❌ Could not load today's challenge. Try again later.")
		return
	}
	tw, ok := gc.corpus.ByID(twID)
	if !ok {
		discord.RespondEphemeral(s, i, "❌ Today's twister is missing from the corpus!")
		return
	}

	gc.runSingleAttempt(s, i, tw, "daily", false)
}

// dailyRank finds the player's current standing for the day, 0 if absent.
func (gc *GameCommands) dailyRank(ctx context.Context, playerID string, day time.Time) int {
	standings, err := gc.store.DailyStandings(ctx, day, 0)
	if err != nil {
		slog.Warn("daily standings lookup failed", "err", err)
		return 0
	}
	for _, st := range standings {
		if st.PlayerID == playerID {
			return st.Rank
		}
	}
	return 0
}

func (gc *GameCommands) handleChallenge(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	channelID := gc.voiceChannelOf(s, userID)
	if channelID == "" {
		discord.RespondEphemeral(s, i, "❌ You must be in a voice channel!")
		return
	}

	sess, err := gc.registry.Get(userID, channelID)
	if err != nil {
		discord.RespondEphemeral(s, i, "❌ You must join a session first with `/twister join`!")
		return
	}
	sess.SetMode(game.ModeTimedChallenge, gc.timedTotal)

	bestBefore := gc.bestScore(userID)

	discord.Respond(s, i, fmt.Sprintf(
		"⚡ **TIMED CHALLENGE MODE** ⚡\n\nComplete %d tongue twisters as fast and accurately as possible!\n\nRules:\n• Mixed difficulties, easy to hard\n• Cumulative score\n• Results added to leaderboard\n\nStarting in 3... 2... 1... GO!",
		gc.timedTotal,
	))
	time.Sleep(3 * time.Second)

	scoreboard := discord.NewScoreboard(s, i.ChannelID)
	cumulative := 0
	var results []game.AttemptResult

	for n := range gc.timedTotal {
		tw := gc.corpus.Random(game.ChallengeDifficulty(n, gc.timedTotal))
		scoreboard.Update(discord.ChallengeProgressEmbed(n+1, gc.timedTotal, tw, cumulative))

		if err := sess.BeginAttempt(tw.ID); err != nil {
			slog.Warn("challenge begin attempt", "session", sess.ID, "err", err)
			break
		}

		src, err := gc.voices.Source(channelID, userID)
		if err != nil {
			sess.AbortAttempt()
			discord.FollowUpEphemeral(s, i, "❌ Voice connection lost!")
			break
		}

		ctx, cancel := context.WithTimeout(context.Background(), attemptTimeout)
		result, err := gc.runner.RunAttempt(ctx, attempt.Request{
			PlayerID: userID,
			Username: interactionDisplayName(i),
			Twister:  tw,
			Source:   src,
			Mode:     "timed",
		})
		cancel()
		if err != nil {
			sess.AbortAttempt()
			discord.FollowUpEphemeral(s, i, attemptErrorMessage(err)+" Skipping...")
			continue
		}

		if err := sess.RecordAttempt(*result); err != nil {
			slog.Warn("record attempt", "session", sess.ID, "err", err)
		}
		cumulative += result.Score
		results = append(results, *result)

		discord.FollowUp(s, i, fmt.Sprintf(
			"%s: **%d points** (%.1f%% accuracy, %.1fs)",
			mention(userID), result.Score, result.Accuracy, result.TimeSeconds,
		))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rank := gc.playerRank(ctx, userID)
	personalBest := gc.store != nil && cumulative > 0 && cumulative > bestBefore
	discord.FollowUpEmbed(s, i, discord.ChallengeCompleteEmbed(results, cumulative, personalBest, rank))
}

// bestScore returns the player's stored best score, or -1 when unknown.
func (gc *GameCommands) bestScore(playerID string) int {
	if gc.store == nil {
		return -1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stats, err := gc.store.PlayerStats(ctx, playerID)
	if err != nil {
		return -1
	}
	return stats.BestScore
}

func (gc *GameCommands) playerRank(ctx context.Context, playerID string) int {
	if gc.store == nil {
		return 0
	}
	rank, err := gc.store.PlayerRank(ctx, playerID)
	if err != nil {
		return 0
	}
	return rank
}

func (gc *GameCommands) handleList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	difficulty := twister.Difficulty(optionString(subOptions(i.ApplicationCommandData()), "difficulty"))

	var twisters []twister.TongueTwister
	if difficulty.IsValid() {
		twisters = gc.corpus.ByDifficulty(difficulty)
	} else {
		twisters = gc.corpus.All()
	}
	discord.RespondEmbed(s, i, discord.TwisterListEmbed(twisters, difficulty))
}

func (gc *GameCommands) handleCustomAdd(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := subOptions(i.ApplicationCommandData())
	text := optionString(opts, "text")
	difficulty := twister.Difficulty(optionString(opts, "difficulty"))

	tw, err := twister.NewCustom(text, difficulty)
	if err != nil {
		discord.RespondEphemeral(s, i, fmt.Sprintf("❌ %v", err))
		return
	}

	if gc.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stored, err := gc.store.AddCustomTwister(ctx, tw, interactionUserID(i))
		if err != nil {
			slog.Warn("custom twister store failed", "err", err)
			discord.RespondEphemeral(s, i, "❌ Could not save your twister. Try again later.")
			return
		}
		tw = stored
		if err := gc.corpus.Register(tw); err != nil {
			slog.Warn("custom twister register failed", "id", tw.ID, "err", err)
		}
	} else {
		tw, err = gc.corpus.Add(text, difficulty)
		if err != nil {
			discord.RespondEphemeral(s, i, fmt.Sprintf("❌ %v", err))
			return
		}
	}

	discord.RespondEmbed(s, i, discord.CustomTwisterAddedEmbed(tw))
}

func (gc *GameCommands) handleCustomList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if gc.store == nil {
		discord.RespondEphemeral(s, i, "❌ No custom tongue twisters found!")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	customs, err := gc.store.CustomTwisters(ctx)
	if err != nil {
		slog.Warn("custom twister list failed", "err", err)
		discord.RespondEphemeral(s, i, "❌ Could not load custom twisters.")
		return
	}
	if len(customs) == 0 {
		discord.RespondEphemeral(s, i, "❌ No custom tongue twisters found!")
		return
	}
	embed := discord.TwisterListEmbed(customs, "")
	embed.Title = "📜 Custom Tongue Twisters"
	discord.RespondEmbed(s, i, embed)
}

// autocompleteTwister suggests corpus entries matching the typed prefix for
// the /twister practice id option.
func (gc *GameCommands) autocompleteTwister(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := subOptions(i.ApplicationCommandData())
	var typed string
	for _, o := range opts {
		if o.Name == "id" && o.Focused {
			typed = fmt.Sprintf("%v", o.Value)
		}
	}

	all := gc.corpus.All()
	sort.Slice(all, func(a, b int) bool { return all[a].ID < all[b].ID })

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, tw := range all {
		label := fmt.Sprintf("#%d %s", tw.ID, tw.Text)
		if len(label) > 100 {
			label = label[:97] + "..."
		}
		if typed != "" && !strings.Contains(fmt.Sprint(tw.ID), typed) && !strings.Contains(strings.ToLower(tw.Text), strings.ToLower(typed)) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  label,
			Value: tw.ID,
		})
		if len(choices) == 25 {
			break
		}
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		slog.Warn("autocomplete response failed", "err", err)
	}
}
