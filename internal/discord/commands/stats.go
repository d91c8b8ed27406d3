package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/twistvox/twistvox/internal/discord"
	"github.com/twistvox/twistvox/internal/store"
	"github.com/twistvox/twistvox/internal/twister"
)

// StatsCommands holds the dependencies for /stats and /leaderboard.
type StatsCommands struct {
	store store.Store
}

// NewStatsCommands creates the command group and registers its handlers
// with the bot's router.
func NewStatsCommands(bot *discord.Bot, st store.Store) *StatsCommands {
	sc := &StatsCommands{store: st}
	sc.Register(bot.Router())
	return sc
}

// Register registers /stats and /leaderboard with the router.
func (sc *StatsCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("stats", sc.statsDefinition(), sc.handleStats)
	router.RegisterCommand("leaderboard", sc.leaderboardDefinition(), sc.handleLeaderboard)
}

func (sc *StatsCommands) statsDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "stats",
		Description: "View tongue twister statistics",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "The player to look up (default: you)",
			},
		},
	}
}

func (sc *StatsCommands) leaderboardDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "leaderboard",
		Description: "View the tongue twister leaderboard",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "difficulty",
				Description: "Rank by one difficulty tier only",
				Choices:     difficultyChoices,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "period",
				Description: "Ranking period (default: all-time)",
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "All time", Value: "all-time"},
					{Name: "Today", Value: "today"},
				},
			},
		},
	}
}

func (sc *StatsCommands) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if sc.store == nil {
		discord.RespondEphemeral(s, i, "❌ Statistics need persistence, which is disabled on this deployment.")
		return
	}

	targetID := optionUserID(i.ApplicationCommandData().Options, "user")
	displayName := ""
	if targetID == "" {
		targetID = interactionUserID(i)
		displayName = interactionDisplayName(i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := sc.store.PlayerStats(ctx, targetID)
	if errors.Is(err, store.ErrPlayerNotFound) {
		discord.RespondEphemeral(s, i, "❌ No stats yet! Play a game first with `/twister start`.")
		return
	}
	if err != nil {
		slog.Warn("player stats lookup failed", "player", targetID, "err", err)
		discord.RespondEphemeral(s, i, "❌ Could not load statistics. Try again later.")
		return
	}
	if displayName == "" {
		displayName = stats.Username
	}

	discord.RespondEmbed(s, i, discord.StatsEmbed(displayName, stats))
}

func (sc *StatsCommands) handleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if sc.store == nil {
		discord.RespondEphemeral(s, i, "❌ The leaderboard needs persistence, which is disabled on this deployment.")
		return
	}

	opts := i.ApplicationCommandData().Options
	difficulty := twister.Difficulty(optionString(opts, "difficulty"))
	period := optionString(opts, "period")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if period == "today" {
		sc.respondDailyStandings(ctx, s, i)
		return
	}

	entries, err := sc.store.Leaderboard(ctx, store.LeaderboardOpts{Difficulty: difficulty, Limit: 10})
	if err != nil {
		slog.Warn("leaderboard lookup failed", "err", err)
		discord.RespondEphemeral(s, i, "❌ Could not load the leaderboard. Try again later.")
		return
	}

	userRank := 0
	if rank, err := sc.store.PlayerRank(ctx, interactionUserID(i)); err == nil {
		userRank = rank
	}

	discord.RespondEmbed(s, i, discord.LeaderboardEmbed(entries, difficulty, userRank))
}

func (sc *StatsCommands) respondDailyStandings(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	day := time.Now().UTC().Truncate(24 * time.Hour)
	standings, err := sc.store.DailyStandings(ctx, day, 10)
	if err != nil {
		slog.Warn("daily standings lookup failed", "err", err)
		discord.RespondEphemeral(s, i, "❌ Could not load today's standings. Try again later.")
		return
	}
	discord.RespondEmbed(s, i, discord.DailyStandingsEmbed(day, standings))
}
