package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/twistvox/twistvox/internal/game"
	"github.com/twistvox/twistvox/internal/store"
	"github.com/twistvox/twistvox/internal/twister"
)

// Embed sidebar colors.
const (
	embedColorGreen  = 0x2ECC71
	embedColorOrange = 0xE67E22
	embedColorBlue   = 0x3498DB
	embedColorPurple = 0x9B59B6
	embedColorRed    = 0xE74C3C
	embedColorGold   = 0xF1C40F
)

// maxMistakesShown caps the mistake list in a results embed.
const maxMistakesShown = 5

// capitalize upper-cases the first byte of a difficulty name for display.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// SessionStartedEmbed announces a freshly joined session.
func SessionStartedEmbed(channelName, playerName string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "🎤 Tongue Twister Session Started!",
		Color: embedColorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Voice Channel", Value: channelName},
			{Name: "Player", Value: playerName},
			{
				Name: "Available Commands",
				Value: "• `/twister start` - Random twister\n" +
					"• `/twister practice` - Practice a specific twister\n" +
					"• `/twister challenge` - Timed challenge\n" +
					"• `/twister daily` - Today's shared twister\n" +
					"• `/twister list` - See all tongue twisters",
			},
		},
	}
}

// ChallengeEmbed presents the twister the player must now say.
func ChallengeEmbed(tw twister.TongueTwister, practice bool) *discordgo.MessageEmbed {
	title := "🎤 Tongue Twister Challenge!"
	color := embedColorOrange
	footer := "I'm listening..."
	if practice {
		title = "🎯 Practice Mode"
		color = embedColorBlue
		footer = "No score tracking in practice mode. Take your time!"
	}

	return &discordgo.MessageEmbed{
		Title: title,
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Difficulty", Value: capitalize(string(tw.Difficulty)), Inline: true},
			{Name: "Twister ID", Value: fmt.Sprintf("#%d", tw.ID), Inline: true},
			{Name: "Ready? Say this as fast as you can:", Value: fmt.Sprintf("**%q**", tw.Text)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: footer},
	}
}

// ResultsEmbed renders a scored attempt.
func ResultsEmbed(result *game.AttemptResult, tw twister.TongueTwister, practice bool) *discordgo.MessageEmbed {
	color := embedColorOrange
	if result.Successful() {
		color = embedColorGreen
	}

	scoreField := fmt.Sprintf("**%d points!** 🎉", result.Score)
	if practice {
		scoreField = "Practice mode (no scoring)"
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "You said:", Value: fmt.Sprintf("*%s*", result.SpokenText)},
		{Name: "Target:", Value: fmt.Sprintf("**%s**", tw.Text)},
		{Name: "Accuracy", Value: fmt.Sprintf("%.1f%%", result.Accuracy), Inline: true},
		{Name: "Time", Value: fmt.Sprintf("%.1fs", result.TimeSeconds), Inline: true},
		{Name: "Difficulty", Value: capitalize(string(tw.Difficulty)), Inline: true},
		{Name: "Score", Value: scoreField},
	}

	if len(result.Mistakes) > 0 {
		var b strings.Builder
		for idx, m := range result.Mistakes {
			if idx == maxMistakesShown {
				fmt.Fprintf(&b, "• ... and %d more", len(result.Mistakes)-maxMistakesShown)
				break
			}
			fmt.Fprintf(&b, "• %s\n", m)
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Mistakes",
			Value: strings.TrimRight(b.String(), "\n"),
		})
	}

	title := "✅ Nice Try!"
	if practice {
		title = "🎯 Practice Results"
	}

	return &discordgo.MessageEmbed{
		Title:  title,
		Color:  color,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Try again? Use /twister start for another challenge!",
		},
	}
}

// TwisterListEmbed lists the corpus grouped by difficulty.
func TwisterListEmbed(twisters []twister.TongueTwister, filter twister.Difficulty) *discordgo.MessageEmbed {
	title := "📜 Tongue Twister Library"
	if filter != "" {
		title += " - " + capitalize(string(filter))
	}

	byDifficulty := make(map[twister.Difficulty][]twister.TongueTwister)
	for _, tw := range twisters {
		byDifficulty[tw.Difficulty] = append(byDifficulty[tw.Difficulty], tw)
	}

	var fields []*discordgo.MessageEmbedField
	for _, d := range []twister.Difficulty{
		twister.Easy, twister.Medium, twister.Hard, twister.Insane,
	} {
		group := byDifficulty[d]
		if len(group) == 0 {
			continue
		}
		var b strings.Builder
		for _, tw := range group {
			fmt.Fprintf(&b, "%d. %s\n", tw.ID, tw.Text)
		}
		value := strings.TrimRight(b.String(), "\n")
		if len(value) > 1024 {
			value = value[:1024]
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s (%d)", capitalize(string(d)), len(group)),
			Value: value,
		})
	}

	return &discordgo.MessageEmbed{
		Title:  title,
		Color:  embedColorBlue,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Use /twister practice id:<id> to practice a specific twister!",
		},
	}
}

// SessionEndedEmbed summarises a finished session.
func SessionEndedEmbed(view game.SessionView) *discordgo.MessageEmbed {
	successRate := 0.0
	if view.Attempts > 0 {
		successRate = float64(view.SuccessfulAttempts) / float64(view.Attempts) * 100
	}

	return &discordgo.MessageEmbed{
		Title: "👋 Session Ended",
		Color: embedColorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Session Stats",
				Value: fmt.Sprintf(
					"**Attempts:** %d\n**Success Rate:** %.1f%% (%d/%d)\n**Total Score:** %d points",
					view.Attempts, successRate, view.SuccessfulAttempts, view.Attempts, view.TotalScore,
				),
			},
			{
				Name:   "Duration",
				Value:  view.EndedAt.Sub(view.StartedAt).Truncate(time.Second).String(),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Thanks for playing! See you next time! 🎉"},
	}
}

// ChallengeProgressEmbed shows the next twister in a timed challenge.
func ChallengeProgressEmbed(current, total int, tw twister.TongueTwister, cumulativeScore int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "⚡ TIMED CHALLENGE MODE ⚡",
		Description: fmt.Sprintf("**Twister %d/%d**", current, total),
		Color:       embedColorPurple,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Difficulty", Value: capitalize(string(tw.Difficulty)), Inline: true},
			{Name: "Cumulative Score", Value: fmt.Sprintf("%d points", cumulativeScore), Inline: true},
			{Name: "Say this:", Value: fmt.Sprintf("**%q**", tw.Text)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "I'm listening..."},
	}
}

// ChallengeCompleteEmbed summarises a finished timed challenge.
func ChallengeCompleteEmbed(results []game.AttemptResult, totalScore int, personalBest bool, rank int) *discordgo.MessageEmbed {
	var totalTime, accuracySum float64
	successful := 0
	for _, r := range results {
		totalTime += r.TimeSeconds
		accuracySum += r.Accuracy
		if r.Successful() {
			successful++
		}
	}
	avgAccuracy := 0.0
	successRate := 0.0
	if len(results) > 0 {
		avgAccuracy = accuracySum / float64(len(results))
		successRate = float64(successful) / float64(len(results)) * 100
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name: "📊 Final Stats",
			Value: fmt.Sprintf(
				"**Total Score:** %d points\n**Average Accuracy:** %.1f%%\n**Total Time:** %.1fs\n**Success Rate:** %.1f%% (%d/%d)",
				totalScore, avgAccuracy, totalTime, successRate, successful, len(results),
			),
		},
	}
	if personalBest {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "🎖️ Achievement", Value: "**New Personal Best!** 🎉", Inline: true,
		})
	}
	if rank > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "📈 Server Rank", Value: fmt.Sprintf("**#%d**", rank), Inline: true,
		})
	}

	return &discordgo.MessageEmbed{
		Title:  "🏆 CHALLENGE COMPLETE! 🏆",
		Color:  embedColorGold,
		Fields: fields,
	}
}

// DailyChallengeEmbed presents today's shared twister.
func DailyChallengeEmbed(tw twister.TongueTwister) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "📅 Daily Challenge",
		Description: "Today's tongue twister for everyone!",
		Color:       embedColorPurple,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Difficulty", Value: capitalize(string(tw.Difficulty)), Inline: true},
			{Name: "Twister ID", Value: fmt.Sprintf("#%d", tw.ID), Inline: true},
			{Name: "Say this:", Value: fmt.Sprintf("**%q**", tw.Text)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "I'm listening..."},
	}
}

// StatsEmbed renders a player's statistics.
func StatsEmbed(displayName string, stats *store.PlayerStats) *discordgo.MessageEmbed {
	avgScore := 0.0
	if stats.TotalAttempts > 0 {
		avgScore = float64(stats.TotalScore) / float64(stats.TotalAttempts)
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name: "Overall Performance",
			Value: fmt.Sprintf(
				"**Total Attempts:** %d\n**Success Rate:** %.1f%% (%d/%d)\n**Total Score:** %d points\n**Average Score:** %.0f points per attempt",
				stats.TotalAttempts, stats.SuccessRate(), stats.SuccessfulAttempts,
				stats.TotalAttempts, stats.TotalScore, avgScore,
			),
		},
	}

	fastest := "N/A"
	if stats.FastestTime > 0 {
		fastest = fmt.Sprintf("%.1fs", stats.FastestTime.Seconds())
	}
	bestTwister := "N/A"
	if stats.BestScoreTwisterID > 0 {
		bestTwister = fmt.Sprintf("#%d", stats.BestScoreTwisterID)
	}
	fields = append(fields, &discordgo.MessageEmbedField{
		Name: "Personal Bests",
		Value: fmt.Sprintf(
			"**Highest Score:** %d points\n**Fastest Time:** %s\n**Best Twister:** %s",
			stats.BestScore, fastest, bestTwister,
		),
	})

	var b strings.Builder
	for _, d := range []twister.Difficulty{
		twister.Easy, twister.Medium, twister.Hard, twister.Insane,
	} {
		ds, ok := stats.ByDifficulty[d]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "**%s:** %.1f%% accuracy (%d attempts)\n",
			capitalize(string(d)), ds.AvgAccuracy, ds.Attempts)
	}
	if b.Len() > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "By Difficulty",
			Value: strings.TrimRight(b.String(), "\n"),
		})
	}

	footer := "Last played: never"
	if !stats.LastPlayed.IsZero() {
		footer = "Last played: " + stats.LastPlayed.Format("2006-01-02 15:04 MST")
	}

	return &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("📊 %s's Statistics", displayName),
		Color:  embedColorBlue,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{Text: footer},
	}
}

// leaderboardMedals decorate the top three rows.
var leaderboardMedals = []string{"👑", "🥈", "🥉"}

// LeaderboardEmbed renders the score table. userRank is the invoking
// player's own rank, shown in the footer; 0 means unranked.
func LeaderboardEmbed(entries []store.LeaderboardEntry, difficulty twister.Difficulty, userRank int) *discordgo.MessageEmbed {
	title := "🏆 Leaderboard"
	if difficulty != "" {
		title += " - " + capitalize(string(difficulty))
	}

	var b strings.Builder
	for _, e := range entries {
		medal := fmt.Sprintf("%d.", e.Rank)
		if e.Rank >= 1 && e.Rank <= len(leaderboardMedals) {
			medal = leaderboardMedals[e.Rank-1]
		}
		fmt.Fprintf(&b, "%s **%s** - %d pts\n", medal, e.Username, e.TotalScore)
		fmt.Fprintf(&b, "   Best: %d | Attempts: %d | Success: %.1f%%\n",
			e.BestScore, e.Attempts, e.SuccessRate)
	}
	description := b.String()
	if len(description) > 4096 {
		description = description[:4096]
	}

	footer := "Play to get on the leaderboard!"
	if userRank > 0 {
		footer = fmt.Sprintf("Your rank: #%d", userRank)
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Color:       embedColorGold,
		Description: description,
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
	}
}

// DailyStandingsEmbed renders the standings for one day's challenge.
func DailyStandingsEmbed(day time.Time, standings []store.DailyStanding) *discordgo.MessageEmbed {
	var b strings.Builder
	for _, s := range standings {
		medal := fmt.Sprintf("%d.", s.Rank)
		if s.Rank >= 1 && s.Rank <= len(leaderboardMedals) {
			medal = leaderboardMedals[s.Rank-1]
		}
		fmt.Fprintf(&b, "%s **%s** - %d pts (%.1f%%, %.1fs)\n",
			medal, s.Username, s.Score, s.Accuracy, s.TimeTaken.Seconds())
	}
	description := b.String()
	if description == "" {
		description = "Nobody has attempted today's challenge yet. Be the first!"
	}

	return &discordgo.MessageEmbed{
		Title:       "📅 Daily Challenge Standings - " + day.Format("2006-01-02"),
		Color:       embedColorPurple,
		Description: description,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Best attempt per player counts."},
	}
}

// DuelChallengeEmbed announces a pending duel.
func DuelChallengeEmbed(challengerMention, opponentMention string, bestOf, roundsToWin int, timeout time.Duration) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "⚔️ DUEL CHALLENGE! ⚔️",
		Description: fmt.Sprintf(
			"%s has challenged %s!\n\nFormat: Best of %d rounds\n- Same tongue twister for both players\n- Highest score wins each round\n- First to %d round wins overall",
			challengerMention, opponentMention, bestOf, roundsToWin,
		),
		Color: embedColorRed,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Accept below! Challenge expires in %s.", timeout.Truncate(time.Second)),
		},
	}
}

// DuelRoundEmbed announces a duel round and its twister.
func DuelRoundEmbed(round, bestOf int, tw twister.TongueTwister, firstMention string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("⚔️ ROUND %d/%d ⚔️", round, bestOf),
		Description: fmt.Sprintf(
			"Both players will say:\n**%q**\n\n%s, you're up first!\nI'm listening...",
			tw.Text, firstMention,
		),
		Color: embedColorRed,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Difficulty", Value: capitalize(string(tw.Difficulty)), Inline: true},
		},
	}
}

// DuelCompleteEmbed renders the final duel outcome. winnerMention is empty
// on a tie.
func DuelCompleteEmbed(result game.MatchResult, challengerMention, opponentMention, winnerMention string) *discordgo.MessageEmbed {
	score := fmt.Sprintf("Final Score: %s: %d | %s: %d",
		challengerMention, result.ChallengerWins, opponentMention, result.OpponentWins)

	if winnerMention == "" {
		return &discordgo.MessageEmbed{
			Title:       "🤝 DUEL COMPLETE! 🤝",
			Description: "It's a tie!\n\n" + score,
			Color:       embedColorBlue,
		}
	}
	return &discordgo.MessageEmbed{
		Title:       "🏆 DUEL COMPLETE! 🏆",
		Description: fmt.Sprintf("%s wins the duel!\n\n%s", winnerMention, score),
		Color:       embedColorGold,
	}
}

// CustomTwisterAddedEmbed confirms a stored custom twister.
func CustomTwisterAddedEmbed(tw twister.TongueTwister) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "✅ Custom Tongue Twister Added!",
		Description: fmt.Sprintf("Your custom twister has been added with ID #%d", tw.ID),
		Color:       embedColorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Text", Value: tw.Text},
			{Name: "Difficulty", Value: capitalize(string(tw.Difficulty)), Inline: true},
			{Name: "ID", Value: fmt.Sprintf("#%d", tw.ID), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Use /twister practice to try it out!"},
	}
}
