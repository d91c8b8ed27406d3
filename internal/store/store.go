// Package store defines the persistence collaborator for Twistvox: players,
// attempts, sessions, leaderboards, the daily challenge, and custom
// twisters.
//
// The interfaces are public within the module so the game layer can be
// tested against the mock implementation in store/mock, while production
// wiring uses the PostgreSQL implementation in store/postgres.
//
// Every implementation must be safe for concurrent use.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/twistvox/twistvox/internal/twister"
)

// ErrPlayerNotFound is returned when a lookup references a player that has
// never recorded an attempt.
var ErrPlayerNotFound = errors.New("store: player not found")

// Player is the persistent per-player aggregate.
type Player struct {
	// ID is the platform user ID.
	ID string

	// Username is the display name captured on the most recent upsert.
	Username string

	TotalAttempts      int
	SuccessfulAttempts int
	TotalScore         int
	BestScore          int

	// BestScoreTwisterID is the twister on which BestScore was achieved.
	// Zero when no attempt has been recorded.
	BestScoreTwisterID int

	// FastestTime is the shortest successful attempt duration. Zero when no
	// attempt has been recorded.
	FastestTime time.Duration

	CreatedAt  time.Time
	LastPlayed time.Time
}

// SuccessRate returns the percentage of successful attempts, or 0 when the
// player has no attempts.
func (p Player) SuccessRate() float64 {
	if p.TotalAttempts == 0 {
		return 0
	}
	return float64(p.SuccessfulAttempts) / float64(p.TotalAttempts) * 100
}

// Attempt is one scored attempt as persisted.
type Attempt struct {
	// ID is assigned by the store on save.
	ID string

	PlayerID   string
	TwisterID  int
	SpokenText string
	Accuracy   float64
	TimeTaken  time.Duration
	Score      int
	Difficulty twister.Difficulty

	// Mode is the session type this attempt belongs to: "practice",
	// "challenge", "timed", "duel", or "daily".
	Mode string

	// Success records whether the accuracy met the pass threshold.
	Success bool

	CreatedAt time.Time
}

// DifficultyStats is the per-tier breakdown inside [PlayerStats].
type DifficultyStats struct {
	Attempts    int
	AvgAccuracy float64
	BestScore   int
}

// PlayerStats combines the player aggregate with a per-difficulty breakdown.
type PlayerStats struct {
	Player

	ByDifficulty map[twister.Difficulty]DifficultyStats
}

// LeaderboardEntry is one row of a leaderboard query, ranked best first.
type LeaderboardEntry struct {
	Rank        int
	PlayerID    string
	Username    string
	TotalScore  int
	Attempts    int
	BestScore   int
	SuccessRate float64
}

// LeaderboardOpts narrows a leaderboard query.
type LeaderboardOpts struct {
	// Difficulty restricts the ranking to attempts at one tier.
	// Empty ranks by overall total score.
	Difficulty twister.Difficulty

	// Limit caps the number of rows. 0 applies the store default.
	Limit int
}

// SessionRecord is the persisted trace of one game session.
type SessionRecord struct {
	ID        string
	PlayerID  string
	GuildID   string
	ChannelID string
	Mode      string
	StartedAt time.Time
}

// DailyStanding is one row of a daily-challenge ranking.
type DailyStanding struct {
	Rank      int
	PlayerID  string
	Username  string
	Score     int
	Accuracy  float64
	TimeTaken time.Duration
}

// Store is the full persistence surface.
type Store interface {
	// UpsertPlayer creates the player row if missing and refreshes the
	// username, returning the current aggregate.
	UpsertPlayer(ctx context.Context, id, username string) (*Player, error)

	// SaveAttempt persists a and folds it into the player aggregate and the
	// twister's popularity counters in one transaction. Returns the assigned
	// attempt ID.
	SaveAttempt(ctx context.Context, a Attempt) (string, error)

	// PlayerStats returns the aggregate plus per-difficulty breakdown.
	// Returns ErrPlayerNotFound for unknown players.
	PlayerStats(ctx context.Context, playerID string) (*PlayerStats, error)

	// Leaderboard returns ranked players, best first.
	Leaderboard(ctx context.Context, opts LeaderboardOpts) ([]LeaderboardEntry, error)

	// PlayerRank returns the player's 1-based position on the overall
	// leaderboard. Returns ErrPlayerNotFound when the player has no attempts.
	PlayerRank(ctx context.Context, playerID string) (int, error)

	// CreateSession records the start of a game session.
	CreateSession(ctx context.Context, s SessionRecord) error

	// EndSession closes a session with its final totals.
	EndSession(ctx context.Context, sessionID string, totalAttempts, totalScore int) error

	// DailyTwister returns the twister ID for the given day, creating the
	// day's challenge with pick() when it does not exist yet. Concurrent
	// callers for the same day all observe the same twister.
	DailyTwister(ctx context.Context, day time.Time, pick func() int) (int, error)

	// SaveDailyAttempt records a daily-challenge attempt for the given day.
	SaveDailyAttempt(ctx context.Context, day time.Time, a Attempt) error

	// DailyStandings returns the day's ranking, best score first. Each
	// player's best attempt of the day counts.
	DailyStandings(ctx context.Context, day time.Time, limit int) ([]DailyStanding, error)

	// AddCustomTwister persists a player-contributed twister and returns it
	// with the assigned ID.
	AddCustomTwister(ctx context.Context, t twister.TongueTwister, createdBy string) (twister.TongueTwister, error)

	// CustomTwisters returns all player-contributed twisters in insertion
	// order, for seeding the corpus at startup and the list command.
	CustomTwisters(ctx context.Context) ([]twister.TongueTwister, error)

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases held resources.
	Close()
}
