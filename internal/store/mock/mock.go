// Package mock provides an in-memory test double for [store.Store].
//
// Unlike a purely scripted mock, the double keeps real state: upserted
// players accumulate attempt aggregates, leaderboards rank by total score,
// and daily challenges are created once per day. Exported *Err fields force
// individual methods to fail. Safe for concurrent use.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/twistvox/twistvox/internal/store"
	"github.com/twistvox/twistvox/internal/twister"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is the in-memory [store.Store] double.
type Store struct {
	mu sync.Mutex

	players  map[string]*store.Player
	attempts []store.Attempt
	sessions map[string]store.SessionRecord
	daily    map[string]int // date string -> twister ID
	dailyAt  map[string][]store.Attempt
	customs  []twister.TongueTwister
	nextID   int

	// Err fields force the corresponding method to fail when non-nil.
	UpsertPlayerErr error
	SaveAttemptErr  error
	StatsErr        error
	LeaderboardErr  error
	DailyErr        error
	PingErr         error

	// Closed reports whether Close was called.
	Closed bool
}

// New returns an empty store double.
func New() *Store {
	return &Store{
		players:  make(map[string]*store.Player),
		sessions: make(map[string]store.SessionRecord),
		daily:    make(map[string]int),
		dailyAt:  make(map[string][]store.Attempt),
		nextID:   1000,
	}
}

// Attempts returns a copy of every attempt saved so far.
func (m *Store) Attempts() []store.Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Attempt, len(m.attempts))
	copy(out, m.attempts)
	return out
}

// UpsertPlayer implements [store.Store].
func (m *Store) UpsertPlayer(_ context.Context, id, username string) (*store.Player, error) {
	if m.UpsertPlayerErr != nil {
		return nil, m.UpsertPlayerErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[id]
	if !ok {
		p = &store.Player{ID: id, CreatedAt: time.Now()}
		m.players[id] = p
	}
	p.Username = username
	cp := *p
	return &cp, nil
}

// SaveAttempt implements [store.Store].
func (m *Store) SaveAttempt(_ context.Context, a store.Attempt) (string, error) {
	if m.SaveAttemptErr != nil {
		return "", m.SaveAttemptErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[a.PlayerID]
	if !ok {
		return "", fmt.Errorf("mock store: save attempt: %w", store.ErrPlayerNotFound)
	}

	a.ID = uuid.NewString()
	a.CreatedAt = time.Now()
	m.attempts = append(m.attempts, a)

	p.TotalAttempts++
	if a.Success {
		p.SuccessfulAttempts++
	}
	p.TotalScore += a.Score
	if a.Score > p.BestScore {
		p.BestScore = a.Score
		p.BestScoreTwisterID = a.TwisterID
	}
	if p.FastestTime == 0 || a.TimeTaken < p.FastestTime {
		p.FastestTime = a.TimeTaken
	}
	p.LastPlayed = a.CreatedAt
	return a.ID, nil
}

// PlayerStats implements [store.Store].
func (m *Store) PlayerStats(_ context.Context, playerID string) (*store.PlayerStats, error) {
	if m.StatsErr != nil {
		return nil, m.StatsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[playerID]
	if !ok {
		return nil, fmt.Errorf("mock store: player stats: %w", store.ErrPlayerNotFound)
	}

	stats := &store.PlayerStats{
		Player:       *p,
		ByDifficulty: make(map[twister.Difficulty]store.DifficultyStats),
	}
	sums := make(map[twister.Difficulty]float64)
	for _, a := range m.attempts {
		if a.PlayerID != playerID {
			continue
		}
		ds := stats.ByDifficulty[a.Difficulty]
		ds.Attempts++
		if a.Score > ds.BestScore {
			ds.BestScore = a.Score
		}
		sums[a.Difficulty] += a.Accuracy
		stats.ByDifficulty[a.Difficulty] = ds
	}
	for d, ds := range stats.ByDifficulty {
		ds.AvgAccuracy = sums[d] / float64(ds.Attempts)
		stats.ByDifficulty[d] = ds
	}
	return stats, nil
}

// Leaderboard implements [store.Store].
func (m *Store) Leaderboard(_ context.Context, opts store.LeaderboardOpts) ([]store.LeaderboardEntry, error) {
	if m.LeaderboardErr != nil {
		return nil, m.LeaderboardErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = 15
	}

	var entries []store.LeaderboardEntry
	if opts.Difficulty != "" {
		perPlayer := make(map[string]*store.LeaderboardEntry)
		for _, a := range m.attempts {
			if a.Difficulty != opts.Difficulty {
				continue
			}
			e, ok := perPlayer[a.PlayerID]
			if !ok {
				e = &store.LeaderboardEntry{PlayerID: a.PlayerID, Username: m.players[a.PlayerID].Username}
				perPlayer[a.PlayerID] = e
			}
			e.TotalScore += a.Score
			e.Attempts++
			if a.Score > e.BestScore {
				e.BestScore = a.Score
			}
		}
		for _, e := range perPlayer {
			entries = append(entries, *e)
		}
	} else {
		for _, p := range m.players {
			if p.TotalAttempts == 0 {
				continue
			}
			entries = append(entries, store.LeaderboardEntry{
				PlayerID:    p.ID,
				Username:    p.Username,
				TotalScore:  p.TotalScore,
				Attempts:    p.TotalAttempts,
				BestScore:   p.BestScore,
				SuccessRate: p.SuccessRate(),
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].TotalScore > entries[j].TotalScore })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// PlayerRank implements [store.Store].
func (m *Store) PlayerRank(ctx context.Context, playerID string) (int, error) {
	entries, err := m.Leaderboard(ctx, store.LeaderboardOpts{Limit: len(m.players) + 1})
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.PlayerID == playerID {
			return e.Rank, nil
		}
	}
	return 0, fmt.Errorf("mock store: player rank: %w", store.ErrPlayerNotFound)
}

// CreateSession implements [store.Store].
func (m *Store) CreateSession(_ context.Context, rec store.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	m.sessions[rec.ID] = rec
	return nil
}

// EndSession implements [store.Store].
func (m *Store) EndSession(_ context.Context, sessionID string, totalAttempts, totalScore int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// DailyTwister implements [store.Store].
func (m *Store) DailyTwister(_ context.Context, day time.Time, pick func() int) (int, error) {
	if m.DailyErr != nil {
		return 0, m.DailyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := day.UTC().Format("2006-01-02")
	if id, ok := m.daily[key]; ok {
		return id, nil
	}
	id := pick()
	m.daily[key] = id
	return id, nil
}

// SaveDailyAttempt implements [store.Store].
func (m *Store) SaveDailyAttempt(_ context.Context, day time.Time, a store.Attempt) error {
	if m.DailyErr != nil {
		return m.DailyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := day.UTC().Format("2006-01-02")
	m.dailyAt[key] = append(m.dailyAt[key], a)
	return nil
}

// DailyStandings implements [store.Store].
func (m *Store) DailyStandings(_ context.Context, day time.Time, limit int) ([]store.DailyStanding, error) {
	if m.DailyErr != nil {
		return nil, m.DailyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 15
	}
	key := day.UTC().Format("2006-01-02")

	best := make(map[string]store.Attempt)
	for _, a := range m.dailyAt[key] {
		b, ok := best[a.PlayerID]
		if !ok || a.Score > b.Score || (a.Score == b.Score && a.TimeTaken < b.TimeTaken) {
			best[a.PlayerID] = a
		}
	}

	var standings []store.DailyStanding
	for id, a := range best {
		username := ""
		if p, ok := m.players[id]; ok {
			username = p.Username
		}
		standings = append(standings, store.DailyStanding{
			PlayerID:  id,
			Username:  username,
			Score:     a.Score,
			Accuracy:  a.Accuracy,
			TimeTaken: a.TimeTaken,
		})
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Score != standings[j].Score {
			return standings[i].Score > standings[j].Score
		}
		return standings[i].TimeTaken < standings[j].TimeTaken
	})
	if len(standings) > limit {
		standings = standings[:limit]
	}
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings, nil
}

// AddCustomTwister implements [store.Store].
func (m *Store) AddCustomTwister(_ context.Context, t twister.TongueTwister, createdBy string) (twister.TongueTwister, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.nextID
	m.nextID++
	m.customs = append(m.customs, t)
	return t, nil
}

// CustomTwisters implements [store.Store].
func (m *Store) CustomTwisters(_ context.Context) ([]twister.TongueTwister, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]twister.TongueTwister, len(m.customs))
	copy(out, m.customs)
	return out, nil
}

// Ping implements [store.Store].
func (m *Store) Ping(_ context.Context) error {
	return m.PingErr
}

// Close implements [store.Store].
func (m *Store) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
}
