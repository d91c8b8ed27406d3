package game

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/twistvox/twistvox/internal/observe"
	"github.com/twistvox/twistvox/internal/twister"
)

var (
	// ErrSelfChallenge is returned when a player challenges themselves.
	ErrSelfChallenge = errors.New("game: cannot duel yourself")

	// ErrDuelPending is returned when either participant already has an
	// outstanding challenge.
	ErrDuelPending = errors.New("game: a pending duel already exists for this player")

	// ErrNotSharedChannel is returned when the two players are not in the
	// same voice channel.
	ErrNotSharedChannel = errors.New("game: both players must share a voice channel")

	// ErrChallengeNotFound is returned by Accept when no pending duel is
	// addressed to the player, including challenges that expired or were
	// consumed an instant earlier.
	ErrChallengeNotFound = errors.New("game: no pending duel challenge")
)

// PendingDuel is an issued, not-yet-accepted challenge. It lives until it
// is accepted or its timeout fires, whichever happens first; the two
// outcomes are mutually exclusive.
type PendingDuel struct {
	ID           string
	ChallengerID string
	OpponentID   string
	ChannelID    string
	GuildID      string
	CreatedAt    time.Time
}

// PresenceFunc reports the voice channel shared by two players. ok is false
// when they are not in the same channel.
type PresenceFunc func(challengerID, opponentID string) (channelID, guildID string, ok bool)

// TurnFunc runs one player's full capture → transcribe → score pipeline for
// a duel round. A nil result with nil error means the turn produced nothing
// usable (no speech, failed transcription); the round is scored against
// that player.
type TurnFunc func(ctx context.Context, playerID string, tw twister.TongueTwister, round int) (*AttemptResult, error)

// RoundResult records one completed duel round.
type RoundResult struct {
	Round      int
	Twister    twister.TongueTwister
	Challenger *AttemptResult
	Opponent   *AttemptResult

	// WinnerID is the round winner's player ID, or empty on a drawn round.
	WinnerID string
}

// MatchResult is the final outcome of a duel match.
type MatchResult struct {
	ChallengerID   string
	OpponentID     string
	ChallengerWins int
	OpponentWins   int
	Rounds         []RoundResult

	// WinnerID is empty when the match ended in a tie.
	WinnerID string
}

// DuelConfig tunes the coordinator.
type DuelConfig struct {
	// BestOf is the maximum number of rounds; the first side to win a
	// majority takes the match.
	BestOf int

	// AcceptTimeout is how long a challenge stays open.
	AcceptTimeout time.Duration

	// RoundDelay is the pause between rounds.
	RoundDelay time.Duration
}

// DuelCoordinator issues, expires, and runs duels. Pending challenges are
// kept in maps guarded by one mutex. Every removal, whether accept or
// expiry, funnels through the same consume step so exactly one side wins
// the race and the other observes ErrChallengeNotFound.
type DuelCoordinator struct {
	cfg      DuelConfig
	corpus   *twister.Corpus
	presence PresenceFunc
	metrics  *observe.Metrics

	mu       sync.Mutex
	pending  map[string]*PendingDuel // duel ID -> challenge
	byPlayer map[string]string       // participant ID -> duel ID
	timers   map[string]*time.Timer
}

// DuelOption configures a [DuelCoordinator].
type DuelOption func(*DuelCoordinator)

// WithDuelMetrics overrides the default metrics instance, mainly for tests.
func WithDuelMetrics(m *observe.Metrics) DuelOption {
	return func(d *DuelCoordinator) { d.metrics = m }
}

// NewDuelCoordinator creates a coordinator. presence is consulted on every
// challenge; it must be non-nil.
func NewDuelCoordinator(cfg DuelConfig, corpus *twister.Corpus, presence PresenceFunc, opts ...DuelOption) *DuelCoordinator {
	if cfg.BestOf <= 0 {
		cfg.BestOf = 3
	}
	if cfg.AcceptTimeout <= 0 {
		cfg.AcceptTimeout = 2 * time.Minute
	}
	d := &DuelCoordinator{
		cfg:      cfg,
		corpus:   corpus,
		presence: presence,
		pending:  make(map[string]*PendingDuel),
		byPlayer: make(map[string]string),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	return d
}

// RoundsToWin returns the majority threshold for the configured format.
func (d *DuelCoordinator) RoundsToWin() int {
	return d.cfg.BestOf/2 + 1
}

// BestOf returns the configured round budget.
func (d *DuelCoordinator) BestOf() int {
	return d.cfg.BestOf
}

// AcceptTimeout returns how long a challenge stays open.
func (d *DuelCoordinator) AcceptTimeout() time.Duration {
	return d.cfg.AcceptTimeout
}

// Challenge issues a duel challenge from challengerID to opponentID.
// Rejected when the players are the same, not in a shared voice channel,
// or either already has a pending duel. The challenge self-cancels after
// the accept timeout.
func (d *DuelCoordinator) Challenge(challengerID, opponentID string) (PendingDuel, error) {
	if challengerID == opponentID {
		return PendingDuel{}, ErrSelfChallenge
	}
	channelID, guildID, ok := d.presence(challengerID, opponentID)
	if !ok {
		return PendingDuel{}, ErrNotSharedChannel
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, busy := d.byPlayer[challengerID]; busy {
		return PendingDuel{}, ErrDuelPending
	}
	if _, busy := d.byPlayer[opponentID]; busy {
		return PendingDuel{}, ErrDuelPending
	}

	duel := &PendingDuel{
		ID:           uuid.NewString(),
		ChallengerID: challengerID,
		OpponentID:   opponentID,
		ChannelID:    channelID,
		GuildID:      guildID,
		CreatedAt:    time.Now().UTC(),
	}
	d.pending[duel.ID] = duel
	d.byPlayer[challengerID] = duel.ID
	d.byPlayer[opponentID] = duel.ID
	d.timers[duel.ID] = time.AfterFunc(d.cfg.AcceptTimeout, func() {
		d.expire(duel.ID)
	})
	d.metrics.ActiveDuels.Add(context.Background(), 1)

	slog.Info("duel challenged",
		"duel_id", duel.ID,
		"challenger_id", challengerID,
		"opponent_id", opponentID,
		"channel_id", channelID,
	)
	return *duel, nil
}

// Accept atomically consumes the pending duel addressed to opponentID.
// Fails with ErrChallengeNotFound when no such challenge exists: it was
// never issued, already expired, or already consumed.
func (d *DuelCoordinator) Accept(opponentID string) (PendingDuel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	duelID, ok := d.byPlayer[opponentID]
	if !ok {
		return PendingDuel{}, ErrChallengeNotFound
	}
	duel, ok := d.pending[duelID]
	if !ok || duel.OpponentID != opponentID {
		// The player is recorded as a challenger, not an opponent.
		return PendingDuel{}, ErrChallengeNotFound
	}
	d.removeLocked(duelID)
	d.metrics.ActiveDuels.Add(context.Background(), -1)

	slog.Info("duel accepted", "duel_id", duel.ID, "opponent_id", opponentID)
	return *duel, nil
}

// HasPending reports whether playerID is a party to an open challenge.
func (d *DuelCoordinator) HasPending(playerID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.byPlayer[playerID]
	return ok
}

// expire is the timer path of the consume race. If Accept got there first
// the duel is already gone and this is a no-op.
func (d *DuelCoordinator) expire(duelID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	duel, ok := d.pending[duelID]
	if !ok {
		return
	}
	d.removeLocked(duelID)
	d.metrics.ActiveDuels.Add(context.Background(), -1)
	slog.Info("duel challenge expired",
		"duel_id", duelID,
		"challenger_id", duel.ChallengerID,
		"opponent_id", duel.OpponentID,
	)
}

// removeLocked deletes all index entries for duelID. Caller holds d.mu.
func (d *DuelCoordinator) removeLocked(duelID string) {
	duel, ok := d.pending[duelID]
	if !ok {
		return
	}
	delete(d.pending, duelID)
	delete(d.byPlayer, duel.ChallengerID)
	delete(d.byPlayer, duel.OpponentID)
	if t, ok := d.timers[duelID]; ok {
		t.Stop()
		delete(d.timers, duelID)
	}
}

// RunMatch plays an accepted duel to completion. Rounds run strictly in
// order; within a round the challenger's turn finishes before the
// opponent's begins. The match stops as soon as either side reaches the
// win threshold, or when the round budget is exhausted, possibly in a tie.
//
// A turn returning a nil result (or an error, which is logged) scores zero
// for that player, so a working opponent usually takes the round; two
// failed turns draw it.
func (d *DuelCoordinator) RunMatch(ctx context.Context, duel PendingDuel, playTurn TurnFunc, observer func(RoundResult)) (MatchResult, error) {
	d.metrics.ActiveDuels.Add(ctx, 1)
	defer d.metrics.ActiveDuels.Add(context.Background(), -1)

	match := MatchResult{
		ChallengerID: duel.ChallengerID,
		OpponentID:   duel.OpponentID,
	}
	target := d.RoundsToWin()

	for round := 1; round <= d.cfg.BestOf; round++ {
		if err := ctx.Err(); err != nil {
			return match, err
		}

		tw := d.corpus.Random(duelRoundDifficulty(round))

		challengerRes := d.runTurn(ctx, playTurn, duel.ChallengerID, tw, round)
		opponentRes := d.runTurn(ctx, playTurn, duel.OpponentID, tw, round)

		rr := RoundResult{
			Round:      round,
			Twister:    tw,
			Challenger: challengerRes,
			Opponent:   opponentRes,
		}
		switch {
		case turnScore(challengerRes) > turnScore(opponentRes):
			match.ChallengerWins++
			rr.WinnerID = duel.ChallengerID
		case turnScore(opponentRes) > turnScore(challengerRes):
			match.OpponentWins++
			rr.WinnerID = duel.OpponentID
		}
		match.Rounds = append(match.Rounds, rr)

		if observer != nil {
			observer(rr)
		}

		slog.Info("duel round complete",
			"duel_id", duel.ID,
			"round", round,
			"winner_id", rr.WinnerID,
			"challenger_wins", match.ChallengerWins,
			"opponent_wins", match.OpponentWins,
		)

		// A decided match reports immediately; the pacing delay only
		// separates rounds that will actually be played.
		if match.ChallengerWins >= target || match.OpponentWins >= target {
			break
		}
		if round < d.cfg.BestOf && d.cfg.RoundDelay > 0 {
			select {
			case <-ctx.Done():
				return match, ctx.Err()
			case <-time.After(d.cfg.RoundDelay):
			}
		}
	}

	switch {
	case match.ChallengerWins > match.OpponentWins:
		match.WinnerID = duel.ChallengerID
	case match.OpponentWins > match.ChallengerWins:
		match.WinnerID = duel.OpponentID
	}

	slog.Info("duel match complete",
		"duel_id", duel.ID,
		"winner_id", match.WinnerID,
		"challenger_wins", match.ChallengerWins,
		"opponent_wins", match.OpponentWins,
	)
	return match, nil
}

// runTurn executes one turn and folds errors into a skipped turn.
func (d *DuelCoordinator) runTurn(ctx context.Context, playTurn TurnFunc, playerID string, tw twister.TongueTwister, round int) *AttemptResult {
	res, err := playTurn(ctx, playerID, tw, round)
	if err != nil {
		slog.Warn("duel turn failed",
			"player_id", playerID,
			"round", round,
			"err", err,
		)
		return nil
	}
	return res
}

// turnScore treats a skipped turn as zero.
func turnScore(r *AttemptResult) int {
	if r == nil {
		return 0
	}
	return r.Score
}

// duelRoundDifficulty escalates with the round number: two easy rounds,
// two medium, hard from round five on.
func duelRoundDifficulty(round int) twister.Difficulty {
	switch {
	case round <= 2:
		return twister.Easy
	case round <= 4:
		return twister.Medium
	default:
		return twister.Hard
	}
}
