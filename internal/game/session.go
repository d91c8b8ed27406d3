package game

import (
	"errors"
	"sync"
	"time"

	"github.com/twistvox/twistvox/internal/twister"
)

// Mode selects the game flavour a session runs.
type Mode string

const (
	// ModePractice scores accuracy but awards no points.
	ModePractice Mode = "practice"

	// ModeTimedChallenge runs a fixed sequence of twisters with escalating
	// difficulty and a cumulative score.
	ModeTimedChallenge Mode = "timed_challenge"

	// ModeDaily is the shared daily-challenge twister.
	ModeDaily Mode = "daily"
)

// IsValid reports whether m is a recognised mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModePractice, ModeTimedChallenge, ModeDaily:
		return true
	}
	return false
}

var (
	// ErrAlreadyActive is returned by Join when the (player, channel) pair
	// already has an active session.
	ErrAlreadyActive = errors.New("game: session already active for this player and channel")

	// ErrSessionNotFound is returned when no active session exists for the
	// requested key.
	ErrSessionNotFound = errors.New("game: no active session")

	// ErrAlreadyWaiting is returned by BeginAttempt when a previous attempt
	// has not been recorded yet.
	ErrAlreadyWaiting = errors.New("game: an attempt is already in progress")

	// ErrNotWaiting is returned by RecordAttempt when no attempt was begun.
	ErrNotWaiting = errors.New("game: no attempt in progress")

	// ErrSessionEnded is returned when operating on a session that has been
	// ended.
	ErrSessionEnded = errors.New("game: session has ended")
)

// Session tracks one player's game state in one channel. All state mutations
// go through the exported methods, which lock the session's own mutex, so
// sessions for different (player, channel) keys never contend with each
// other.
type Session struct {
	mu sync.Mutex

	// Immutable after creation.
	ID        string
	PlayerID  string
	ChannelID string
	GuildID   string
	StartedAt time.Time

	mode              Mode
	active            bool
	waitingForAttempt bool
	attemptStartedAt  time.Time
	currentTwisterID  int

	attempts           int
	successfulAttempts int
	totalScore         int

	twistersCompleted int
	twistersTotal     int

	endedAt time.Time
}

// SessionView is an immutable snapshot of a session's state, used for
// display and persistence.
type SessionView struct {
	ID                 string
	PlayerID           string
	ChannelID          string
	GuildID            string
	Mode               Mode
	Active             bool
	WaitingForAttempt  bool
	AttemptStartedAt   time.Time
	CurrentTwisterID   int
	Attempts           int
	SuccessfulAttempts int
	TotalScore         int
	TwistersCompleted  int
	TwistersTotal      int
	StartedAt          time.Time
	EndedAt            time.Time
}

// Snapshot returns a consistent copy of the session's current state.
func (s *Session) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionView{
		ID:                 s.ID,
		PlayerID:           s.PlayerID,
		ChannelID:          s.ChannelID,
		GuildID:            s.GuildID,
		Mode:               s.mode,
		Active:             s.active,
		WaitingForAttempt:  s.waitingForAttempt,
		AttemptStartedAt:   s.attemptStartedAt,
		CurrentTwisterID:   s.currentTwisterID,
		Attempts:           s.attempts,
		SuccessfulAttempts: s.successfulAttempts,
		TotalScore:         s.totalScore,
		TwistersCompleted:  s.twistersCompleted,
		TwistersTotal:      s.twistersTotal,
		StartedAt:          s.StartedAt,
		EndedAt:            s.endedAt,
	}
}

// SetMode switches the session's mode and, for timed challenges, arms the
// progress counters.
func (s *Session) SetMode(mode Mode, twistersTotal int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	if mode == ModeTimedChallenge {
		s.twistersCompleted = 0
		s.twistersTotal = twistersTotal
	}
}

// BeginAttempt marks the session as waiting for a spoken attempt at the
// given twister and records the start time. Fails with ErrAlreadyWaiting
// when a previous attempt is still open, and ErrSessionEnded on an ended
// session.
func (s *Session) BeginAttempt(twisterID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return ErrSessionEnded
	}
	if s.waitingForAttempt {
		return ErrAlreadyWaiting
	}
	s.waitingForAttempt = true
	s.attemptStartedAt = time.Now().UTC()
	s.currentTwisterID = twisterID
	return nil
}

// AbortAttempt clears the waiting flag without recording a result. Called
// on every failure path (capture failed, transcription failed) so the
// session never gets stuck waiting.
func (s *Session) AbortAttempt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitingForAttempt = false
}

// RecordAttempt folds a scored result into the session's counters and
// clears the waiting flag. Fails with ErrNotWaiting when BeginAttempt was
// not called first.
func (s *Session) RecordAttempt(result AttemptResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.waitingForAttempt {
		return ErrNotWaiting
	}
	s.attempts++
	if result.Successful() {
		s.successfulAttempts++
	}
	s.totalScore += result.Score
	if s.mode == ModeTimedChallenge {
		s.twistersCompleted++
	}
	s.waitingForAttempt = false
	return nil
}

// AttemptStartedAt returns when the open attempt began. Zero when no
// attempt is in progress.
func (s *Session) AttemptStartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.waitingForAttempt {
		return time.Time{}
	}
	return s.attemptStartedAt
}

// end deactivates the session. Called by the registry under its own lock
// discipline.
func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.waitingForAttempt = false
	s.endedAt = time.Now().UTC()
}

// isActive reports whether the session is still live.
func (s *Session) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// ChallengeDifficulty returns the difficulty tier for the twister at
// position (0-based) in a timed challenge of total twisters: the first
// ~30% are easy, the next ~40% medium, the rest hard. For the standard
// 10-twister run this yields 3 easy, 4 medium, 3 hard.
func ChallengeDifficulty(position, total int) twister.Difficulty {
	if total <= 0 {
		return twister.Easy
	}
	switch {
	case position*10 < total*3:
		return twister.Easy
	case position*10 < total*7:
		return twister.Medium
	default:
		return twister.Hard
	}
}
