package game_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/twistvox/twistvox/internal/game"
	"github.com/twistvox/twistvox/internal/twister"
)

func TestRegistry_JoinAndGet(t *testing.T) {
	t.Parallel()

	reg := game.NewRegistry()
	s, err := reg.Join("player-1", "channel-1", "guild-1", game.ModePractice)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if s.ID == "" {
		t.Error("Join returned session without ID")
	}

	got, err := reg.Get("player-1", "channel-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != s {
		t.Error("Get returned a different session than Join")
	}
	if reg.ActiveCount() != 1 {
		t.Errorf("ActiveCount = %d, want 1", reg.ActiveCount())
	}
}

func TestRegistry_DuplicateJoinRejected(t *testing.T) {
	t.Parallel()

	reg := game.NewRegistry()
	if _, err := reg.Join("player-1", "channel-1", "g", game.ModePractice); err != nil {
		t.Fatalf("first Join: %v", err)
	}
	if _, err := reg.Join("player-1", "channel-1", "g", game.ModePractice); !errors.Is(err, game.ErrAlreadyActive) {
		t.Errorf("second Join err = %v, want ErrAlreadyActive", err)
	}

	// Same player in a different channel is a different key.
	if _, err := reg.Join("player-1", "channel-2", "g", game.ModePractice); err != nil {
		t.Errorf("Join in other channel: %v", err)
	}
	// And a different player in the same channel.
	if _, err := reg.Join("player-2", "channel-1", "g", game.ModePractice); err != nil {
		t.Errorf("Join by other player: %v", err)
	}
}

func TestRegistry_EndReleasesKey(t *testing.T) {
	t.Parallel()

	reg := game.NewRegistry()
	s, err := reg.Join("player-1", "channel-1", "g", game.ModePractice)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	view, err := reg.End("player-1", "channel-1")
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if view.Active {
		t.Error("final view still marked active")
	}
	if view.EndedAt.IsZero() {
		t.Error("final view has zero EndedAt")
	}

	if _, err := reg.Get("player-1", "channel-1"); !errors.Is(err, game.ErrSessionNotFound) {
		t.Errorf("Get after End err = %v, want ErrSessionNotFound", err)
	}
	if _, err := reg.End("player-1", "channel-1"); !errors.Is(err, game.ErrSessionNotFound) {
		t.Errorf("double End err = %v, want ErrSessionNotFound", err)
	}

	// Ended sessions stay reachable by ID for result display.
	if _, ok := reg.ByID(s.ID); !ok {
		t.Error("ended session not reachable by ID")
	}

	// The key is free for a fresh session.
	if _, err := reg.Join("player-1", "channel-1", "g", game.ModeDaily); err != nil {
		t.Errorf("rejoin after End: %v", err)
	}
}

func TestSession_AttemptLifecycle(t *testing.T) {
	t.Parallel()

	reg := game.NewRegistry()
	s, err := reg.Join("player-1", "channel-1", "g", game.ModePractice)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	if err := s.RecordAttempt(game.AttemptResult{}); !errors.Is(err, game.ErrNotWaiting) {
		t.Errorf("RecordAttempt before BeginAttempt err = %v, want ErrNotWaiting", err)
	}

	if err := s.BeginAttempt(7); err != nil {
		t.Fatalf("BeginAttempt: %v", err)
	}
	if s.AttemptStartedAt().IsZero() {
		t.Error("AttemptStartedAt zero during open attempt")
	}
	if err := s.BeginAttempt(8); !errors.Is(err, game.ErrAlreadyWaiting) {
		t.Errorf("nested BeginAttempt err = %v, want ErrAlreadyWaiting", err)
	}

	if err := s.RecordAttempt(game.AttemptResult{Accuracy: 91.0, Score: 1210}); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	view := s.Snapshot()
	if view.Attempts != 1 || view.SuccessfulAttempts != 1 || view.TotalScore != 1210 {
		t.Errorf("counters = %d/%d/%d, want 1/1/1210",
			view.Attempts, view.SuccessfulAttempts, view.TotalScore)
	}
	if view.WaitingForAttempt {
		t.Error("still waiting after RecordAttempt")
	}

	// A failed attempt counts but does not add a success.
	if err := s.BeginAttempt(7); err != nil {
		t.Fatalf("BeginAttempt: %v", err)
	}
	if err := s.RecordAttempt(game.AttemptResult{Accuracy: 40.0, Score: 280}); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	view = s.Snapshot()
	if view.Attempts != 2 || view.SuccessfulAttempts != 1 || view.TotalScore != 1490 {
		t.Errorf("counters = %d/%d/%d, want 2/1/1490",
			view.Attempts, view.SuccessfulAttempts, view.TotalScore)
	}
}

func TestSession_AbortClearsWaiting(t *testing.T) {
	t.Parallel()

	reg := game.NewRegistry()
	s, _ := reg.Join("player-1", "channel-1", "g", game.ModePractice)

	if err := s.BeginAttempt(3); err != nil {
		t.Fatalf("BeginAttempt: %v", err)
	}
	s.AbortAttempt()

	if !s.AttemptStartedAt().IsZero() {
		t.Error("AttemptStartedAt non-zero after abort")
	}
	if err := s.BeginAttempt(4); err != nil {
		t.Errorf("BeginAttempt after abort: %v", err)
	}
}

func TestSession_EndedSessionRejectsAttempts(t *testing.T) {
	t.Parallel()

	reg := game.NewRegistry()
	s, _ := reg.Join("player-1", "channel-1", "g", game.ModePractice)
	if _, err := reg.End("player-1", "channel-1"); err != nil {
		t.Fatalf("End: %v", err)
	}

	if err := s.BeginAttempt(1); !errors.Is(err, game.ErrSessionEnded) {
		t.Errorf("BeginAttempt after End err = %v, want ErrSessionEnded", err)
	}
}

func TestSession_TimedChallengeProgress(t *testing.T) {
	t.Parallel()

	reg := game.NewRegistry()
	s, _ := reg.Join("player-1", "channel-1", "g", game.ModePractice)
	s.SetMode(game.ModeTimedChallenge, 10)

	for i := range 3 {
		if err := s.BeginAttempt(i + 1); err != nil {
			t.Fatalf("BeginAttempt %d: %v", i, err)
		}
		if err := s.RecordAttempt(game.AttemptResult{Accuracy: 85, Score: 950}); err != nil {
			t.Fatalf("RecordAttempt %d: %v", i, err)
		}
	}

	view := s.Snapshot()
	if view.TwistersCompleted != 3 || view.TwistersTotal != 10 {
		t.Errorf("progress = %d/%d, want 3/10", view.TwistersCompleted, view.TwistersTotal)
	}
}

func TestRegistry_ConcurrentJoins(t *testing.T) {
	t.Parallel()

	reg := game.NewRegistry()
	const players = 50

	var wg sync.WaitGroup
	errs := make([]error, players)
	for i := range players {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = reg.Join(fmt.Sprintf("player-%d", i), "channel-1", "g", game.ModePractice)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Join player-%d: %v", i, err)
		}
	}
	if got := reg.ActiveCount(); got != players {
		t.Errorf("ActiveCount = %d, want %d", got, players)
	}
}

func TestRegistry_ConcurrentJoinSameKey(t *testing.T) {
	t.Parallel()

	reg := game.NewRegistry()
	const racers = 20

	var wg sync.WaitGroup
	var successes int32
	var mu sync.Mutex
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reg.Join("player-1", "channel-1", "g", game.ModePractice); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successful joins = %d, want exactly 1", successes)
	}
}

func TestChallengeDifficulty_Schedule(t *testing.T) {
	t.Parallel()

	want := []twister.Difficulty{
		twister.Easy, twister.Easy, twister.Easy,
		twister.Medium, twister.Medium, twister.Medium, twister.Medium,
		twister.Hard, twister.Hard, twister.Hard,
	}
	for pos, w := range want {
		if got := game.ChallengeDifficulty(pos, 10); got != w {
			t.Errorf("ChallengeDifficulty(%d, 10) = %s, want %s", pos, got, w)
		}
	}

	// Degenerate totals fall back to easy.
	if got := game.ChallengeDifficulty(0, 0); got != twister.Easy {
		t.Errorf("ChallengeDifficulty(0, 0) = %s, want easy", got)
	}
}
