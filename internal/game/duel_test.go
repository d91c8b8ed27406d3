package game_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/twistvox/twistvox/internal/game"
	"github.com/twistvox/twistvox/internal/twister"
)

func samePresence(string, string) (string, string, bool) {
	return "channel-1", "guild-1", true
}

func noPresence(string, string) (string, string, bool) {
	return "", "", false
}

func newTestCoordinator(t *testing.T, cfg game.DuelConfig, presence game.PresenceFunc) *game.DuelCoordinator {
	t.Helper()
	if presence == nil {
		presence = samePresence
	}
	return game.NewDuelCoordinator(cfg, twister.NewCorpus(), presence)
}

func TestDuelCoordinator_ChallengeAndAccept(t *testing.T) {
	t.Parallel()

	d := newTestCoordinator(t, game.DuelConfig{BestOf: 3, AcceptTimeout: time.Minute}, nil)

	pd, err := d.Challenge("alice", "bob")
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	if pd.ChallengerID != "alice" || pd.OpponentID != "bob" || pd.ChannelID != "channel-1" {
		t.Errorf("pending duel = %+v", pd)
	}
	if !d.HasPending("alice") || !d.HasPending("bob") {
		t.Error("both participants should be marked pending")
	}

	accepted, err := d.Accept("bob")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.ID != pd.ID {
		t.Errorf("accepted duel ID = %s, want %s", accepted.ID, pd.ID)
	}
	if d.HasPending("alice") || d.HasPending("bob") {
		t.Error("participants still pending after accept")
	}
}

func TestDuelCoordinator_SelfChallenge(t *testing.T) {
	t.Parallel()

	d := newTestCoordinator(t, game.DuelConfig{}, nil)
	if _, err := d.Challenge("alice", "alice"); !errors.Is(err, game.ErrSelfChallenge) {
		t.Errorf("err = %v, want ErrSelfChallenge", err)
	}
}

func TestDuelCoordinator_RequiresSharedChannel(t *testing.T) {
	t.Parallel()

	d := newTestCoordinator(t, game.DuelConfig{}, noPresence)
	if _, err := d.Challenge("alice", "bob"); !errors.Is(err, game.ErrNotSharedChannel) {
		t.Errorf("err = %v, want ErrNotSharedChannel", err)
	}
}

func TestDuelCoordinator_OnePendingPerPlayer(t *testing.T) {
	t.Parallel()

	d := newTestCoordinator(t, game.DuelConfig{AcceptTimeout: time.Minute}, nil)
	if _, err := d.Challenge("alice", "bob"); err != nil {
		t.Fatalf("Challenge: %v", err)
	}

	// Challenger busy.
	if _, err := d.Challenge("alice", "carol"); !errors.Is(err, game.ErrDuelPending) {
		t.Errorf("challenger rematch err = %v, want ErrDuelPending", err)
	}
	// Opponent busy, in either role.
	if _, err := d.Challenge("carol", "bob"); !errors.Is(err, game.ErrDuelPending) {
		t.Errorf("busy opponent err = %v, want ErrDuelPending", err)
	}
	if _, err := d.Challenge("bob", "carol"); !errors.Is(err, game.ErrDuelPending) {
		t.Errorf("pending opponent as challenger err = %v, want ErrDuelPending", err)
	}
}

func TestDuelCoordinator_AcceptWrongPlayer(t *testing.T) {
	t.Parallel()

	d := newTestCoordinator(t, game.DuelConfig{AcceptTimeout: time.Minute}, nil)
	if _, err := d.Challenge("alice", "bob"); err != nil {
		t.Fatalf("Challenge: %v", err)
	}

	// Nobody challenged carol.
	if _, err := d.Accept("carol"); !errors.Is(err, game.ErrChallengeNotFound) {
		t.Errorf("Accept by stranger err = %v, want ErrChallengeNotFound", err)
	}
	// The challenger cannot accept their own challenge.
	if _, err := d.Accept("alice"); !errors.Is(err, game.ErrChallengeNotFound) {
		t.Errorf("Accept by challenger err = %v, want ErrChallengeNotFound", err)
	}
	// The real opponent still can.
	if _, err := d.Accept("bob"); err != nil {
		t.Errorf("Accept by opponent: %v", err)
	}
}

func TestDuelCoordinator_Expiry(t *testing.T) {
	t.Parallel()

	d := newTestCoordinator(t, game.DuelConfig{AcceptTimeout: 20 * time.Millisecond}, nil)
	if _, err := d.Challenge("alice", "bob"); err != nil {
		t.Fatalf("Challenge: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for d.HasPending("bob") {
		if time.Now().After(deadline) {
			t.Fatal("challenge never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := d.Accept("bob"); !errors.Is(err, game.ErrChallengeNotFound) {
		t.Errorf("Accept after expiry err = %v, want ErrChallengeNotFound", err)
	}
	// Both players are free to duel again.
	if _, err := d.Challenge("bob", "alice"); err != nil {
		t.Errorf("Challenge after expiry: %v", err)
	}
}

func TestDuelCoordinator_AcceptExpiryRace(t *testing.T) {
	t.Parallel()

	// Hammer the accept/expiry race: exactly one side must win each time.
	for range 25 {
		d := newTestCoordinator(t, game.DuelConfig{AcceptTimeout: time.Millisecond}, nil)
		if _, err := d.Challenge("alice", "bob"); err != nil {
			t.Fatalf("Challenge: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(1)
		var acceptErr error
		go func() {
			defer wg.Done()
			time.Sleep(time.Millisecond)
			_, acceptErr = d.Accept("bob")
		}()
		wg.Wait()

		// Whichever side won, the duel must be fully consumed.
		if d.HasPending("alice") || d.HasPending("bob") {
			t.Fatal("duel still pending after accept/expiry race")
		}
		if acceptErr != nil && !errors.Is(acceptErr, game.ErrChallengeNotFound) {
			t.Fatalf("Accept err = %v, want nil or ErrChallengeNotFound", acceptErr)
		}
	}
}

// scriptedTurns returns a TurnFunc that awards fixed scores per player per
// round and records the call order.
func scriptedTurns(scores map[string][]int, order *[]string) game.TurnFunc {
	return func(_ context.Context, playerID string, _ twister.TongueTwister, round int) (*game.AttemptResult, error) {
		*order = append(*order, playerID)
		rounds := scores[playerID]
		if round > len(rounds) {
			return nil, nil
		}
		s := rounds[round-1]
		if s < 0 {
			return nil, nil // skipped turn
		}
		return &game.AttemptResult{Score: s, Accuracy: 90}, nil
	}
}

func TestDuelCoordinator_RunMatch_CleanSweep(t *testing.T) {
	t.Parallel()

	d := newTestCoordinator(t, game.DuelConfig{BestOf: 3}, nil)
	var order []string
	turns := scriptedTurns(map[string][]int{
		"alice": {900, 900, 900},
		"bob":   {100, 100, 100},
	}, &order)

	match, err := d.RunMatch(context.Background(), game.PendingDuel{
		ID: "d1", ChallengerID: "alice", OpponentID: "bob",
	}, turns, nil)
	if err != nil {
		t.Fatalf("RunMatch: %v", err)
	}

	if match.WinnerID != "alice" {
		t.Errorf("winner = %q, want alice", match.WinnerID)
	}
	if match.ChallengerWins != 2 || match.OpponentWins != 0 {
		t.Errorf("wins = %d-%d, want 2-0", match.ChallengerWins, match.OpponentWins)
	}
	// Best-of-3 decided after two rounds; round three never runs.
	if len(match.Rounds) != 2 {
		t.Errorf("rounds played = %d, want 2", len(match.Rounds))
	}
	// Turns strictly alternate, challenger first.
	want := []string{"alice", "bob", "alice", "bob"}
	if len(order) != len(want) {
		t.Fatalf("turn order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("turn order = %v, want %v", order, want)
		}
	}
}

func TestDuelCoordinator_RunMatch_SkippedTurnLosesRound(t *testing.T) {
	t.Parallel()

	d := newTestCoordinator(t, game.DuelConfig{BestOf: 3}, nil)
	var order []string
	turns := scriptedTurns(map[string][]int{
		"alice": {-1, -1, -1}, // never produces a result
		"bob":   {200, 200, 200},
	}, &order)

	match, err := d.RunMatch(context.Background(), game.PendingDuel{
		ID: "d2", ChallengerID: "alice", OpponentID: "bob",
	}, turns, nil)
	if err != nil {
		t.Fatalf("RunMatch: %v", err)
	}

	if match.WinnerID != "bob" {
		t.Errorf("winner = %q, want bob", match.WinnerID)
	}
	for _, rr := range match.Rounds {
		if rr.Challenger != nil {
			t.Errorf("round %d challenger result = %+v, want nil", rr.Round, rr.Challenger)
		}
		if rr.WinnerID != "bob" {
			t.Errorf("round %d winner = %q, want bob", rr.Round, rr.WinnerID)
		}
	}
}

func TestDuelCoordinator_RunMatch_TiedRoundsAwardNothing(t *testing.T) {
	t.Parallel()

	d := newTestCoordinator(t, game.DuelConfig{BestOf: 3}, nil)
	var order []string
	turns := scriptedTurns(map[string][]int{
		"alice": {500, 500, 500},
		"bob":   {500, 500, 500},
	}, &order)

	match, err := d.RunMatch(context.Background(), game.PendingDuel{
		ID: "d3", ChallengerID: "alice", OpponentID: "bob",
	}, turns, nil)
	if err != nil {
		t.Fatalf("RunMatch: %v", err)
	}

	if match.WinnerID != "" {
		t.Errorf("winner = %q, want tie", match.WinnerID)
	}
	if match.ChallengerWins != 0 || match.OpponentWins != 0 {
		t.Errorf("wins = %d-%d, want 0-0", match.ChallengerWins, match.OpponentWins)
	}
	if len(match.Rounds) != 3 {
		t.Errorf("rounds played = %d, want all 3", len(match.Rounds))
	}
}

func TestDuelCoordinator_RunMatch_DifficultyEscalates(t *testing.T) {
	t.Parallel()

	d := newTestCoordinator(t, game.DuelConfig{BestOf: 7}, nil)
	turns := func(_ context.Context, playerID string, _ twister.TongueTwister, round int) (*game.AttemptResult, error) {
		// Alternate winners so the match runs long.
		if (round%2 == 0) == (playerID == "alice") {
			return &game.AttemptResult{Score: 900}, nil
		}
		return &game.AttemptResult{Score: 100}, nil
	}

	match, err := d.RunMatch(context.Background(), game.PendingDuel{
		ID: "d4", ChallengerID: "alice", OpponentID: "bob",
	}, turns, nil)
	if err != nil {
		t.Fatalf("RunMatch: %v", err)
	}

	wantTiers := []twister.Difficulty{
		twister.Easy, twister.Easy,
		twister.Medium, twister.Medium,
		twister.Hard, twister.Hard, twister.Hard,
	}
	if len(match.Rounds) != len(wantTiers) {
		t.Fatalf("rounds played = %d, want %d", len(match.Rounds), len(wantTiers))
	}
	for i, rr := range match.Rounds {
		if rr.Twister.Difficulty != wantTiers[i] {
			t.Errorf("round %d difficulty = %s, want %s", rr.Round, rr.Twister.Difficulty, wantTiers[i])
		}
	}
}

func TestDuelCoordinator_RunMatch_ContextCancelled(t *testing.T) {
	t.Parallel()

	d := newTestCoordinator(t, game.DuelConfig{BestOf: 5}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	turns := func(context.Context, string, twister.TongueTwister, int) (*game.AttemptResult, error) {
		cancel()
		return &game.AttemptResult{Score: 100}, nil
	}

	match, err := d.RunMatch(ctx, game.PendingDuel{
		ID: "d5", ChallengerID: "alice", OpponentID: "bob",
	}, turns, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(match.Rounds) > 1 {
		t.Errorf("rounds played after cancel = %d, want at most 1", len(match.Rounds))
	}
}

func TestDuelCoordinator_RoundsToWin(t *testing.T) {
	t.Parallel()

	cases := []struct{ bestOf, want int }{
		{1, 1}, {3, 2}, {5, 3}, {7, 4},
	}
	for _, tc := range cases {
		d := newTestCoordinator(t, game.DuelConfig{BestOf: tc.bestOf}, nil)
		if got := d.RoundsToWin(); got != tc.want {
			t.Errorf("bestOf %d: RoundsToWin = %d, want %d", tc.bestOf, got, tc.want)
		}
	}
}

func TestDuelCoordinator_RunMatch_NoDelayAfterDecidingRound(t *testing.T) {
	t.Parallel()

	d := newTestCoordinator(t, game.DuelConfig{BestOf: 3, RoundDelay: 300 * time.Millisecond}, nil)
	var order []string
	turns := scriptedTurns(map[string][]int{
		"alice": {900, 900},
		"bob":   {100, 100},
	}, &order)

	start := time.Now()
	match, err := d.RunMatch(context.Background(), game.PendingDuel{
		ID: "d1", ChallengerID: "alice", OpponentID: "bob",
	}, turns, nil)
	if err != nil {
		t.Fatalf("RunMatch: %v", err)
	}
	if match.WinnerID != "alice" || len(match.Rounds) != 2 {
		t.Fatalf("match = %+v, want alice winning in two rounds", match)
	}

	// One pacing delay between rounds one and two, none after the win
	// that decides the match.
	if elapsed := time.Since(start); elapsed >= 600*time.Millisecond {
		t.Errorf("match took %v, want a single inter-round delay of 300ms", elapsed)
	}
}
