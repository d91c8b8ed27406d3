package health

import (
	"context"
	"errors"

	"github.com/twistvox/twistvox/internal/store"
)

// StoreChecker reports database reachability via the store's Ping.
func StoreChecker(st store.Store) Checker {
	return Checker{
		Name: "database",
		Check: func(ctx context.Context) error {
			return st.Ping(ctx)
		},
	}
}

// GatewayChecker reports whether the Discord gateway session is up. ready
// is typically the bot's Ready method.
func GatewayChecker(ready func() bool) Checker {
	return Checker{
		Name: "discord",
		Check: func(_ context.Context) error {
			if !ready() {
				return errors.New("gateway session not established")
			}
			return nil
		},
	}
}

// TranscriberChecker reports whether the speech-to-text backend is usable.
// loaded is typically the whisper transcriber's Loaded method.
func TranscriberChecker(loaded func() bool) Checker {
	return Checker{
		Name: "transcriber",
		Check: func(_ context.Context) error {
			if !loaded() {
				return errors.New("speech model not loaded")
			}
			return nil
		},
	}
}
