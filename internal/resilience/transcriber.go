package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twistvox/twistvox/pkg/provider/stt"
)

// ErrAllFailed is returned when every transcriber in the chain fails or has
// an open circuit breaker.
var ErrAllFailed = errors.New("resilience: all transcribers failed")

// Compile-time interface assertion.
var _ stt.Transcriber = (*FallbackTranscriber)(nil)

// FallbackConfig configures the per-entry circuit breaker created for each
// backend in a [FallbackTranscriber].
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// transcriberEntry pairs a backend with its dedicated circuit breaker.
type transcriberEntry struct {
	name    string
	backend stt.Transcriber
	breaker *CircuitBreaker
}

// FallbackTranscriber implements [stt.Transcriber] with automatic failover
// across multiple speech-to-text backends. When the primary fails (or its
// breaker is open), the next healthy fallback is tried in registration
// order.
//
// Register all backends before first use; AddFallback is not synchronised
// against in-flight Transcribe calls.
type FallbackTranscriber struct {
	entries []transcriberEntry
	cfg     FallbackConfig
}

// NewFallbackTranscriber creates a chain with primary as the preferred
// backend.
func NewFallbackTranscriber(primary stt.Transcriber, primaryName string, cfg FallbackConfig) *FallbackTranscriber {
	f := &FallbackTranscriber{cfg: cfg}
	f.add(primaryName, primary)
	return f
}

// AddFallback registers an additional backend. Fallbacks are tried in the
// order they are added, after the primary.
func (f *FallbackTranscriber) AddFallback(name string, backend stt.Transcriber) {
	f.add(name, backend)
}

func (f *FallbackTranscriber) add(name string, backend stt.Transcriber) {
	cbCfg := f.cfg.CircuitBreaker
	cbCfg.Name = name
	f.entries = append(f.entries, transcriberEntry{
		name:    name,
		backend: backend,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Transcribe runs the clip against the first healthy backend. Entries with
// an open breaker are skipped; a failing entry trips its breaker and the
// next one is tried. Returns [ErrAllFailed] wrapping the last error when
// every entry fails.
func (f *FallbackTranscriber) Transcribe(ctx context.Context, req stt.Request) (stt.Result, error) {
	var lastErr error
	for i := range f.entries {
		entry := &f.entries[i]

		var result stt.Result
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = entry.backend.Transcribe(ctx, req)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err

		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping transcriber (circuit open)", "transcriber", entry.name)
		} else {
			slog.Warn("transcriber failed, trying next",
				"transcriber", entry.name, "error", err)
		}

		// A cancelled context fails every remaining entry the same way;
		// stop early instead of tripping their breakers.
		if ctx.Err() != nil {
			break
		}
	}
	return stt.Result{}, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
