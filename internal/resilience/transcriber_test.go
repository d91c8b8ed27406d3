package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/twistvox/twistvox/internal/resilience"
	"github.com/twistvox/twistvox/pkg/provider/stt"
	sttmock "github.com/twistvox/twistvox/pkg/provider/stt/mock"
)

func TestFallbackTranscriberUsesPrimaryWhenHealthy(t *testing.T) {
	t.Parallel()

	primary := &sttmock.Transcriber{Texts: []string{"she sells seashells"}}
	fallback := &sttmock.Transcriber{Texts: []string{"wrong backend"}}

	ft := resilience.NewFallbackTranscriber(primary, "primary", resilience.FallbackConfig{})
	ft.AddFallback("secondary", fallback)

	result, err := ft.Transcribe(context.Background(), stt.Request{})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if result.Text != "she sells seashells" {
		t.Errorf("Text = %q, want %q", result.Text, "she sells seashells")
	}
	if fallback.CallCount() != 0 {
		t.Errorf("fallback called %d times, want 0", fallback.CallCount())
	}
}

func TestFallbackTranscriberFailsOverOnError(t *testing.T) {
	t.Parallel()

	primary := &sttmock.Transcriber{Err: errors.New("engine crashed")}
	fallback := &sttmock.Transcriber{Texts: []string{"peter piper picked"}}

	ft := resilience.NewFallbackTranscriber(primary, "primary", resilience.FallbackConfig{})
	ft.AddFallback("secondary", fallback)

	result, err := ft.Transcribe(context.Background(), stt.Request{})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if result.Text != "peter piper picked" {
		t.Errorf("Text = %q, want %q", result.Text, "peter piper picked")
	}
	if primary.CallCount() != 1 {
		t.Errorf("primary called %d times, want 1", primary.CallCount())
	}
}

func TestFallbackTranscriberAllFailed(t *testing.T) {
	t.Parallel()

	primary := &sttmock.Transcriber{Err: errors.New("first down")}
	fallback := &sttmock.Transcriber{Err: errors.New("second down")}

	ft := resilience.NewFallbackTranscriber(primary, "primary", resilience.FallbackConfig{})
	ft.AddFallback("secondary", fallback)

	_, err := ft.Transcribe(context.Background(), stt.Request{})
	if !errors.Is(err, resilience.ErrAllFailed) {
		t.Fatalf("Transcribe() error = %v, want ErrAllFailed", err)
	}
}

func TestFallbackTranscriberSkipsOpenBreaker(t *testing.T) {
	t.Parallel()

	primary := &sttmock.Transcriber{Err: errors.New("engine crashed")}
	fallback := &sttmock.Transcriber{Texts: []string{"red lorry yellow lorry"}}

	cfg := resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
		},
	}
	ft := resilience.NewFallbackTranscriber(primary, "primary", cfg)
	ft.AddFallback("secondary", fallback)

	// Two failures trip the primary's breaker.
	for range 2 {
		if _, err := ft.Transcribe(context.Background(), stt.Request{}); err != nil {
			t.Fatalf("Transcribe() error = %v", err)
		}
	}
	if primary.CallCount() != 2 {
		t.Fatalf("primary called %d times, want 2", primary.CallCount())
	}

	// Further calls must not reach the primary at all.
	if _, err := ft.Transcribe(context.Background(), stt.Request{}); err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if primary.CallCount() != 2 {
		t.Errorf("primary called %d times after breaker opened, want 2", primary.CallCount())
	}
	if fallback.CallCount() != 3 {
		t.Errorf("fallback called %d times, want 3", fallback.CallCount())
	}
}

func TestFallbackTranscriberContextCancelStopsChain(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &sttmock.Transcriber{Err: ctx.Err()}
	fallback := &sttmock.Transcriber{Texts: []string{"unreachable"}}

	ft := resilience.NewFallbackTranscriber(primary, "primary", resilience.FallbackConfig{})
	ft.AddFallback("secondary", fallback)

	_, err := ft.Transcribe(ctx, stt.Request{})
	if !errors.Is(err, resilience.ErrAllFailed) {
		t.Fatalf("Transcribe() error = %v, want ErrAllFailed", err)
	}
	if fallback.CallCount() != 0 {
		t.Errorf("fallback called %d times after cancellation, want 0", fallback.CallCount())
	}
}
