// Package attempt runs the full scoring pipeline for one spoken attempt:
// capture the clip, transcribe it, score the transcription against the
// target twister, and persist the outcome. Commands and duel turns share
// this runner so the pipeline stays testable without Discord.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twistvox/twistvox/internal/capture"
	"github.com/twistvox/twistvox/internal/game"
	"github.com/twistvox/twistvox/internal/observe"
	"github.com/twistvox/twistvox/internal/store"
	"github.com/twistvox/twistvox/internal/twister"
	"github.com/twistvox/twistvox/pkg/audio"
	"github.com/twistvox/twistvox/pkg/provider/stt"
)

// Request describes one attempt to run.
type Request struct {
	// PlayerID and Username identify the speaker.
	PlayerID string
	Username string

	// Twister is the target phrase.
	Twister twister.TongueTwister

	// Source supplies the player's audio frames.
	Source audio.FrameSource

	// Mode labels the attempt in persistence: "practice", "challenge",
	// "timed", "duel", or "daily".
	Mode string

	// Practice suppresses scoring; accuracy is still measured.
	Practice bool

	// Day, when non-zero, additionally records the attempt in the daily
	// challenge standings for that date.
	Day time.Time
}

// Runner wires the pipeline stages together. Safe for concurrent use.
// Attempts for distinct frame sources run in parallel; a second attempt on
// a source that is already being captured fails with
// [capture.ErrCaptureActive] so two pipelines never split one speaker's
// audio between them.
type Runner struct {
	transcriber stt.Transcriber
	store       store.Store
	metrics     *observe.Metrics

	mu         sync.Mutex
	captureCfg capture.Config
	capturing  map[audio.FrameSource]struct{}
}

// Option configures a [Runner].
type Option func(*Runner)

// WithStore enables persistence. Without it attempts are scored but not
// recorded.
func WithStore(s store.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithMetrics overrides the default metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner creates a Runner that captures with captureCfg and transcribes
// with t.
func NewRunner(captureCfg capture.Config, t stt.Transcriber, opts ...Option) *Runner {
	r := &Runner{
		captureCfg:  captureCfg,
		transcriber: t,
		capturing:   make(map[audio.FrameSource]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// SetCaptureConfig swaps the VAD tuning for captures started after this
// call. Used by config hot-reload.
func (r *Runner) SetCaptureConfig(cfg capture.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captureCfg = cfg
}

// acquireSource marks src as being captured. Fails with
// [capture.ErrCaptureActive] while another attempt holds it; the recorder's
// own guard cannot see across Runner calls, so the Runner keeps this map.
func (r *Runner) acquireSource(src audio.FrameSource) (capture.Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.capturing[src]; busy {
		return capture.Config{}, capture.ErrCaptureActive
	}
	r.capturing[src] = struct{}{}
	return r.captureCfg, nil
}

func (r *Runner) releaseSource(src audio.FrameSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.capturing, src)
}

// RunAttempt executes the pipeline and returns the scored result.
//
// The elapsed time that feeds the speed bonus is the sample-derived clip
// duration, so identical audio always scores identically. Capture and
// transcription failures are returned as wrapped sentinel errors
// ([capture.ErrNoSpeech], [stt.ErrTranscriptionFailed]); persistence
// failures are logged but never cost the player a finished attempt.
func (r *Runner) RunAttempt(ctx context.Context, req Request) (*game.AttemptResult, error) {
	ctx, span := observe.StartSpan(ctx, "attempt.run")
	defer span.End()
	start := time.Now()

	clip, err := r.captureClip(ctx, req)
	if err != nil {
		status := "no_speech"
		if errors.Is(err, capture.ErrCaptureActive) {
			status = "capture_busy"
		}
		r.metrics.RecordAttempt(ctx, req.Mode, string(req.Twister.Difficulty), status)
		return nil, err
	}

	text, err := r.transcribe(ctx, req, clip)
	if err != nil {
		r.metrics.RecordAttempt(ctx, req.Mode, string(req.Twister.Difficulty), "transcribe_failed")
		return nil, err
	}

	accuracy, mistakes := game.Accuracy(text, req.Twister.Text)
	elapsed := clip.Duration.Seconds()

	score := 0
	if !req.Practice {
		score = game.ComputeScore(accuracy, elapsed, req.Twister.Difficulty)
	}

	result := &game.AttemptResult{
		SpokenText:  text,
		Accuracy:    accuracy,
		TimeSeconds: elapsed,
		Score:       score,
		Mistakes:    mistakes,
	}

	r.persist(ctx, req, result)

	status := "failed"
	if result.Successful() {
		status = "success"
	}
	r.metrics.RecordAttempt(ctx, req.Mode, string(req.Twister.Difficulty), status)
	r.metrics.AttemptDuration.Record(ctx, time.Since(start).Seconds())

	observe.Logger(ctx).Info("attempt scored",
		"player", req.PlayerID,
		"twister", req.Twister.ID,
		"mode", req.Mode,
		"accuracy", result.Accuracy,
		"score", result.Score,
		"elapsed_s", result.TimeSeconds,
	)
	return result, nil
}

func (r *Runner) captureClip(ctx context.Context, req Request) (*capture.Clip, error) {
	ctx, span := observe.StartSpan(ctx, "attempt.capture")
	defer span.End()

	cfg, err := r.acquireSource(req.Source)
	if err != nil {
		return nil, fmt.Errorf("attempt: capture: %w", err)
	}
	defer r.releaseSource(req.Source)

	rec := capture.NewRecorder(cfg)
	start := time.Now()
	clip, err := rec.Capture(ctx, req.PlayerID, req.Source)
	r.metrics.CaptureDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Info("capture yielded no clip", "player", req.PlayerID, "err", err)
		}
		return nil, fmt.Errorf("attempt: capture: %w", err)
	}
	return clip, nil
}

func (r *Runner) transcribe(ctx context.Context, req Request, clip *capture.Clip) (string, error) {
	ctx, span := observe.StartSpan(ctx, "attempt.transcribe")
	defer span.End()

	start := time.Now()
	result, err := r.transcriber.Transcribe(ctx, stt.Request{
		PCM:        clip.PCM,
		SampleRate: clip.SampleRate,
		Channels:   1,
		Hint:       req.Twister.Text,
	})
	r.metrics.TranscribeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		r.metrics.RecordTranscribeError(ctx, req.Mode)
		return "", fmt.Errorf("attempt: transcribe: %w", err)
	}
	return result.Text, nil
}

// persist is best effort: a storage hiccup must not void an attempt the
// player already spoke.
func (r *Runner) persist(ctx context.Context, req Request, result *game.AttemptResult) {
	if r.store == nil {
		return
	}

	if _, err := r.store.UpsertPlayer(ctx, req.PlayerID, req.Username); err != nil {
		slog.Warn("attempt: upsert player failed", "player", req.PlayerID, "err", err)
		return
	}

	rec := store.Attempt{
		PlayerID:   req.PlayerID,
		TwisterID:  req.Twister.ID,
		SpokenText: result.SpokenText,
		Accuracy:   result.Accuracy,
		TimeTaken:  time.Duration(result.TimeSeconds * float64(time.Second)),
		Score:      result.Score,
		Difficulty: req.Twister.Difficulty,
		Mode:       req.Mode,
		Success:    result.Successful(),
	}
	if _, err := r.store.SaveAttempt(ctx, rec); err != nil {
		slog.Warn("attempt: save failed", "player", req.PlayerID, "err", err)
		return
	}

	if !req.Day.IsZero() {
		if err := r.store.SaveDailyAttempt(ctx, req.Day, rec); err != nil {
			slog.Warn("attempt: daily save failed", "player", req.PlayerID, "err", err)
		}
	}
}
