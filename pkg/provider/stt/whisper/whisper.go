// Package whisper implements [stt.Transcriber] using the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// The model is loaded once at construction and shared across all concurrent
// transcriptions; each Transcribe call gets its own whisper context, which
// is the unit of thread confinement in the bindings.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/twistvox/twistvox/pkg/provider/stt"
)

// Compile-time assertion that Provider satisfies stt.Transcriber.
var _ stt.Transcriber = (*Provider)(nil)

const defaultLanguage = "en"

// Provider runs whisper.cpp inference on captured clips.
type Provider struct {
	model    whisperlib.Model
	language string
	threads  uint
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the language code for transcription (e.g. "en", "de").
// Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithThreads sets the number of CPU threads per inference. Zero lets
// whisper.cpp pick.
func WithThreads(n uint) Option {
	return func(p *Provider) { p.threads = n }
}

// New creates a Provider that loads the whisper.cpp model from the given
// file path. The caller must call Close when the provider is no longer
// needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &Provider{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Loaded reports whether the model is loaded and the provider can serve
// transcriptions. Used by readiness checks.
func (p *Provider) Loaded() bool {
	return p != nil && p.model != nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe implements [stt.Transcriber]. The request's Hint, when set, is
// fed to whisper as the initial prompt so the expected phrase's vocabulary
// is favoured during decoding.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: %w", err)
	}
	if len(req.PCM) == 0 {
		return stt.Result{}, nil
	}

	samples := pcmToFloat32Mono(req.PCM, req.Channels)

	// Each inference gets a fresh context; contexts are not thread-safe but
	// the model is shared.
	wctx, err := p.model.NewContext()
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create context: %w", stt.ErrTranscriptionFailed)
	}

	if err := wctx.SetLanguage(p.language); err != nil {
		slog.Warn("whisper: set language failed, using default",
			"language", p.language, "error", err)
	}
	if p.threads > 0 {
		wctx.SetThreads(p.threads)
	}
	if req.Hint != "" {
		wctx.SetInitialPrompt(req.Hint)
	}

	start := time.Now()
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: process audio: %w", stt.ErrTranscriptionFailed)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stt.Result{}, fmt.Errorf("whisper: read segment: %w", stt.ErrTranscriptionFailed)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return stt.Result{
		Text:      strings.Join(parts, " "),
		ModelTime: time.Since(start),
	}, nil
}
