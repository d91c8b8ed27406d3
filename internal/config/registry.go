package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/twistvox/twistvox/pkg/audio"
	"github.com/twistvox/twistvox/pkg/provider/stt"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions. It is safe
// for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	stt   map[string]func(STTEntry) (stt.Transcriber, error)
	audio map[string]func(*Config) (audio.Platform, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stt:   make(map[string]func(STTEntry) (stt.Transcriber, error)),
		audio: make(map[string]func(*Config) (audio.Platform, error)),
	}
}

// RegisterSTT registers a transcriber factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory func(STTEntry) (stt.Transcriber, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterAudio registers an audio platform factory under name.
func (r *Registry) RegisterAudio(name string, factory func(*Config) (audio.Platform, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio[name] = factory
}

// CreateSTT constructs the transcriber selected by entry.Provider.
func (r *Registry) CreateSTT(entry STTEntry) (stt.Transcriber, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt %q", ErrProviderNotRegistered, entry.Provider)
	}
	return factory(entry)
}

// CreateAudio constructs the audio platform selected by name.
func (r *Registry) CreateAudio(name string, cfg *Config) (audio.Platform, error) {
	r.mu.RLock()
	factory, ok := r.audio[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: audio %q", ErrProviderNotRegistered, name)
	}
	return factory(cfg)
}
