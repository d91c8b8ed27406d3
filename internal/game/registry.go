package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/twistvox/twistvox/internal/observe"
)

// sessionKey identifies one player's session slot in one channel.
type sessionKey struct {
	playerID  string
	channelID string
}

// Registry holds the active sessions. It replaces the process-wide
// singleton registry of earlier incarnations with an explicit service
// object: construct one, pass it to everything that needs session access.
//
// The registry mutex guards only the maps; per-session state is guarded by
// each Session's own mutex, so operations on unrelated (player, channel)
// keys never serialise against each other beyond the map lookup.
type Registry struct {
	metrics *observe.Metrics

	mu    sync.Mutex
	byKey map[sessionKey]*Session
	byID  map[string]*Session
}

// RegistryOption configures a [Registry].
type RegistryOption func(*Registry)

// WithSessionMetrics overrides the default metrics instance, mainly for
// tests.
func WithSessionMetrics(m *observe.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry returns an empty session registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byKey: make(map[sessionKey]*Session),
		byID:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// Join creates a new active session for (playerID, channelID). Fails with
// ErrAlreadyActive while an earlier session for the same key is still
// active; after End the key is free again.
func (r *Registry) Join(playerID, channelID, guildID string, mode Mode) (*Session, error) {
	key := sessionKey{playerID: playerID, channelID: channelID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byKey[key]; ok && existing.isActive() {
		return nil, ErrAlreadyActive
	}

	s := &Session{
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		ChannelID: channelID,
		GuildID:   guildID,
		StartedAt: time.Now().UTC(),
		mode:      mode,
		active:    true,
	}
	r.byKey[key] = s
	r.byID[s.ID] = s
	r.metrics.ActiveSessions.Add(context.Background(), 1)

	slog.Info("session joined",
		"session_id", s.ID,
		"player_id", playerID,
		"channel_id", channelID,
		"mode", mode,
	)
	return s, nil
}

// Get returns the active session for (playerID, channelID), or
// ErrSessionNotFound when none exists.
func (r *Registry) Get(playerID, channelID string) (*Session, error) {
	key := sessionKey{playerID: playerID, channelID: channelID}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byKey[key]
	if !ok || !s.isActive() {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// ByID returns the session with the given ID, active or ended. Ended
// sessions stay reachable by ID for result display.
func (r *Registry) ByID(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	return s, ok
}

// End deactivates and releases the session for (playerID, channelID) and
// returns its final snapshot. Fails with ErrSessionNotFound when the key
// has no active session.
func (r *Registry) End(playerID, channelID string) (SessionView, error) {
	key := sessionKey{playerID: playerID, channelID: channelID}

	r.mu.Lock()
	s, ok := r.byKey[key]
	if !ok || !s.isActive() {
		r.mu.Unlock()
		return SessionView{}, ErrSessionNotFound
	}
	delete(r.byKey, key)
	r.mu.Unlock()
	r.metrics.ActiveSessions.Add(context.Background(), -1)

	s.end()
	view := s.Snapshot()

	slog.Info("session ended",
		"session_id", view.ID,
		"player_id", playerID,
		"attempts", view.Attempts,
		"total_score", view.TotalScore,
	)
	return view, nil
}

// ActiveCount returns the number of live sessions.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.byKey {
		if s.isActive() {
			n++
		}
	}
	return n
}
