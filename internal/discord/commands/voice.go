// Package commands implements the Twistvox slash command handlers. The
// handlers are thin: they validate the interaction, delegate to the game
// core (registry, duel coordinator, attempt runner, store), and render
// embeds. Everything worth testing without Discord lives below this layer.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/twistvox/twistvox/internal/observe"
	"github.com/twistvox/twistvox/pkg/audio"
)

// VoiceManager tracks the bot's active voice channel connections and
// reference-counts them: several players can run sessions in the same
// channel through one connection, and the bot only disconnects when the
// last session leaves.
type VoiceManager struct {
	platform audio.Platform
	metrics  *observe.Metrics

	// onEvent, when set, receives participant changes with the channel
	// they happened in. Used to end sessions of players who walk out.
	onEvent func(channelID string, ev audio.Event)

	mu    sync.Mutex
	conns map[string]audio.Connection
	refs  map[string]int
}

// NewVoiceManager creates a manager connecting through platform. onEvent
// may be nil.
func NewVoiceManager(platform audio.Platform, onEvent func(channelID string, ev audio.Event)) *VoiceManager {
	return &VoiceManager{
		platform: platform,
		metrics:  observe.DefaultMetrics(),
		onEvent:  onEvent,
		conns:    make(map[string]audio.Connection),
		refs:     make(map[string]int),
	}
}

// Join connects to channelID, or reuses the existing connection, and takes
// a reference.
func (vm *VoiceManager) Join(ctx context.Context, channelID string) (audio.Connection, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if conn, ok := vm.conns[channelID]; ok {
		vm.refs[channelID]++
		return conn, nil
	}

	conn, err := vm.platform.Connect(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("voice: connect %s: %w", channelID, err)
	}
	if vm.onEvent != nil {
		conn.OnParticipantChange(func(ev audio.Event) {
			vm.onEvent(channelID, ev)
		})
	}
	vm.conns[channelID] = conn
	vm.refs[channelID] = 1
	vm.metrics.ConnectedChannels.Add(ctx, 1)
	slog.Info("voice channel joined", "channel", channelID)
	return conn, nil
}

// Leave drops one reference on channelID and disconnects when none remain.
func (vm *VoiceManager) Leave(channelID string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if _, ok := vm.conns[channelID]; !ok {
		return
	}
	vm.refs[channelID]--
	if vm.refs[channelID] > 0 {
		return
	}

	conn := vm.conns[channelID]
	delete(vm.conns, channelID)
	delete(vm.refs, channelID)
	vm.metrics.ConnectedChannels.Add(context.Background(), -1)
	if err := conn.Disconnect(); err != nil {
		slog.Warn("voice: disconnect failed", "channel", channelID, "err", err)
	}
	slog.Info("voice channel left", "channel", channelID)
}

// Source returns the frame source for userID on the connection to
// channelID. Fails when the bot is not connected there.
func (vm *VoiceManager) Source(channelID, userID string) (audio.FrameSource, error) {
	vm.mu.Lock()
	conn, ok := vm.conns[channelID]
	vm.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("voice: not connected to channel %s", channelID)
	}
	return conn.Source(userID), nil
}

// Connected reports whether the bot holds a connection to channelID.
func (vm *VoiceManager) Connected(channelID string) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	_, ok := vm.conns[channelID]
	return ok
}

// Close disconnects everything. Called on shutdown.
func (vm *VoiceManager) Close() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	for channelID, conn := range vm.conns {
		if err := conn.Disconnect(); err != nil {
			slog.Warn("voice: disconnect failed", "channel", channelID, "err", err)
		}
		vm.metrics.ConnectedChannels.Add(context.Background(), -1)
	}
	vm.conns = make(map[string]audio.Connection)
	vm.refs = make(map[string]int)
}
