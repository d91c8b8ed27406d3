package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/twistvox/twistvox/pkg/audio"
	audiomock "github.com/twistvox/twistvox/pkg/audio/mock"
)

func TestVoiceManager_JoinReusesConnection(t *testing.T) {
	t.Parallel()

	conn := &audiomock.Connection{}
	platform := &audiomock.Platform{ConnectResult: conn}
	vm := NewVoiceManager(platform, nil)

	first, err := vm.Join(context.Background(), "voice-1")
	if err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	second, err := vm.Join(context.Background(), "voice-1")
	if err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	if first != second {
		t.Error("second Join returned a different connection")
	}
	if len(platform.ConnectCalls) != 1 {
		t.Errorf("Connect calls = %d, want 1", len(platform.ConnectCalls))
	}
}

func TestVoiceManager_LeaveDisconnectsWhenLastReferenceDrops(t *testing.T) {
	t.Parallel()

	conn := &audiomock.Connection{}
	platform := &audiomock.Platform{ConnectResult: conn}
	vm := NewVoiceManager(platform, nil)

	if _, err := vm.Join(context.Background(), "voice-1"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if _, err := vm.Join(context.Background(), "voice-1"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	vm.Leave("voice-1")
	if conn.CallCountDisconnect != 0 {
		t.Error("disconnected while a reference was still held")
	}
	if !vm.Connected("voice-1") {
		t.Error("Connected() = false, want true after first Leave")
	}

	vm.Leave("voice-1")
	if conn.CallCountDisconnect != 1 {
		t.Errorf("Disconnect calls = %d, want 1", conn.CallCountDisconnect)
	}
	if vm.Connected("voice-1") {
		t.Error("Connected() = true after last Leave")
	}
}

func TestVoiceManager_JoinConnectError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("gateway unavailable")
	platform := &audiomock.Platform{ConnectError: wantErr}
	vm := NewVoiceManager(platform, nil)

	if _, err := vm.Join(context.Background(), "voice-1"); !errors.Is(err, wantErr) {
		t.Errorf("Join() error = %v, want %v", err, wantErr)
	}
	if vm.Connected("voice-1") {
		t.Error("Connected() = true after failed Join")
	}
}

func TestVoiceManager_SourceRequiresConnection(t *testing.T) {
	t.Parallel()

	vm := NewVoiceManager(&audiomock.Platform{ConnectResult: &audiomock.Connection{}}, nil)

	if _, err := vm.Source("voice-1", "user-1"); err == nil {
		t.Error("Source() on unjoined channel: expected an error")
	}

	if _, err := vm.Join(context.Background(), "voice-1"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	src, err := vm.Source("voice-1", "user-1")
	if err != nil {
		t.Fatalf("Source() error: %v", err)
	}
	if src == nil {
		t.Fatal("Source() returned nil source")
	}
}

func TestVoiceManager_EventsCarryChannelID(t *testing.T) {
	t.Parallel()

	conn := &audiomock.Connection{}
	platform := &audiomock.Platform{ConnectResult: conn}

	type received struct {
		channelID string
		ev        audio.Event
	}
	var got []received
	vm := NewVoiceManager(platform, func(channelID string, ev audio.Event) {
		got = append(got, received{channelID, ev})
	})

	if _, err := vm.Join(context.Background(), "voice-1"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	conn.EmitEvent(audio.Event{Type: audio.EventLeave, UserID: "user-1"})

	if len(got) != 1 {
		t.Fatalf("event count = %d, want 1", len(got))
	}
	if got[0].channelID != "voice-1" {
		t.Errorf("channelID = %q, want %q", got[0].channelID, "voice-1")
	}
	if got[0].ev.UserID != "user-1" || got[0].ev.Type != audio.EventLeave {
		t.Errorf("event = %+v, want leave of user-1", got[0].ev)
	}
}

func TestVoiceManager_CloseDisconnectsAll(t *testing.T) {
	t.Parallel()

	conn := &audiomock.Connection{}
	platform := &audiomock.Platform{ConnectResult: conn}
	vm := NewVoiceManager(platform, nil)

	if _, err := vm.Join(context.Background(), "voice-1"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if _, err := vm.Join(context.Background(), "voice-2"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	vm.Close()
	if conn.CallCountDisconnect != 2 {
		t.Errorf("Disconnect calls = %d, want 2", conn.CallCountDisconnect)
	}
	if vm.Connected("voice-1") || vm.Connected("voice-2") {
		t.Error("still connected after Close")
	}
}
