package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestNewCommandRouter(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()
	if r == nil {
		t.Fatal("NewCommandRouter() returned nil")
	}
	if len(r.commands) != 0 {
		t.Errorf("expected empty commands map, got %d entries", len(r.commands))
	}
	if len(r.autocomplete) != 0 {
		t.Errorf("expected empty autocomplete map, got %d entries", len(r.autocomplete))
	}
	if len(r.components) != 0 {
		t.Errorf("expected empty components map, got %d entries", len(r.components))
	}
}

func TestCommandRouter_ApplicationCommands(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()

	cmd := &discordgo.ApplicationCommand{Name: "twister"}
	r.RegisterCommand("twister", cmd, func(s *discordgo.Session, i *discordgo.InteractionCreate) {})

	cmds := r.ApplicationCommands()
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	if cmds[0].Name != "twister" {
		t.Errorf("expected command name 'twister', got %q", cmds[0].Name)
	}
}

func TestCommandRouter_ApplicationCommands_Dedup(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()

	cmd := &discordgo.ApplicationCommand{Name: "twister"}
	r.RegisterCommand("twister/start", cmd, func(s *discordgo.Session, i *discordgo.InteractionCreate) {})
	r.RegisterCommand("twister/practice", cmd, func(s *discordgo.Session, i *discordgo.InteractionCreate) {})

	cmds := r.ApplicationCommands()
	if len(cmds) != 1 {
		t.Fatalf("expected 1 deduplicated command, got %d", len(cmds))
	}
}

func TestCommandRouter_RegisterHandler(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()
	called := false
	r.RegisterHandler("twister/list", func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		called = true
	})

	// Handler without command definition should not appear in ApplicationCommands.
	if cmds := r.ApplicationCommands(); len(cmds) != 0 {
		t.Errorf("expected 0 commands, got %d", len(cmds))
	}

	entry, ok := r.commands["twister/list"]
	if !ok {
		t.Fatal("expected handler to be registered")
	}
	entry.handler(nil, nil)
	if !called {
		t.Error("handler was not called")
	}
}

func TestInteractionKey_Subcommand(t *testing.T) {
	t.Parallel()

	data := discordgo.ApplicationCommandInteractionData{
		Name: "twister",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "start", Type: discordgo.ApplicationCommandOptionSubCommand},
		},
	}
	if got := interactionKey(data); got != "twister/start" {
		t.Errorf("interactionKey = %q, want twister/start", got)
	}

	flat := discordgo.ApplicationCommandInteractionData{Name: "stats"}
	if got := interactionKey(flat); got != "stats" {
		t.Errorf("interactionKey = %q, want stats", got)
	}
}

func TestCommandRouter_ComponentPrefix(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()
	var gotID string
	r.RegisterComponentPrefix("duel_accept:", func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		gotID = i.MessageComponentData().CustomID
	})

	i := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionMessageComponent,
			Data: discordgo.MessageComponentInteractionData{
				CustomID: "duel_accept:duel-42",
			},
		},
	}
	r.handleComponent(nil, i)

	if gotID != "duel_accept:duel-42" {
		t.Errorf("prefix handler got %q, want duel_accept:duel-42", gotID)
	}
}
