package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":   {"whisper"},
	"audio": {"discord", "device"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Discord
	if cfg.Discord.Token == "" {
		errs = append(errs, errors.New("discord.token is required"))
	}

	// STT chain
	validateProviderName("stt", cfg.STT.Provider)
	if err := validateSTTEntry("stt", cfg.STT.STTEntry); err != nil {
		errs = append(errs, err)
	}
	for i, fb := range cfg.STT.Fallbacks {
		prefix := fmt.Sprintf("stt.fallbacks[%d]", i)
		validateProviderName("stt", fb.Provider)
		if err := validateSTTEntry(prefix, fb); err != nil {
			errs = append(errs, err)
		}
	}

	// Audio
	validateProviderName("audio", cfg.Audio.Provider)
	if cfg.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is negative", cfg.Audio.SampleRate))
	}
	if c := cfg.Audio.Channels; c != 0 && c != 1 && c != 2 {
		errs = append(errs, fmt.Errorf("audio.channels %d not supported, want 1 or 2", c))
	}

	// Capture
	if cfg.Capture.MaxDuration < 0 {
		errs = append(errs, fmt.Errorf("capture.max_duration %v is negative", cfg.Capture.MaxDuration))
	}
	if cfg.Capture.MinDuration < 0 {
		errs = append(errs, fmt.Errorf("capture.min_duration %v is negative", cfg.Capture.MinDuration))
	}
	if cfg.Capture.MinDuration > 0 && cfg.Capture.MaxDuration > 0 && cfg.Capture.MinDuration > cfg.Capture.MaxDuration {
		errs = append(errs, fmt.Errorf("capture.min_duration %v exceeds capture.max_duration %v", cfg.Capture.MinDuration, cfg.Capture.MaxDuration))
	}
	if cfg.Capture.VoiceThreshold < 0 || cfg.Capture.VoiceThreshold > 32767 {
		errs = append(errs, fmt.Errorf("capture.voice_threshold %d is out of range [0, 32767]", cfg.Capture.VoiceThreshold))
	}

	// Game
	if bo := cfg.Game.Duel.BestOf; bo != 0 {
		if bo < 1 {
			errs = append(errs, fmt.Errorf("game.duel.best_of %d must be at least 1", bo))
		} else if bo%2 == 0 {
			errs = append(errs, fmt.Errorf("game.duel.best_of %d must be odd so a winner can emerge", bo))
		}
	}
	if tt := cfg.Game.Timed.TwistersTotal; tt < 0 {
		errs = append(errs, fmt.Errorf("game.timed.twisters_total %d is negative", tt))
	}

	// Storage
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; attempts, stats and leaderboards will not be persisted")
	}

	return errors.Join(errs...)
}

// validateSTTEntry checks a single transcriber entry. The whisper engine
// cannot start without a model file, so an empty path is an error rather
// than a warning.
func validateSTTEntry(prefix string, e STTEntry) error {
	if e.Provider == "" {
		return nil
	}
	if e.Provider == "whisper" && e.ModelPath == "" {
		return fmt.Errorf("%s.model_path is required when provider is whisper", prefix)
	}
	if e.Threads < 0 {
		return fmt.Errorf("%s.threads %d is negative", prefix, e.Threads)
	}
	return nil
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
