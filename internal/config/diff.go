package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; everything else
// (Discord token, STT chain, storage DSN) requires a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// CaptureChanged is true when any VAD tuning field changed. New captures
	// pick up the new values; captures already in flight keep the old ones.
	CaptureChanged bool
	NewCapture     CaptureConfig

	// GameChanged is true when duel or timed-challenge tuning changed.
	// Applies to duels and runs started after the reload.
	GameChanged bool
	NewGame     GameConfig
}

// Any reports whether the diff contains at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.CaptureChanged || d.GameChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Capture != new.Capture {
		d.CaptureChanged = true
		d.NewCapture = new.Capture
	}

	if old.Game != new.Game {
		d.GameChanged = true
		d.NewGame = new.Game
	}

	return d
}
