// Command twistvox is the Discord tongue twister game server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/twistvox/twistvox/internal/attempt"
	"github.com/twistvox/twistvox/internal/config"
	discordbot "github.com/twistvox/twistvox/internal/discord"
	"github.com/twistvox/twistvox/internal/discord/commands"
	"github.com/twistvox/twistvox/internal/game"
	"github.com/twistvox/twistvox/internal/health"
	"github.com/twistvox/twistvox/internal/observe"
	"github.com/twistvox/twistvox/internal/resilience"
	"github.com/twistvox/twistvox/internal/store"
	"github.com/twistvox/twistvox/internal/store/postgres"
	"github.com/twistvox/twistvox/internal/twister"
	"github.com/twistvox/twistvox/pkg/audio"
	"github.com/twistvox/twistvox/pkg/audio/device"
	"github.com/twistvox/twistvox/pkg/provider/stt"
	"github.com/twistvox/twistvox/pkg/provider/stt/whisper"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("twistvox", version)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "twistvox: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "twistvox: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("twistvox starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry first so every later component records against the real
	// provider instead of the global noop.
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "twistvox",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to init telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	transcriber, whisperLoaded, err := buildTranscriber(cfg, reg)
	if err != nil {
		slog.Error("failed to build transcriber", "err", err)
		return 1
	}

	var st store.Store
	if cfg.Storage.PostgresDSN != "" {
		st, err = postgres.New(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			return 1
		}
		defer st.Close()
		slog.Info("postgres store connected")
	} else {
		slog.Warn("no postgres DSN configured, stats and daily challenges disabled")
	}

	corpus := twister.NewCorpus()
	if st != nil {
		seedCustomTwisters(ctx, corpus, st)
	}

	bot, err := discordbot.New(ctx, discordbot.Config{
		Token:   cfg.Discord.Token,
		GuildID: cfg.Discord.GuildID,
	})
	if err != nil {
		slog.Error("failed to create Discord bot", "err", err)
		return 1
	}
	defer func() {
		if err := bot.Close(); err != nil {
			slog.Warn("discord bot close error", "err", err)
		}
	}()
	slog.Info("discord bot connected", "guild_id", cfg.Discord.GuildID)

	reg.RegisterAudio("discord", func(*config.Config) (audio.Platform, error) {
		return bot.Platform(), nil
	})
	audioProvider := cfg.Audio.Provider
	if audioProvider == "" {
		audioProvider = "discord"
	}
	platform, err := reg.CreateAudio(audioProvider, cfg)
	if err != nil {
		slog.Error("failed to build audio platform", "err", err)
		return 1
	}
	slog.Info("audio platform selected", "provider", audioProvider)

	runner := attempt.NewRunner(cfg.Capture.Settings(), transcriber,
		attempt.WithStore(st),
		attempt.WithMetrics(metrics),
	)

	registry := game.NewRegistry()
	duels := game.NewDuelCoordinator(cfg.Game.Duel.Settings(), corpus, bot.PresenceFunc())

	gameCmds := commands.NewGameCommands(bot, commands.GameCommandsConfig{
		GuildID:    cfg.Discord.GuildID,
		Registry:   registry,
		Corpus:     corpus,
		Runner:     runner,
		Store:      st,
		TimedTotal: cfg.Game.Timed.TwistersTotal,
	})
	voices := commands.NewVoiceManager(platform, gameCmds.HandleVoiceEvent)
	gameCmds.SetVoices(voices)
	defer voices.Close()

	commands.NewDuelCommands(bot, voices, duels, runner)
	commands.NewStatsCommands(bot, st)

	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if !d.Any() {
			return
		}
		if d.LogLevelChanged {
			slog.SetDefault(newLogger(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.CaptureChanged {
			runner.SetCaptureConfig(d.NewCapture.Settings())
			slog.Info("capture tuning reloaded")
		}
		if d.GameChanged {
			slog.Info("game tuning changed, applies after restart", "hint", "duel and timed settings are read at startup")
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return bot.Run(ctx)
	})

	if cfg.Server.ListenAddr != "" {
		srv := newHTTPServer(cfg.Server.ListenAddr, metrics, st, bot, whisperLoaded)
		group.Go(func() error {
			slog.Info("http server listening", "addr", cfg.Server.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// registerBuiltinProviders wires the provider factories that ship with
// Twistvox into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterSTT("whisper", func(entry config.STTEntry) (stt.Transcriber, error) {
		var opts []whisper.Option
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		if entry.Threads > 0 {
			opts = append(opts, whisper.WithThreads(uint(entry.Threads)))
		}
		return whisper.New(entry.ModelPath, opts...)
	})

	// The "discord" audio platform needs the live gateway session, so run
	// registers it once the bot is up. "device" reads raw PCM from stdin,
	// for local play without a voice channel:
	//
	//	arecord -f S16_LE -r 16000 -c 1 | twistvox
	reg.RegisterAudio("device", func(cfg *config.Config) (audio.Platform, error) {
		devCfg := device.Config{
			SampleRate: cfg.Audio.SampleRate,
			Channels:   cfg.Audio.Channels,
		}
		if devCfg.SampleRate == 0 {
			devCfg.SampleRate = 16000
		}
		if devCfg.Channels == 0 {
			devCfg.Channels = 1
		}
		return device.NewPlatform(func() (io.Reader, error) {
			return os.Stdin, nil
		}, devCfg), nil
	})
}

// buildTranscriber assembles the primary transcriber plus the configured
// fallback chain. The returned func reports model readiness for the health
// endpoint.
func buildTranscriber(cfg *config.Config, reg *config.Registry) (stt.Transcriber, func() bool, error) {
	primary, err := reg.CreateSTT(cfg.STT.STTEntry)
	if err != nil {
		return nil, nil, fmt.Errorf("stt %q: %w", cfg.STT.Provider, err)
	}
	slog.Info("transcriber created", "provider", cfg.STT.Provider, "model", cfg.STT.ModelPath)

	loaded := func() bool { return true }
	if wp, ok := primary.(*whisper.Provider); ok {
		loaded = wp.Loaded
	}

	if len(cfg.STT.Fallbacks) == 0 {
		return primary, loaded, nil
	}

	chain := resilience.NewFallbackTranscriber(primary, cfg.STT.Provider, resilience.FallbackConfig{})
	for _, entry := range cfg.STT.Fallbacks {
		backend, err := reg.CreateSTT(entry)
		if err != nil {
			return nil, nil, fmt.Errorf("stt fallback %q: %w", entry.Provider, err)
		}
		chain.AddFallback(entry.Provider, backend)
		slog.Info("transcriber fallback registered", "provider", entry.Provider)
	}
	return chain, loaded, nil
}

// seedCustomTwisters loads player-contributed twisters from the store into
// the in-memory corpus so IDs and lookups survive restarts.
func seedCustomTwisters(ctx context.Context, corpus *twister.Corpus, st store.Store) {
	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	customs, err := st.CustomTwisters(loadCtx)
	if err != nil {
		slog.Warn("failed to load custom twisters", "err", err)
		return
	}
	for _, t := range customs {
		if err := corpus.Register(t); err != nil {
			slog.Warn("failed to register custom twister", "id", t.ID, "err", err)
		}
	}
	if len(customs) > 0 {
		slog.Info("custom twisters loaded", "count", len(customs))
	}
}

// newHTTPServer builds the metrics and health endpoint server.
func newHTTPServer(addr string, metrics *observe.Metrics, st store.Store, bot *discordbot.Bot, whisperLoaded func() bool) *http.Server {
	checkers := []health.Checker{
		health.GatewayChecker(bot.Ready),
		health.TranscriberChecker(whisperLoaded),
	}
	if st != nil {
		checkers = append(checkers, health.StoreChecker(st))
	}

	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
