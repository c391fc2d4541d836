// Package app assembles the Echo voice-command pipeline: the Discord bot,
// the per-speaker segmentation core, the transcription workers, and the
// operational HTTP endpoints, and runs them under one lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/brandonviaje/echo/internal/config"
	"github.com/brandonviaje/echo/internal/discord"
	"github.com/brandonviaje/echo/internal/health"
	"github.com/brandonviaje/echo/internal/observe"
	"github.com/brandonviaje/echo/internal/voice"
	"github.com/brandonviaje/echo/pkg/audio"
	"github.com/brandonviaje/echo/pkg/provider/stt"
	"github.com/brandonviaje/echo/pkg/provider/stt/whisper"
	"github.com/brandonviaje/echo/pkg/provider/vad"
	"github.com/brandonviaje/echo/pkg/provider/vad/silero"
)

// Compile-time interface assertion.
var _ discord.VoiceController = (*App)(nil)

// App owns every long-lived component of the Echo process.
type App struct {
	cfg     *config.Config
	metrics *observe.Metrics

	bot        *discord.Bot
	actions    *discord.GuildActions
	recognizer stt.Recognizer

	manager     *voice.Manager
	pipeline    *voice.Pipeline
	watchdog    *voice.Watchdog
	dispatcher  *voice.Dispatcher
	interpreter *voice.Interpreter

	mu    sync.Mutex
	recon *Reconnector
}

// New wires up the full pipeline from cfg. The whisper model is loaded here,
// so startup fails fast on a bad model path.
func New(ctx context.Context, cfg *config.Config, metrics *observe.Metrics) (*App, error) {
	recognizer, err := whisper.New(cfg.Whisper.ModelPath,
		whisper.WithLanguage(cfg.Whisper.Language),
		whisper.WithBeamSize(cfg.Whisper.BeamSize),
	)
	if err != nil {
		return nil, fmt.Errorf("app: load whisper model: %w", err)
	}

	vadCfg := vad.Config{
		SampleRate:      voice.RecognitionFormat.SampleRate,
		FrameSizeMs:     cfg.VAD.FrameSizeMs,
		SpeechThreshold: cfg.VAD.SpeechThreshold,
	}
	detectorFactory := func() (voice.SpeechDetector, error) {
		classifier, err := silero.New(cfg.VAD.ModelPath, vadCfg)
		if err != nil {
			return nil, err
		}
		return vad.NewWindowed(classifier, vadCfg), nil
	}

	bot, err := discord.New(ctx, discord.Config{
		Token:   cfg.Discord.Token,
		GuildID: cfg.Discord.GuildID,
	})
	if err != nil {
		recognizer.Close()
		return nil, err
	}

	ack, err := loadAckCue(cfg.Discord.AckSound)
	if err != nil {
		slog.Warn("app: loading ack sound; cue disabled", "path", cfg.Discord.AckSound, "error", err)
	}
	actions := discord.NewGuildActions(bot.Session(), cfg.Discord.GuildID, ack)

	manager := voice.NewManager(detectorFactory)
	manager.OnCountChange(metrics.SessionDelta)

	p := cfg.Pipeline
	interpreter := voice.NewInterpreter(manager,
		voice.NewResolver(actions, p.FuzzyMatchThreshold),
		actions,
		voice.WithWakeWindow(time.Duration(p.WakeWindowMs)*time.Millisecond),
		voice.WithMoveSuppression(time.Duration(p.MoveSuppressionMs)*time.Millisecond),
		voice.WithInterpreterMetrics(metrics),
	)
	dispatcher := voice.NewDispatcher(recognizer, interpreter.HandlePhrase,
		voice.WithWorkers(p.Workers),
		voice.WithQueueSize(p.QueueSize),
		voice.WithMinClipSamples(p.MinClipSamples),
		voice.WithMinConfidence(p.MinConfidence),
		voice.WithMetrics(metrics),
	)
	watchdog := voice.NewWatchdog(manager,
		time.Duration(p.SilenceThresholdMs)*time.Millisecond,
		time.Duration(p.WatchdogPeriodMs)*time.Millisecond,
		dispatcher.Dispatch,
	)

	a := &App{
		cfg:         cfg,
		metrics:     metrics,
		bot:         bot,
		actions:     actions,
		recognizer:  recognizer,
		manager:     manager,
		pipeline:    voice.NewPipeline(manager, voice.WithPipelineMetrics(metrics)),
		watchdog:    watchdog,
		dispatcher:  dispatcher,
		interpreter: interpreter,
	}
	discord.RegisterCommands(bot, a)
	return a, nil
}

// Run starts every component and blocks until ctx is cancelled or a
// component fails. The voice connection is joined at startup when a channel
// is configured.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.bot.Run(ctx) })
	g.Go(func() error { return a.watchdog.Run(ctx) })
	g.Go(func() error { return a.dispatcher.Run(ctx) })

	if addr := a.cfg.Server.ListenAddr; addr != "" {
		g.Go(func() error { return a.serveHTTP(ctx, addr) })
	}

	if channelID := a.cfg.Discord.ChannelID; channelID != "" {
		if err := a.Listen(ctx, channelID); err != nil {
			slog.Error("app: joining configured channel", "channel_id", channelID, "error", err)
		}
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Listen joins channelID and starts feeding its audio into the pipeline,
// with automatic redial on transport drops. Joining while already connected
// moves the bot; the session arena is cleared so no cross-channel phrase
// survives the switch.
func (a *App) Listen(ctx context.Context, channelID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.recon != nil {
		if a.recon.ChannelID() == channelID {
			return nil
		}
		if err := a.recon.Stop(); err != nil {
			slog.Warn("app: disconnecting previous voice connection", "error", err)
		}
		a.recon = nil
		a.actions.SetConnection(nil)
		a.manager.Close()
	}

	recon := NewReconnector(ReconnectorConfig{
		Platform:    a.bot.Platform(),
		ChannelID:   channelID,
		OnConnected: a.attachConnection,
	})
	if err := recon.Start(ctx); err != nil {
		return err
	}

	a.recon = recon
	slog.Info("app: listening", "channel_id", channelID)
	return nil
}

// attachConnection wires a fresh voice connection into the pipeline. Runs on
// the initial connect and on every automatic reconnect; segmentation state
// from before the gap is stale and is discarded.
func (a *App) attachConnection(conn audio.Connection) {
	a.manager.Close()
	conn.OnFrame(a.pipeline.HandleFrame)
	conn.OnParticipantChange(a.pipeline.HandleEvent)
	a.actions.SetConnection(conn)
}

// Leave disconnects from voice and drops all segmentation state.
func (a *App) Leave(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.recon == nil {
		return errors.New("app: not connected to a voice channel")
	}
	err := a.recon.Stop()
	a.recon = nil
	a.actions.SetConnection(nil)
	a.manager.Close()
	if err != nil {
		return fmt.Errorf("app: disconnect: %w", err)
	}
	slog.Info("app: left voice channel")
	return nil
}

// serveHTTP runs the health and metrics endpoints until ctx is cancelled.
func (a *App) serveHTTP(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	health.New(
		health.Checker{Name: "gateway", Check: a.bot.Ready},
		health.Checker{Name: "whisper", Check: a.recognizerReady},
	).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: observe.Middleware(a.metrics)(mux),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("app: http server listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("app: http server shutdown", "error", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: http server: %w", err)
	}
}

// recognizerReady reports whether the whisper model is loaded. The model is
// loaded fail-fast in [New], so this is a static confirmation for /readyz.
func (a *App) recognizerReady(context.Context) error {
	if a.recognizer == nil {
		return errors.New("whisper model not loaded")
	}
	return nil
}

// Close tears down the voice connection, the bot, and the recognizer.
func (a *App) Close() error {
	var errs []error

	a.mu.Lock()
	if a.recon != nil {
		if err := a.recon.Stop(); err != nil {
			errs = append(errs, err)
		}
		a.recon = nil
	}
	a.mu.Unlock()

	a.manager.Close()
	if err := a.bot.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.recognizer.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// loadAckCue reads and decodes the acknowledgement WAV, converted to the
// 48 kHz stereo format Discord playback expects. An empty path returns nil.
func loadAckCue(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pcm, format, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, err
	}
	conv := &audio.FormatConverter{Target: audio.Format{SampleRate: 48000, Channels: 2}}
	out := conv.Convert(audio.Frame{Data: pcm, SampleRate: format.SampleRate, Channels: format.Channels})
	return out.Data, nil
}
