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

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
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

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if cfg.Discord.Token == "" {
		cfg.Discord.Token = os.Getenv("DISCORD_TOKEN")
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validFrameSizes are the VAD window lengths the classifier accepts.
var validFrameSizes = []int{10, 20, 30}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Discord.Token == "" {
		errs = append(errs, errors.New("discord.token (or DISCORD_TOKEN) is required"))
	}
	if cfg.Discord.GuildID == "" {
		errs = append(errs, errors.New("discord.guild_id is required"))
	}
	if cfg.Discord.ChannelID == "" {
		slog.Info("discord.channel_id is empty; waiting for /listen to join a channel")
	}

	if cfg.Whisper.ModelPath == "" {
		errs = append(errs, errors.New("whisper.model_path is required"))
	}
	if cfg.Whisper.BeamSize < 0 {
		errs = append(errs, fmt.Errorf("whisper.beam_size %d must not be negative", cfg.Whisper.BeamSize))
	}

	if cfg.VAD.ModelPath == "" {
		errs = append(errs, errors.New("vad.model_path is required"))
	}
	if !slices.Contains(validFrameSizes, cfg.VAD.FrameSizeMs) {
		errs = append(errs, fmt.Errorf("vad.frame_size_ms %d is invalid; valid values: 10, 20, 30", cfg.VAD.FrameSizeMs))
	}
	if cfg.VAD.SpeechThreshold < 0 || cfg.VAD.SpeechThreshold > 1 {
		errs = append(errs, fmt.Errorf("vad.speech_threshold %.2f is out of range [0, 1]", cfg.VAD.SpeechThreshold))
	}

	p := cfg.Pipeline
	if p.WakeWindowMs < 0 {
		errs = append(errs, fmt.Errorf("pipeline.wake_window_ms %d must not be negative", p.WakeWindowMs))
	}
	if p.SilenceThresholdMs < 0 {
		errs = append(errs, fmt.Errorf("pipeline.silence_threshold_ms %d must not be negative", p.SilenceThresholdMs))
	}
	if p.WatchdogPeriodMs <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.watchdog_period_ms %d must be positive", p.WatchdogPeriodMs))
	}
	if p.WatchdogPeriodMs > 0 && p.SilenceThresholdMs > 0 && p.WatchdogPeriodMs > p.SilenceThresholdMs {
		slog.Warn("pipeline.watchdog_period_ms exceeds silence_threshold_ms; phrase flushing will lag",
			"watchdog_period_ms", p.WatchdogPeriodMs,
			"silence_threshold_ms", p.SilenceThresholdMs,
		)
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("pipeline.min_confidence %.2f is out of range [0, 1]", p.MinConfidence))
	}
	if p.FuzzyMatchThreshold < 0 || p.FuzzyMatchThreshold > 100 {
		errs = append(errs, fmt.Errorf("pipeline.fuzzy_match_threshold %.2f is out of range [0, 100]", p.FuzzyMatchThreshold))
	}
	if p.MinClipSamples < 0 {
		errs = append(errs, fmt.Errorf("pipeline.min_clip_samples %d must not be negative", p.MinClipSamples))
	}
	if p.Workers < 1 {
		errs = append(errs, fmt.Errorf("pipeline.workers %d must be at least 1", p.Workers))
	}
	if p.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("pipeline.queue_size %d must be at least 1", p.QueueSize))
	}

	return errors.Join(errs...)
}
