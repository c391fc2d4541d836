// Package config provides the configuration schema and loader for the Echo
// voice-command bot.
package config

// LogLevel controls log verbosity for the Echo process.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Echo.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Discord  DiscordConfig  `yaml:"discord"`
	Whisper  WhisperConfig  `yaml:"whisper"`
	VAD      VADConfig      `yaml:"vad"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ServerConfig holds the operational HTTP endpoint and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the health/metrics server listens on
	// (e.g., ":8080"). Empty disables the server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`
}

// DiscordConfig holds the gateway credentials and voice targets.
type DiscordConfig struct {
	// Token is the bot token. Falls back to the DISCORD_TOKEN environment
	// variable when empty. Required.
	Token string `yaml:"token"`

	// GuildID is the guild whose voice channels Echo serves. Required.
	GuildID string `yaml:"guild_id"`

	// ChannelID is the voice channel to join on startup. Empty means wait
	// for a /listen command.
	ChannelID string `yaml:"channel_id"`

	// AckSound is a path to a PCM16 WAV file played after a successful
	// move. Empty disables the cue.
	AckSound string `yaml:"ack_sound"`
}

// WhisperConfig configures the on-device speech recognizer.
type WhisperConfig struct {
	// ModelPath is the path to a ggml whisper model file. Required.
	ModelPath string `yaml:"model_path"`

	// Language is the transcription language hint. Default: "en".
	Language string `yaml:"language"`

	// BeamSize controls the decode beam width. Default: 5.
	BeamSize int `yaml:"beam_size"`
}

// VADConfig configures voice activity detection.
type VADConfig struct {
	// ModelPath is the path to the silero ONNX model file. Required.
	ModelPath string `yaml:"model_path"`

	// FrameSizeMs is the classification window length in milliseconds.
	// Valid values: 10, 20, 30. Default: 20.
	FrameSizeMs int `yaml:"frame_size_ms"`

	// SpeechThreshold is the model probability above which a window counts
	// as speech. Default: 0.5.
	SpeechThreshold float64 `yaml:"speech_threshold"`
}

// PipelineConfig holds the segmentation and command-interpretation timings.
// Zero values take the documented defaults.
type PipelineConfig struct {
	// WakeWindowMs is how long a wake word keeps a speaker awake.
	// Default: 10000.
	WakeWindowMs int `yaml:"wake_window_ms"`

	// SilenceThresholdMs is the trailing silence that ends a phrase.
	// Default: 800.
	SilenceThresholdMs int `yaml:"silence_threshold_ms"`

	// WatchdogPeriodMs is the sweep interval of the silence watchdog.
	// Default: 500.
	WatchdogPeriodMs int `yaml:"watchdog_period_ms"`

	// MoveSuppressionMs is how long a speaker's audio is discarded after a
	// successful move. Default: 3000.
	MoveSuppressionMs int `yaml:"move_suppression_ms"`

	// MinClipSamples is the minimum sample count a phrase needs before it
	// is transcribed. Default: 8000 (0.5 s at 16 kHz).
	MinClipSamples int `yaml:"min_clip_samples"`

	// MinConfidence is the transcript confidence floor in [0, 1].
	// Default: 0.4.
	MinConfidence float64 `yaml:"min_confidence"`

	// FuzzyMatchThreshold is the minimum channel-name similarity score on
	// a 0..100 scale. Default: 75.
	FuzzyMatchThreshold float64 `yaml:"fuzzy_match_threshold"`

	// Workers is the number of transcription workers. Default: 2.
	Workers int `yaml:"workers"`

	// QueueSize is the pending-phrase queue capacity. Default: 16.
	QueueSize int `yaml:"queue_size"`
}

// ApplyDefaults fills zero-valued optional fields with their documented
// defaults. Called by [LoadFromReader] before validation.
func (c *Config) ApplyDefaults() {
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Whisper.Language == "" {
		c.Whisper.Language = "en"
	}
	if c.Whisper.BeamSize == 0 {
		c.Whisper.BeamSize = 5
	}
	if c.VAD.FrameSizeMs == 0 {
		c.VAD.FrameSizeMs = 20
	}
	if c.VAD.SpeechThreshold == 0 {
		c.VAD.SpeechThreshold = 0.5
	}

	p := &c.Pipeline
	if p.WakeWindowMs == 0 {
		p.WakeWindowMs = 10000
	}
	if p.SilenceThresholdMs == 0 {
		p.SilenceThresholdMs = 800
	}
	if p.WatchdogPeriodMs == 0 {
		p.WatchdogPeriodMs = 500
	}
	if p.MoveSuppressionMs == 0 {
		p.MoveSuppressionMs = 3000
	}
	if p.MinClipSamples == 0 {
		p.MinClipSamples = 8000
	}
	if p.MinConfidence == 0 {
		p.MinConfidence = 0.4
	}
	if p.FuzzyMatchThreshold == 0 {
		p.FuzzyMatchThreshold = 75
	}
	if p.Workers == 0 {
		p.Workers = 2
	}
	if p.QueueSize == 0 {
		p.QueueSize = 16
	}
}
