package config_test

import (
	"strings"
	"testing"

	"github.com/brandonviaje/echo/internal/config"
)

const minimalYAML = `
discord:
  token: abc123
  guild_id: "42"
whisper:
  model_path: /models/ggml-base.en.bin
vad:
  model_path: /models/silero_vad.onnx
`

func TestLoadFromReader_AppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Whisper.Language != "en" {
		t.Errorf("Language = %q, want en", cfg.Whisper.Language)
	}
	if cfg.Whisper.BeamSize != 5 {
		t.Errorf("BeamSize = %d, want 5", cfg.Whisper.BeamSize)
	}
	if cfg.VAD.FrameSizeMs != 20 {
		t.Errorf("FrameSizeMs = %d, want 20", cfg.VAD.FrameSizeMs)
	}
	// Must stay float64: the value feeds vad.Config.SpeechThreshold directly.
	var threshold float64 = cfg.VAD.SpeechThreshold
	if threshold != 0.5 {
		t.Errorf("SpeechThreshold = %v, want 0.5", threshold)
	}

	p := cfg.Pipeline
	if p.WakeWindowMs != 10000 {
		t.Errorf("WakeWindowMs = %d, want 10000", p.WakeWindowMs)
	}
	if p.SilenceThresholdMs != 800 {
		t.Errorf("SilenceThresholdMs = %d, want 800", p.SilenceThresholdMs)
	}
	if p.WatchdogPeriodMs != 500 {
		t.Errorf("WatchdogPeriodMs = %d, want 500", p.WatchdogPeriodMs)
	}
	if p.MoveSuppressionMs != 3000 {
		t.Errorf("MoveSuppressionMs = %d, want 3000", p.MoveSuppressionMs)
	}
	if p.MinClipSamples != 8000 {
		t.Errorf("MinClipSamples = %d, want 8000", p.MinClipSamples)
	}
	if p.MinConfidence != 0.4 {
		t.Errorf("MinConfidence = %v, want 0.4", p.MinConfidence)
	}
	if p.FuzzyMatchThreshold != 75 {
		t.Errorf("FuzzyMatchThreshold = %v, want 75", p.FuzzyMatchThreshold)
	}
}

func TestLoadFromReader_MissingRequiredFields(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "") // no t.Parallel: env fallback must not kick in
	_, err := config.LoadFromReader(strings.NewReader("server:\n  log_level: info\n"))
	if err == nil {
		t.Fatal("expected error for empty config, got nil")
	}
	for _, want := range []string{"discord.token", "discord.guild_id", "whisper.model_path", "vad.model_path"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()
	yaml := minimalYAML + "\nwhispr:\n  model_path: /oops\n"
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown top-level field, got nil")
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "bad log level",
			yaml:    minimalYAML + "server:\n  log_level: verbose\n",
			wantErr: "server.log_level",
		},
		{
			name: "bad frame size",
			yaml: `
discord:
  token: abc123
  guild_id: "42"
whisper:
  model_path: /models/ggml-base.en.bin
vad:
  model_path: /models/silero_vad.onnx
  frame_size_ms: 25
`,
			wantErr: "vad.frame_size_ms",
		},
		{
			name:    "confidence out of range",
			yaml:    minimalYAML + "pipeline:\n  min_confidence: 1.5\n",
			wantErr: "pipeline.min_confidence",
		},
		{
			name:    "fuzzy threshold out of range",
			yaml:    minimalYAML + "pipeline:\n  fuzzy_match_threshold: 150\n",
			wantErr: "pipeline.fuzzy_match_threshold",
		},
		{
			name:    "negative wake window",
			yaml:    minimalYAML + "pipeline:\n  wake_window_ms: -1\n",
			wantErr: "pipeline.wake_window_ms",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error should mention %s, got: %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadFromReader_TokenFromEnv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")

	yaml := `
discord:
  guild_id: "42"
whisper:
  model_path: /models/ggml-base.en.bin
vad:
  model_path: /models/silero_vad.onnx
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Discord.Token != "env-token" {
		t.Errorf("Token = %q, want env fallback value", cfg.Discord.Token)
	}
}
