package config

import (
	"log/slog"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:                    "8080",
		DatabaseDSN:             "postgres://localhost/talabot",
		OpenRouterAPIKey:        "sk-test",
		AIModel:                 "openai/gpt-4o-mini",
		AITimeout:               60 * time.Second,
		WhisperModel:            "whisper-1",
		AudioMaxFileSizeMB:      20,
		AudioMaxDurationSeconds: 300,
		TrialDays:               30,
		LogLevel:                "INFO",
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"missing api key", func(c *Config) { c.OpenRouterAPIKey = "" }},
		{"missing dsn", func(c *Config) { c.DatabaseDSN = "" }},
		{"zero trial days", func(c *Config) { c.TrialDays = 0 }},
		{"negative audio size", func(c *Config) { c.AudioMaxFileSizeMB = -1 }},
		{"zero audio duration", func(c *Config) { c.AudioMaxDurationSeconds = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port got %q", cfg.Port)
	}
	if cfg.TrialDays != 30 {
		t.Fatalf("expected default trial days got %d", cfg.TrialDays)
	}
	if cfg.WebhookPath != "/webhook" {
		t.Fatalf("expected default webhook path got %q", cfg.WebhookPath)
	}
	if cfg.AITimeout != 60*time.Second {
		t.Fatalf("expected default timeout got %v", cfg.AITimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRIAL_DAYS", "7")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("AUDIO_MAX_FILE_SIZE_MB", "5")

	cfg := Load()
	if cfg.TrialDays != 7 {
		t.Fatalf("expected trial override got %d", cfg.TrialDays)
	}
	if cfg.LogLevel != "DEBUG" || cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level")
	}
	if cfg.AudioMaxBytes() != 5*1024*1024 {
		t.Fatalf("expected 5MB limit got %d", cfg.AudioMaxBytes())
	}
}

func TestParseIntBadValueFallsBack(t *testing.T) {
	t.Setenv("TRIAL_DAYS", "not-a-number")
	cfg := Load()
	if cfg.TrialDays != 30 {
		t.Fatalf("expected default on parse failure got %d", cfg.TrialDays)
	}
}
