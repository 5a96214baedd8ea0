package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	defer os.Chdir(cwd)

	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir temp dir: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.DatasetsDir != "datasets" {
		t.Fatalf("expected default datasets dir, got %q", cfg.Paths.DatasetsDir)
	}
	if cfg.Source != "<defaults>" {
		t.Fatalf("expected default source marker, got %q", cfg.Source)
	}
	if cfg.Capture.FrameRate != 30 {
		t.Fatalf("unexpected default frame rate: %d", cfg.Capture.FrameRate)
	}
	if cfg.Capture.QueueCapacity != 1024 {
		t.Fatalf("unexpected default queue capacity: %d", cfg.Capture.QueueCapacity)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "devent.yaml")
	content := "paths:\n  datasets_dir: recordings\n  staging_dir: outbox\ncapture:\n  monitor: \"2\"\n  frame_rate: 60\n  video_format: MP4\n  duration_seconds: 120\n  queue_capacity: 256\nlogging:\n  level: DEBUG\n  format: console\n"

	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if got := cfg.Paths.DatasetsDir; got != "recordings" {
		t.Fatalf("unexpected datasets dir: %q", got)
	}
	if got := cfg.Paths.StagingDir; got != "outbox" {
		t.Fatalf("unexpected staging dir: %q", got)
	}
	if got := cfg.Capture.Monitor; got != "2" {
		t.Fatalf("unexpected monitor: %q", got)
	}
	if got := cfg.Capture.FrameRate; got != 60 {
		t.Fatalf("unexpected frame rate: %d", got)
	}
	if got := cfg.Capture.VideoFormat; got != "mp4" {
		t.Fatalf("video format not normalised: %q", got)
	}
	if got := cfg.Capture.DurationSeconds; got != 120 {
		t.Fatalf("unexpected duration: %d", got)
	}
	// Unset keys keep their defaults.
	if got := cfg.Capture.EnqueueTimeoutMillis; got != 2000 {
		t.Fatalf("unexpected enqueue timeout: %d", got)
	}
	if got := cfg.Logging.Level; got != "debug" {
		t.Fatalf("log level not normalised: %q", got)
	}
	if got := cfg.Logging.Format; got != "console" {
		t.Fatalf("unexpected log format: %q", got)
	}
	if cfg.Source != cfgPath {
		t.Fatalf("unexpected source: %q", cfg.Source)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty datasets dir", func(c *Config) { c.Paths.DatasetsDir = " " }},
		{"empty staging dir", func(c *Config) { c.Paths.StagingDir = "" }},
		{"zero frame rate", func(c *Config) { c.Capture.FrameRate = 0 }},
		{"empty video format", func(c *Config) { c.Capture.VideoFormat = "" }},
		{"negative duration", func(c *Config) { c.Capture.DurationSeconds = -1 }},
		{"zero queue capacity", func(c *Config) { c.Capture.QueueCapacity = 0 }},
		{"zero enqueue timeout", func(c *Config) { c.Capture.EnqueueTimeoutMillis = 0 }},
		{"zero launch timeout", func(c *Config) { c.Capture.LaunchTimeoutSeconds = 0 }},
		{"zero stop timeout", func(c *Config) { c.Capture.StopTimeoutSeconds = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate accepted %s", tc.name)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestNormalizeLogLevel(t *testing.T) {
	if got, err := NormalizeLogLevel(" WARN "); err != nil || got != "warn" {
		t.Fatalf("NormalizeLogLevel = %q, %v", got, err)
	}
	if _, err := NormalizeLogLevel("chatty"); err == nil {
		t.Fatalf("NormalizeLogLevel accepted unknown level")
	}
}
