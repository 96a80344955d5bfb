package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	content := `
fleet:
  boats: 20
  workers: 8
  rate_interval: 25ms
  start_row: 100
  end_row: 200
  drain_leftovers: true
datasets:
  mode: local
  local_path: /data/replays
  files: [AUS.csv, DEN.csv]
sink:
  backend: discard
  max_attempts: 3
  retry_backoff: 250ms
logging:
  format: json
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Fleet.Boats != 20 || cfg.Fleet.Workers != 8 {
		t.Errorf("fleet = %d/%d, want 20/8", cfg.Fleet.Boats, cfg.Fleet.Workers)
	}
	if cfg.Fleet.RateInterval.Std() != 25*time.Millisecond {
		t.Errorf("rate_interval = %v, want 25ms", cfg.Fleet.RateInterval.Std())
	}
	if !cfg.Fleet.DrainLeftovers {
		t.Error("drain_leftovers not parsed")
	}
	if len(cfg.Datasets.Files) != 2 || cfg.Datasets.Files[0] != "AUS.csv" {
		t.Errorf("files = %v", cfg.Datasets.Files)
	}
	if cfg.Sink.Backend != "discard" || cfg.Sink.MaxAttempts != 3 {
		t.Errorf("sink = %s/%d", cfg.Sink.Backend, cfg.Sink.MaxAttempts)
	}
	if cfg.Sink.RetryBackoff.Std() != 250*time.Millisecond {
		t.Errorf("retry_backoff = %v", cfg.Sink.RetryBackoff.Std())
	}

	// Unset sections keep their defaults.
	if cfg.Fleet.IDPrefix != "BOAT_" || cfg.Fleet.IdentityField != "boat" {
		t.Errorf("id defaults lost: %s/%s", cfg.Fleet.IDPrefix, cfg.Fleet.IdentityField)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("fleet:\n  rate_interval: fast\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "parse duration") {
		t.Errorf("err = %v, want duration parse failure", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("missing config file should fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FLEET_BOATS", "42")
	t.Setenv("FLEET_RATE_INTERVAL", "10ms")
	t.Setenv("FLEET_DRAIN_LEFTOVERS", "true")
	t.Setenv("DATASET_FILES", "A.csv, B.csv ,")
	t.Setenv("SINK_BACKEND", "stdout")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Fleet.Boats != 42 {
		t.Errorf("boats = %d, want 42", cfg.Fleet.Boats)
	}
	if cfg.Fleet.RateInterval.Std() != 10*time.Millisecond {
		t.Errorf("rate_interval = %v", cfg.Fleet.RateInterval.Std())
	}
	if !cfg.Fleet.DrainLeftovers {
		t.Error("drain_leftovers override lost")
	}
	if len(cfg.Datasets.Files) != 2 || cfg.Datasets.Files[1] != "B.csv" {
		t.Errorf("files = %v, want trimmed [A.csv B.csv]", cfg.Datasets.Files)
	}
	if cfg.Sink.Backend != "stdout" {
		t.Errorf("backend = %s", cfg.Sink.Backend)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %s", cfg.Logging.Level)
	}
}

func TestEnvBadIntKeepsDefault(t *testing.T) {
	t.Setenv("FLEET_BOATS", "lots")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Fleet.Boats != Default().Fleet.Boats {
		t.Errorf("boats = %d, want default on unparsable override", cfg.Fleet.Boats)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero boats", func(c *Config) { c.Fleet.Boats = 0 }},
		{"zero workers", func(c *Config) { c.Fleet.Workers = 0 }},
		{"zero interval", func(c *Config) { c.Fleet.RateInterval = 0 }},
		{"negative start", func(c *Config) { c.Fleet.StartRow = -1 }},
		{"inverted window", func(c *Config) { c.Fleet.StartRow = 10; c.Fleet.EndRow = 5 }},
		{"empty identity field", func(c *Config) { c.Fleet.IdentityField = "" }},
		{"no datasets", func(c *Config) { c.Datasets.Files = nil }},
		{"bad dataset mode", func(c *Config) { c.Datasets.Mode = "ftp" }},
		{"kafka without brokers", func(c *Config) { c.Sink.Brokers = nil }},
		{"kafka without topic", func(c *Config) { c.Sink.Topic = "" }},
		{"bad backend", func(c *Config) { c.Sink.Backend = "rabbitmq" }},
		{"zero attempts", func(c *Config) { c.Sink.MaxAttempts = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}
