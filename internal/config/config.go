// Package config loads the Fleet Simulator configuration from a YAML file
// with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full simulator configuration, fixed for the duration of a run.
type Config struct {
	Fleet    FleetConfig   `yaml:"fleet"`
	Datasets DatasetConfig `yaml:"datasets"`
	Sink     SinkConfig    `yaml:"sink"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Logging  LoggingConfig `yaml:"logging"`
}

// FleetConfig controls the simulated fleet and the scheduler.
type FleetConfig struct {
	Boats        int      `yaml:"boats"`
	Workers      int      `yaml:"workers"`
	RateInterval Duration `yaml:"rate_interval"`

	// Row window applied to each boat's dataset. Half-open [start,end),
	// 0-based over data rows (the header is never counted).
	StartRow int `yaml:"start_row"`
	EndRow   int `yaml:"end_row"`

	IDPrefix      string `yaml:"id_prefix"`
	IdentityField string `yaml:"identity_field"`

	// DrainLeftovers lets workers return to the queue after finishing a
	// batch. The default (false) keeps the claim-once partitioning, which
	// can leave boats unclaimed when boats > workers*capacity.
	DrainLeftovers bool `yaml:"drain_leftovers"`
}

// DatasetConfig describes where the recorded datasets live.
type DatasetConfig struct {
	Mode string `yaml:"mode"` // "local" | "gcs" | "s3"

	LocalPath string `yaml:"local_path"`

	Bucket     string `yaml:"bucket"`
	Prefix     string `yaml:"prefix"`
	S3Endpoint string `yaml:"s3_endpoint"`
	S3Region   string `yaml:"s3_region"`

	// Files are assigned to boats round-robin.
	Files []string `yaml:"files"`
}

// SinkConfig describes the message sink.
type SinkConfig struct {
	Backend string   `yaml:"backend"` // "kafka" | "stdout" | "discard"
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Linger  Duration `yaml:"linger"`

	// MaxAttempts is the per-record publish policy: 1 means a failed record
	// is logged and skipped, >1 retries with backoff before skipping.
	MaxAttempts  int      `yaml:"max_attempts"`
	RetryBackoff Duration `yaml:"retry_backoff"`
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Format string `yaml:"format"` // "json" | "text"
	Level  string `yaml:"level"`  // "debug" | "info" | "warn" | "error"
}

// Duration wraps time.Duration so YAML values like "50ms" parse directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration defaults, matching the recorded-run
// setup the simulator replays.
func Default() Config {
	return Config{
		Fleet: FleetConfig{
			Boats:         10,
			Workers:       4,
			RateInterval:  Duration(50 * time.Millisecond),
			StartRow:      0,
			EndRow:        10000,
			IDPrefix:      "BOAT_",
			IdentityField: "boat",
		},
		Datasets: DatasetConfig{
			Mode:      "local",
			LocalPath: "./orderedData",
			Files:     []string{"ITA.csv", "USA.csv", "GBR.csv", "NZL.csv", "FRA.csv", "SUI.csv"},
		},
		Sink: SinkConfig{
			Backend:      "kafka",
			Brokers:      []string{"localhost:9091"},
			Topic:        "boat_data",
			Linger:       Duration(10 * time.Millisecond),
			MaxAttempts:  1,
			RetryBackoff: Duration(100 * time.Millisecond),
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// Load reads the configuration from the given YAML file (optional), applies
// environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// MustLoad loads the configuration from the path in CONFIG_PATH (if set) and
// exits on failure.
func MustLoad() Config {
	path := os.Getenv("CONFIG_PATH")
	if path != "" {
		log.Printf("[config] loading %s", path)
	}

	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	return cfg
}

// Validate rejects configurations that cannot produce a meaningful run.
func (c Config) Validate() error {
	if c.Fleet.Boats < 1 {
		return errors.New("fleet.boats must be at least 1")
	}
	if c.Fleet.Workers < 1 {
		return errors.New("fleet.workers must be at least 1")
	}
	if c.Fleet.RateInterval <= 0 {
		return errors.New("fleet.rate_interval must be positive")
	}
	if c.Fleet.StartRow < 0 || c.Fleet.EndRow < c.Fleet.StartRow {
		return fmt.Errorf("invalid row window [%d,%d)", c.Fleet.StartRow, c.Fleet.EndRow)
	}
	if c.Fleet.IdentityField == "" {
		return errors.New("fleet.identity_field must be set")
	}
	if len(c.Datasets.Files) == 0 {
		return errors.New("datasets.files must list at least one dataset")
	}
	switch c.Datasets.Mode {
	case "local", "gcs", "s3":
	default:
		return fmt.Errorf("unknown datasets.mode: %s", c.Datasets.Mode)
	}
	switch c.Sink.Backend {
	case "kafka":
		if len(c.Sink.Brokers) == 0 {
			return errors.New("sink.brokers required for kafka backend")
		}
		if c.Sink.Topic == "" {
			return errors.New("sink.topic required for kafka backend")
		}
	case "stdout", "discard":
	default:
		return fmt.Errorf("unknown sink.backend: %s", c.Sink.Backend)
	}
	if c.Sink.MaxAttempts < 1 {
		return errors.New("sink.max_attempts must be at least 1")
	}
	return nil
}

// applyEnv overrides the loaded configuration with environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("FLEET_BOATS"); v != "" {
		cfg.Fleet.Boats = parseInt(v, cfg.Fleet.Boats)
	}
	if v := os.Getenv("FLEET_WORKERS"); v != "" {
		cfg.Fleet.Workers = parseInt(v, cfg.Fleet.Workers)
	}
	if v := os.Getenv("FLEET_RATE_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Fleet.RateInterval = Duration(parsed)
		}
	}
	if v := os.Getenv("FLEET_START_ROW"); v != "" {
		cfg.Fleet.StartRow = parseInt(v, cfg.Fleet.StartRow)
	}
	if v := os.Getenv("FLEET_END_ROW"); v != "" {
		cfg.Fleet.EndRow = parseInt(v, cfg.Fleet.EndRow)
	}
	if v := os.Getenv("FLEET_DRAIN_LEFTOVERS"); v != "" {
		cfg.Fleet.DrainLeftovers = v == "true"
	}
	if v := os.Getenv("DATASET_MODE"); v != "" {
		cfg.Datasets.Mode = v
	}
	if v := os.Getenv("DATASET_LOCAL_PATH"); v != "" {
		cfg.Datasets.LocalPath = v
	}
	if v := os.Getenv("DATASET_BUCKET"); v != "" {
		cfg.Datasets.Bucket = v
	}
	if v := os.Getenv("DATASET_FILES"); v != "" {
		cfg.Datasets.Files = splitNonEmpty(v)
	}
	if v := os.Getenv("SINK_BACKEND"); v != "" {
		cfg.Sink.Backend = v
	}
	if v := os.Getenv("SINK_BROKERS"); v != "" {
		cfg.Sink.Brokers = splitNonEmpty(v)
	}
	if v := os.Getenv("SINK_TOPIC"); v != "" {
		cfg.Sink.Topic = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = v == "true"
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Metrics.Address = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func parseInt(v string, def int) int {
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func splitNonEmpty(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
