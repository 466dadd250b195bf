package update

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// RuntimeConfig tunes the TUI client. Values come from defaults, then an
// optional TOML file, then SKLAD_* environment variables.
type RuntimeConfig struct {
	APIBaseURL           string
	RequestTimeout       time.Duration
	RefreshInterval      time.Duration
	ArchiveSweepInterval time.Duration
	SchedulerBuffer      int
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		APIBaseURL:           "http://localhost:8000",
		RequestTimeout:       10 * time.Second,
		RefreshInterval:      30 * time.Second,
		ArchiveSweepInterval: 24 * time.Hour,
		SchedulerBuffer:      16,
	}
}

// fileConfig is the TOML shape: durations are written as strings ("30s").
type fileConfig struct {
	APIBaseURL           string `toml:"api_base_url"`
	RequestTimeout       string `toml:"request_timeout"`
	RefreshInterval      string `toml:"refresh_interval"`
	ArchiveSweepInterval string `toml:"archive_sweep_interval"`
	SchedulerBuffer      int    `toml:"scheduler_buffer"`
}

// LoadRuntimeConfig reads the optional config file at path and applies
// environment overrides. A missing file is not an error; a malformed one is.
func LoadRuntimeConfig(path string) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()

	if path != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("update: read config %s: %w", path, err)
			}
		} else {
			if fc.APIBaseURL != "" {
				cfg.APIBaseURL = fc.APIBaseURL
			}
			if err := applyDuration(&cfg.RequestTimeout, fc.RequestTimeout); err != nil {
				return cfg, fmt.Errorf("update: config request_timeout: %w", err)
			}
			if err := applyDuration(&cfg.RefreshInterval, fc.RefreshInterval); err != nil {
				return cfg, fmt.Errorf("update: config refresh_interval: %w", err)
			}
			if err := applyDuration(&cfg.ArchiveSweepInterval, fc.ArchiveSweepInterval); err != nil {
				return cfg, fmt.Errorf("update: config archive_sweep_interval: %w", err)
			}
			if fc.SchedulerBuffer > 0 {
				cfg.SchedulerBuffer = fc.SchedulerBuffer
			}
		}
	}

	cfg.APIBaseURL = getEnvString("SKLAD_API_URL", cfg.APIBaseURL)
	cfg.RequestTimeout = getEnvDuration("SKLAD_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.RefreshInterval = getEnvDuration("SKLAD_REFRESH_INTERVAL", cfg.RefreshInterval)
	cfg.ArchiveSweepInterval = getEnvDuration("SKLAD_ARCHIVE_SWEEP_INTERVAL", cfg.ArchiveSweepInterval)

	return cfg, nil
}

func applyDuration(dst *time.Duration, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	*dst = d
	return nil
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
