package update

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRuntimeConfigDefaults(t *testing.T) {
	cfg, err := LoadRuntimeConfig("")
	if err != nil {
		t.Fatalf("LoadRuntimeConfig: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8000" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RefreshInterval != 30*time.Second {
		t.Fatalf("RefreshInterval = %v", cfg.RefreshInterval)
	}
	if cfg.ArchiveSweepInterval != 24*time.Hour {
		t.Fatalf("ArchiveSweepInterval = %v", cfg.ArchiveSweepInterval)
	}
}

func TestLoadRuntimeConfigMissingFileFallsBack(t *testing.T) {
	cfg, err := LoadRuntimeConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("RequestTimeout = %v", cfg.RequestTimeout)
	}
}

func TestLoadRuntimeConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sklad.toml")
	body := `api_base_url = "http://10.0.0.5:8000"
request_timeout = "5s"
refresh_interval = "1m"
scheduler_buffer = 32
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadRuntimeConfig(path)
	if err != nil {
		t.Fatalf("LoadRuntimeConfig: %v", err)
	}
	if cfg.APIBaseURL != "http://10.0.0.5:8000" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.RefreshInterval != time.Minute {
		t.Fatalf("RefreshInterval = %v", cfg.RefreshInterval)
	}
	if cfg.SchedulerBuffer != 32 {
		t.Fatalf("SchedulerBuffer = %d", cfg.SchedulerBuffer)
	}
	if cfg.ArchiveSweepInterval != 24*time.Hour {
		t.Fatalf("ArchiveSweepInterval = %v", cfg.ArchiveSweepInterval)
	}
}

func TestLoadRuntimeConfigRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sklad.toml")
	if err := os.WriteFile(path, []byte("refresh_interval = \"soon\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadRuntimeConfig(path); err == nil {
		t.Fatal("malformed duration accepted")
	}
}

func TestLoadRuntimeConfigEnvOverrides(t *testing.T) {
	t.Setenv("SKLAD_API_URL", "http://192.168.1.2:8000")
	t.Setenv("SKLAD_REFRESH_INTERVAL", "45s")
	t.Setenv("SKLAD_REQUEST_TIMEOUT", "broken")

	cfg, err := LoadRuntimeConfig("")
	if err != nil {
		t.Fatalf("LoadRuntimeConfig: %v", err)
	}
	if cfg.APIBaseURL != "http://192.168.1.2:8000" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RefreshInterval != 45*time.Second {
		t.Fatalf("RefreshInterval = %v", cfg.RefreshInterval)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("broken env should keep default, got %v", cfg.RequestTimeout)
	}
}
