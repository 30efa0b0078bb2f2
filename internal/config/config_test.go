package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig verifies the defaults so that changing one is a deliberate act.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default retry policy is three immediate attempts", func(t *testing.T) {
		t.Parallel()
		if cfg.RetryAttempts != 3 || cfg.RetryDelay != 0 || cfg.RetryStrategy != RetryConstant {
			t.Errorf("unexpected retry defaults: %d %v %s", cfg.RetryAttempts, cfg.RetryDelay, cfg.RetryStrategy)
		}
	})

	t.Run("default ping is six attempts of one second", func(t *testing.T) {
		t.Parallel()
		if cfg.PingCount != 6 || cfg.PingTimeout != time.Second {
			t.Errorf("unexpected ping defaults: %d %v", cfg.PingCount, cfg.PingTimeout)
		}
	})

	t.Run("default ZAP poll interval is 5 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.ZAPPollInterval != 5*time.Second {
			t.Errorf("expected 5s, got %v", cfg.ZAPPollInterval)
		}
	})

	t.Run("default database lives in the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected %s, got %s", XDGDataDir(), cfg.DBDir)
		}
	})

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected defaults to validate, got %v", err)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "zero job timeout", modify: func(c *Config) { c.JobTimeout = 0 }, wantErr: ErrInvalidJobTimeout},
		{name: "negative rescan interval", modify: func(c *Config) { c.RescanInterval = -time.Second }, wantErr: ErrInvalidRescanInterval},
		{name: "disabled rescan is valid", modify: func(c *Config) { c.RescanInterval = 0 }, wantErr: nil},
		{name: "zero attempts", modify: func(c *Config) { c.RetryAttempts = 0 }, wantErr: ErrInvalidRetryAttempts},
		{name: "negative delay", modify: func(c *Config) { c.RetryDelay = -time.Second }, wantErr: ErrInvalidRetryDelay},
		{name: "exponential without delay", modify: func(c *Config) { c.RetryStrategy = RetryExponential }, wantErr: ErrInvalidRetryDelay},
		{
			name: "exponential with delay",
			modify: func(c *Config) {
				c.RetryStrategy = RetryExponential
				c.RetryDelay = time.Second
			},
			wantErr: nil,
		},
		{name: "unknown strategy", modify: func(c *Config) { c.RetryStrategy = "fibonacci" }, wantErr: ErrInvalidRetryStrategy},
		{name: "debug port out of range", modify: func(c *Config) { c.DebugPort = 70000 }, wantErr: ErrInvalidDebugPort},
		{name: "zero audit timeout", modify: func(c *Config) { c.AuditTimeout = 0 }, wantErr: ErrInvalidAuditTimeout},
		{name: "zero ping count", modify: func(c *Config) { c.PingCount = 0 }, wantErr: ErrInvalidPingCount},
		{name: "zero ping timeout", modify: func(c *Config) { c.PingTimeout = 0 }, wantErr: ErrInvalidPingTimeout},
		{name: "zero traceroute timeout", modify: func(c *Config) { c.TracerouteTimeout = 0 }, wantErr: ErrInvalidTracerouteTimeout},
		{name: "zap address without scheme", modify: func(c *Config) { c.ZAPAddress = "localhost:8081" }, wantErr: ErrInvalidZAPAddress},
		{name: "zero poll interval", modify: func(c *Config) { c.ZAPPollInterval = 0 }, wantErr: ErrInvalidPollInterval},
		{name: "negative zap retries", modify: func(c *Config) { c.ZAPRetryMax = -1 }, wantErr: ErrInvalidZAPRetryMax},
		{name: "bad ipinfo url", modify: func(c *Config) { c.IPInfoURL = "ipinfo" }, wantErr: ErrInvalidIPInfoURL},
		{name: "zero geo rate", modify: func(c *Config) { c.GeoRate = 0 }, wantErr: ErrInvalidGeoRate},
		{
			name: "json and markdown together",
			modify: func(c *Config) {
				c.JSONReport = true
				c.MarkdownReport = true
			},
			wantErr: ErrConflictingReportFormats,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml is reported", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("retry: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("file values overlay defaults", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
server:
  listen: "127.0.0.1:9000"
queue:
  job_timeout: 30m
scheduler:
  interval: 0s
  targets:
    - https://example.com
retry:
  attempts: 5
  delay: 2s
  strategy: exponential
network:
  ping_count: 4
security:
  zap_address: http://zap:8080
  zap_api_key: changeme
  poll_interval: 1s
  retry_max: 0
geo:
  rate: 0.5
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.ListenAddress != "127.0.0.1:9000" {
			t.Errorf("expected listen address override, got %s", cfg.ListenAddress)
		}
		if cfg.JobTimeout != 30*time.Minute {
			t.Errorf("expected 30m job timeout, got %v", cfg.JobTimeout)
		}
		if cfg.RescanInterval != 0 {
			t.Errorf("expected explicit 0 to disable rescans, got %v", cfg.RescanInterval)
		}
		if len(cfg.Targets) != 1 || cfg.Targets[0] != "https://example.com" {
			t.Errorf("unexpected targets: %v", cfg.Targets)
		}
		if cfg.RetryAttempts != 5 || cfg.RetryDelay != 2*time.Second || cfg.RetryStrategy != RetryExponential {
			t.Errorf("unexpected retry settings: %d %v %s", cfg.RetryAttempts, cfg.RetryDelay, cfg.RetryStrategy)
		}
		if cfg.PingCount != 4 {
			t.Errorf("expected ping count 4, got %d", cfg.PingCount)
		}
		if cfg.PingTimeout != DefaultPingTimeout {
			t.Errorf("expected untouched ping timeout, got %v", cfg.PingTimeout)
		}
		if cfg.ZAPAddress != "http://zap:8080" || cfg.ZAPAPIKey != "changeme" || cfg.ZAPPollInterval != time.Second {
			t.Errorf("unexpected ZAP settings: %s %s %v", cfg.ZAPAddress, cfg.ZAPAPIKey, cfg.ZAPPollInterval)
		}
		if cfg.ZAPRetryMax != 0 {
			t.Errorf("expected explicit zero ZAP retries, got %d", cfg.ZAPRetryMax)
		}
		if cfg.GeoRate != 0.5 {
			t.Errorf("expected geo rate 0.5, got %v", cfg.GeoRate)
		}
		if cfg.ConfigFilePath != path {
			t.Errorf("expected config path %s, got %s", path, cfg.ConfigFilePath)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected loaded config to validate, got %v", err)
		}
	})

	t.Run("explicit missing path is an error", func(t *testing.T) {
		t.Parallel()

		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}
