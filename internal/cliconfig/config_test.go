package cliconfig

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bft-labs/pillship/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ScheduleFile != "data.json" || cfg.TempFile != "data.json.tmp" {
		t.Errorf("files = %s/%s, want data.json/data.json.tmp", cfg.ScheduleFile, cfg.TempFile)
	}
	if cfg.IdleTimeout != 5*time.Second || cfg.TotalTimeout != 20*time.Second {
		t.Errorf("timeouts = %v/%v, want 5s/20s", cfg.IdleTimeout, cfg.TotalTimeout)
	}
	if cfg.BufferSize != 64 {
		t.Errorf("BufferSize = %v, want 64", cfg.BufferSize)
	}
	if cfg.NotificationDwell != 30*time.Second {
		t.Errorf("NotificationDwell = %v, want 30s", cfg.NotificationDwell)
	}
	if cfg.MaxScheduleBytes != 64<<10 {
		t.Errorf("MaxScheduleBytes = %v, want 64KB", cfg.MaxScheduleBytes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.DataDir = "/tmp/sd"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"valid with device", func(c *Config) { c.Device = "/dev/ttyUSB0" }, false},
		{"valid with listen addr", func(c *Config) { c.ListenAddr = ":8765" }, false},
		{"ack disabled", func(c *Config) { c.AckEvery = 0 }, false},
		{"missing data dir", func(c *Config) { c.DataDir = "" }, true},
		{"missing schedule file", func(c *Config) { c.ScheduleFile = "" }, true},
		{"temp equals schedule", func(c *Config) { c.TempFile = c.ScheduleFile }, true},
		{"device only", func(c *Config) { c.Device = "/dev/ttyUSB0"; c.ListenAddr = "" }, false},
		{"no transport", func(c *Config) { c.ListenAddr = "" }, true},
		{"invalid poll interval", func(c *Config) { c.PollInterval = -1 }, true},
		{"zero refresh", func(c *Config) { c.RefreshInterval = 0 }, true},
		{"idle above total", func(c *Config) { c.IdleTimeout = time.Minute }, true},
		{"negative ack", func(c *Config) { c.AckEvery = -1 }, true},
		{"buffer too small", func(c *Config) { c.BufferSize = 8 }, true},
		{"zero feed timeout", func(c *Config) { c.FeedTimeout = 0 }, true},
		{"zero weight threshold", func(c *Config) { c.WeightThreshold = 0 }, true},
		{"zero max bytes", func(c *Config) { c.MaxScheduleBytes = 0 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_Validate_Derivations(t *testing.T) {
	c1 := validConfig()
	if err := c1.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if want := filepath.Join("/tmp/sd", "journal.db"); c1.JournalPath != want {
		t.Errorf("JournalPath = %v, want %v", c1.JournalPath, want)
	}
	if want := filepath.Join("/tmp/sd", "data.json"); c1.SchedulePath() != want {
		t.Errorf("SchedulePath() = %v, want %v", c1.SchedulePath(), want)
	}

	// JournalPath respects explicit override
	c2 := validConfig()
	c2.JournalPath = "/var/lib/pillship/history.db"
	if err := c2.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if c2.JournalPath != "/var/lib/pillship/history.db" {
		t.Errorf("JournalPath = %v, want override", c2.JournalPath)
	}
}

func TestSetLevel(t *testing.T) {
	if err := SetLevel("debug"); err != nil {
		t.Errorf("SetLevel(debug) = %v", err)
	}
	if err := SetLevel("nope"); err == nil {
		t.Error("SetLevel(nope) expected error")
	}
	_ = SetLevel("info")
}
