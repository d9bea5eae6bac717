package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/pillship/internal/domain"
)

// Config holds CLI configuration for pillship.
type Config struct {
	DataDir      string
	ScheduleFile string
	TempFile     string

	// Device is a serial device carrying the framed stream
	Device string

	// ListenAddr is where the websocket transport listens when no Device
	// is configured
	ListenAddr string

	PollInterval    time.Duration
	RefreshInterval time.Duration

	IdleTimeout  time.Duration
	TotalTimeout time.Duration
	AckEvery     int
	BufferSize   int

	NotificationDwell time.Duration
	FeedTimeout       time.Duration
	WeightThreshold   float64
	SettleDelay       time.Duration

	MaxScheduleBytes int
	JournalPath      string
	LogLevel         string
	Watch            bool
}

// DefaultListenAddr is the default websocket transport address.
const DefaultListenAddr = "127.0.0.1:7070"

// DefaultDataDir returns ~/.pillship/sd, or a relative directory when the
// home directory is unknown.
func DefaultDataDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".pillship", "sd")
	}
	return "pillship-sd"
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		DataDir:           DefaultDataDir(),
		ScheduleFile:      "data.json",
		TempFile:          "data.json.tmp",
		ListenAddr:        DefaultListenAddr,
		PollInterval:      10 * time.Millisecond,
		RefreshInterval:   5 * time.Second,
		IdleTimeout:       5 * time.Second,
		TotalTimeout:      20 * time.Second,
		AckEvery:          32,
		BufferSize:        64,
		NotificationDwell: 30 * time.Second,
		FeedTimeout:       8 * time.Second,
		WeightThreshold:   0.2,
		SettleDelay:       500 * time.Millisecond,
		MaxScheduleBytes:  64 << 10, // 64KB
		JournalPath:       "", // Derived from DataDir during Validate
		LogLevel:          "info",
		Watch:             true,
	}
}

// SchedulePath returns the canonical schedule file path.
func (c *Config) SchedulePath() string {
	return filepath.Join(c.DataDir, c.ScheduleFile)
}

// Validate checks the configuration for errors and sets derived defaults.
// Errors wrap domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return invalid("data-dir is required")
	}
	if c.ScheduleFile == "" || c.TempFile == "" {
		return invalid("schedule-file and temp-file are required")
	}
	if c.ScheduleFile == c.TempFile {
		return invalid("schedule-file and temp-file must differ")
	}
	if c.Device == "" && c.ListenAddr == "" {
		return invalid("either device or listen-addr is required")
	}

	if c.JournalPath == "" {
		c.JournalPath = filepath.Join(c.DataDir, "journal.db")
	}

	if c.PollInterval <= 0 {
		return invalid("poll interval must be positive")
	}
	if c.RefreshInterval <= 0 {
		return invalid("refresh interval must be positive")
	}
	if c.IdleTimeout <= 0 || c.TotalTimeout <= 0 {
		return invalid("receive timeouts must be positive")
	}
	if c.IdleTimeout > c.TotalTimeout {
		return invalid("idle timeout exceeds total timeout")
	}
	if c.AckEvery < 0 {
		return invalid("ack-every must not be negative")
	}
	if c.BufferSize < 16 {
		return invalid("buffer size must be at least 16 bytes")
	}
	if c.FeedTimeout <= 0 {
		return invalid("feed timeout must be positive")
	}
	if c.WeightThreshold <= 0 {
		return invalid("weight threshold must be positive")
	}
	if c.MaxScheduleBytes <= 0 {
		return invalid("max schedule bytes must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return invalid("log level %q: %v", c.LogLevel, err)
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
