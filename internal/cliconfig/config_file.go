package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	DataDir           string  `toml:"data_dir"`
	ScheduleFile      string  `toml:"schedule_file"`
	TempFile          string  `toml:"temp_file"`
	Device            string  `toml:"device"`
	ListenAddr        string  `toml:"listen_addr"`
	PollInterval      string  `toml:"poll_interval"`
	RefreshInterval   string  `toml:"refresh_interval"`
	IdleTimeout       string  `toml:"idle_timeout"`
	TotalTimeout      string  `toml:"total_timeout"`
	AckEvery          int     `toml:"ack_every"`
	BufferSize        int     `toml:"buffer_size"`
	NotificationDwell string  `toml:"notification_dwell"`
	FeedTimeout       string  `toml:"feed_timeout"`
	WeightThreshold   float64 `toml:"weight_threshold"`
	SettleDelay       string  `toml:"settle_delay"`
	MaxScheduleBytes  int     `toml:"max_schedule_bytes"`
	JournalPath       string  `toml:"journal_path"`
	LogLevel          string  `toml:"log_level"`
	Watch             *bool   `toml:"watch"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.pillship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".pillship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("schedule-file", fc.ScheduleFile, &cfg.ScheduleFile)
	s.setString("temp-file", fc.TempFile, &cfg.TempFile)
	s.setString("device", fc.Device, &cfg.Device)
	s.setString("listen", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("journal", fc.JournalPath, &cfg.JournalPath)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"poll", fc.PollInterval, &cfg.PollInterval},
		{"refresh", fc.RefreshInterval, &cfg.RefreshInterval},
		{"idle-timeout", fc.IdleTimeout, &cfg.IdleTimeout},
		{"total-timeout", fc.TotalTimeout, &cfg.TotalTimeout},
		{"notification-dwell", fc.NotificationDwell, &cfg.NotificationDwell},
		{"feed-timeout", fc.FeedTimeout, &cfg.FeedTimeout},
		{"settle-delay", fc.SettleDelay, &cfg.SettleDelay},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setFloat("weight-threshold", fc.WeightThreshold, &cfg.WeightThreshold)

	s.setInt("ack-every", fc.AckEvery, &cfg.AckEvery)
	s.setInt("buffer-size", fc.BufferSize, &cfg.BufferSize)
	s.setInt("max-schedule-bytes", fc.MaxScheduleBytes, &cfg.MaxScheduleBytes)

	s.setBool("watch", fc.Watch, &cfg.Watch)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
