package cliconfig

import (
	"os"
	"time"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "PILLSHIP_"

// ApplyEnvConfig applies configuration from environment variables (PILLSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(key string) string { return os.Getenv(EnvPrefix + key) }

	s.setString("data-dir", env("DATA_DIR"), &cfg.DataDir)
	s.setString("schedule-file", env("SCHEDULE_FILE"), &cfg.ScheduleFile)
	s.setString("temp-file", env("TEMP_FILE"), &cfg.TempFile)
	s.setString("device", env("DEVICE"), &cfg.Device)
	s.setString("listen", env("LISTEN_ADDR"), &cfg.ListenAddr)
	s.setString("journal", env("JOURNAL_PATH"), &cfg.JournalPath)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	durations := []struct {
		flag string
		key  string
		dst  *time.Duration
	}{
		{"poll", "POLL_INTERVAL", &cfg.PollInterval},
		{"refresh", "REFRESH_INTERVAL", &cfg.RefreshInterval},
		{"idle-timeout", "IDLE_TIMEOUT", &cfg.IdleTimeout},
		{"total-timeout", "TOTAL_TIMEOUT", &cfg.TotalTimeout},
		{"notification-dwell", "NOTIFICATION_DWELL", &cfg.NotificationDwell},
		{"feed-timeout", "FEED_TIMEOUT", &cfg.FeedTimeout},
		{"settle-delay", "SETTLE_DELAY", &cfg.SettleDelay},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, env(d.key), d.dst); err != nil {
			return err
		}
	}

	if err := s.setFloatFromString("weight-threshold", env("WEIGHT_THRESHOLD"), &cfg.WeightThreshold); err != nil {
		return err
	}

	if err := s.setIntFromString("ack-every", env("ACK_EVERY"), &cfg.AckEvery); err != nil {
		return err
	}
	if err := s.setIntFromString("buffer-size", env("BUFFER_SIZE"), &cfg.BufferSize); err != nil {
		return err
	}
	if err := s.setIntFromString("max-schedule-bytes", env("MAX_SCHEDULE_BYTES"), &cfg.MaxScheduleBytes); err != nil {
		return err
	}

	s.setBoolFromString("watch", env("WATCH"), &cfg.Watch)

	return nil
}
