package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	falseVal := false

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				DataDir:         "/test/sd",
				PollInterval:    "50ms",
				WeightThreshold: 0.5,
				BufferSize:      128,
				Watch:           &trueVal,
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				DataDir:         "/test/sd",
				PollInterval:    50 * time.Millisecond,
				WeightThreshold: 0.5,
				BufferSize:      128,
				Watch:           true,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				DataDir: "/config/sd",
				Device:  "/dev/ttyACM0",
			},
			changed: map[string]bool{"data-dir": true},
			initial: Config{
				DataDir: "/flag/sd",
			},
			expected: Config{
				DataDir: "/flag/sd", // unchanged because flag was set
				Device:  "/dev/ttyACM0",
			},
		},
		{
			name: "handles all field types correctly",
			fileConfig: FileConfig{
				DataDir:           "/sd",
				ScheduleFile:      "meds.json",
				TempFile:          "meds.tmp",
				ListenAddr:        ":9000",
				PollInterval:      "20ms",
				RefreshInterval:   "2s",
				IdleTimeout:       "3s",
				TotalTimeout:      "30s",
				AckEvery:          16,
				BufferSize:        256,
				NotificationDwell: "1m",
				FeedTimeout:       "4s",
				WeightThreshold:   0.3,
				SettleDelay:       "250ms",
				MaxScheduleBytes:  1024,
				JournalPath:       "/var/journal.db",
				LogLevel:          "debug",
				Watch:             &falseVal,
			},
			changed: map[string]bool{},
			initial: Config{Watch: true},
			expected: Config{
				DataDir:           "/sd",
				ScheduleFile:      "meds.json",
				TempFile:          "meds.tmp",
				ListenAddr:        ":9000",
				PollInterval:      20 * time.Millisecond,
				RefreshInterval:   2 * time.Second,
				IdleTimeout:       3 * time.Second,
				TotalTimeout:      30 * time.Second,
				AckEvery:          16,
				BufferSize:        256,
				NotificationDwell: time.Minute,
				FeedTimeout:       4 * time.Second,
				WeightThreshold:   0.3,
				SettleDelay:       250 * time.Millisecond,
				MaxScheduleBytes:  1024,
				JournalPath:       "/var/journal.db",
				LogLevel:          "debug",
				Watch:             false,
			},
		},
		{
			name:       "returns error for invalid duration",
			fileConfig: FileConfig{FeedTimeout: "soon"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyFileConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyFileConfig() unexpected error: %v", err)
				return
			}

			if !tt.wantErr && cfg != tt.expected {
				t.Errorf("ApplyFileConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
data_dir = "/tmp/sd"
listen_addr = ":8765"
poll_interval = "25ms"
weight_threshold = 0.4
ack_every = 64
watch = false
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.DataDir != "/tmp/sd" {
		t.Errorf("DataDir = %v, want /tmp/sd", fc.DataDir)
	}
	if fc.ListenAddr != ":8765" {
		t.Errorf("ListenAddr = %v, want :8765", fc.ListenAddr)
	}
	if fc.PollInterval != "25ms" {
		t.Errorf("PollInterval = %v, want 25ms", fc.PollInterval)
	}
	if fc.WeightThreshold != 0.4 {
		t.Errorf("WeightThreshold = %v, want 0.4", fc.WeightThreshold)
	}
	if fc.AckEvery != 64 {
		t.Errorf("AckEvery = %v, want 64", fc.AckEvery)
	}
	if fc.Watch == nil || *fc.Watch != false {
		t.Errorf("Watch = %v, want false", fc.Watch)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
data_dir = "/test"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.Contains(path, ".pillship") {
		t.Errorf("DefaultConfigPath() = %v, should contain .pillship", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
