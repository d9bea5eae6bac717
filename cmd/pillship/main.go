package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/bft-labs/pillship/internal/adapters/log"
	"github.com/bft-labs/pillship/internal/adapters/sim"
	"github.com/bft-labs/pillship/internal/cliconfig"
	"github.com/bft-labs/pillship/pkg/pillship"
)

const helpDescription = `
Run a pill dispenser: receive medication schedules over a serial link or
websocket, keep them on the storage card and dispense each dose when its
time comes and the button is pressed.

Highlights:
  - Schedules arrive framed between #START# and #END# and are committed
    atomically; an interrupted commit is recovered on the next start.
  - Up to 8 tubes are set up one by one after every transfer.
  - Configure via file, env (PILLSHIP_*), or flags.
`

var exampleUsage = strings.TrimSpace(`
  pillship --device /dev/ttyUSB0
  pillship --listen :7070 --data-dir /mnt/sd
  pillship send schedule.json --ws ws://127.0.0.1:7070/stream
  pillship check --data-dir /mnt/sd
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string
	var stdinButton bool

	root := &cobra.Command{
		Use:     "pillship",
		Short:   "Medication dispenser daemon",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, cfgPath, &cfg); err != nil {
				return err
			}
			log := cliconfig.Logger()
			log.Info().Interface("config", cfg).Msg("configuration")

			opts := []pillship.Option{
				pillship.WithLogger(logAdapter.NewZerologAdapterWithLogger(log)),
				pillship.WithJournalRetention(pillship.DefaultRetentionConfig()),
			}
			if stdinButton {
				opts = append(opts, pillship.WithButton(sim.NewLineButton(os.Stdin)))
			}

			svc, err := pillship.New(cfg, opts...)
			if err != nil {
				return fmt.Errorf("create pillship: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			if err := svc.Start(ctx); err != nil {
				return fmt.Errorf("start pillship: %w", err)
			}

			doneCh := make(chan struct{})
			go func() {
				ticker := time.NewTicker(100 * time.Millisecond)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if svc.Status() == pillship.StateCrashed {
							close(doneCh)
							return
						}
					}
				}
			}()

			select {
			case <-sigCh:
				log.Info().Msg("received signal, stopping...")
			case <-doneCh:
				log.Error().Msg("pillship crashed")
			}

			if err := svc.Stop(); err != nil {
				return fmt.Errorf("stop pillship: %w", err)
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.pillship/config.toml)")
	pf.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "storage card directory holding the schedule")
	pf.StringVar(&cfg.ScheduleFile, "schedule-file", cfg.ScheduleFile, "canonical schedule file name")
	pf.StringVar(&cfg.TempFile, "temp-file", cfg.TempFile, "temporary file name used while receiving")
	pf.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "history database (defaults to data-dir/journal.db)")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	f := root.Flags()
	f.StringVar(&cfg.Device, "device", cfg.Device, "serial device carrying the schedule stream (takes precedence over --listen)")
	f.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "websocket transport listen address")
	f.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "poll loop interval")
	f.DurationVar(&cfg.RefreshInterval, "refresh", cfg.RefreshInterval, "display refresh interval when nothing changes")
	f.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "abort a transfer after this long without data")
	f.DurationVar(&cfg.TotalTimeout, "total-timeout", cfg.TotalTimeout, "abort a transfer that takes longer than this")
	f.IntVar(&cfg.AckEvery, "ack-every", cfg.AckEvery, "acknowledge every N received bytes (0 disables)")
	f.IntVar(&cfg.BufferSize, "buffer-size", cfg.BufferSize, "receive buffer size in bytes")
	f.DurationVar(&cfg.NotificationDwell, "notification-dwell", cfg.NotificationDwell, "how long an unanswered notification stays up")
	f.DurationVar(&cfg.FeedTimeout, "feed-timeout", cfg.FeedTimeout, "maximum feed time per tube")
	f.Float64Var(&cfg.WeightThreshold, "weight-threshold", cfg.WeightThreshold, "weight gain in grams that ends feeding")
	f.DurationVar(&cfg.SettleDelay, "settle-delay", cfg.SettleDelay, "pause between two tubes")
	f.IntVar(&cfg.MaxScheduleBytes, "max-schedule-bytes", cfg.MaxScheduleBytes, "reject larger schedule files")
	f.BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload when the schedule file is changed externally")
	f.BoolVar(&stdinButton, "stdin-button", true, "treat each line on stdin as a button press")

	root.AddCommand(
		newCheckCmd(&cfg, &cfgPath),
		newStatusCmd(&cfg, &cfgPath),
		newHistoryCmd(&cfg, &cfgPath),
		newSendCmd(),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		log := cliconfig.Logger()
		log.Error().Err(err).Msg("pillship")
		os.Exit(1)
	}
}

// loadConfig layers the config file and PILLSHIP_* environment under the
// flags set on the command line, then validates the result.
func loadConfig(cmd *cobra.Command, cfgPath string, cfg *cliconfig.Config) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	return cliconfig.SetLevel(cfg.LogLevel)
}
