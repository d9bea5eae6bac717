package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	fsAdapter "github.com/bft-labs/pillship/internal/adapters/fs"
	"github.com/bft-labs/pillship/internal/adapters/journal"
	logAdapter "github.com/bft-labs/pillship/internal/adapters/log"
	"github.com/bft-labs/pillship/internal/adapters/transport"
	"github.com/bft-labs/pillship/internal/cliconfig"
	"github.com/bft-labs/pillship/internal/dispense"
	"github.com/bft-labs/pillship/internal/schedule"
	"github.com/bft-labs/pillship/internal/sender"
)

func newCheckCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Parse a schedule file and print its dose groups",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, *cfgPath, cfg); err != nil {
				return err
			}
			path := cfg.SchedulePath()
			if len(args) == 1 {
				path = args[0]
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			sched, report, err := schedule.Parse(io.LimitReader(f, int64(cfg.MaxScheduleBytes)))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d medications, %d entries, %d groups\n",
				path, report.Medications, sched.Entries.Len(), sched.Groups.Len())
			for _, g := range sched.Groups.All() {
				fmt.Fprintf(out, "  %s  %s\n", g.Time, dispense.Message(g))
			}
			fmt.Fprintf(out, "tubes: %v\n", sched.Entries.Tubes())
			if report.Truncated() {
				fmt.Fprintf(out, "warning: dropped %d entries and %d doses over capacity\n",
					report.DroppedEntries, report.DroppedDoses)
			}
			return nil
		},
	}
}

func newStatusCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the status persisted by the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, *cfgPath, cfg); err != nil {
				return err
			}
			repo := fsAdapter.NewStatusFileRepository(afero.NewOsFs(), cfg.DataDir)
			st, err := repo.Load(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status file:   %s\n", repo.Path())
			fmt.Fprintf(out, "storage ready: %v\n", st.StorageReady)
			fmt.Fprintf(out, "schedule:      %d entries, %d groups\n", st.Entries, st.Groups)
			fmt.Fprintf(out, "last commit:   %s\n", formatTime(st.LastCommitAt))
			fmt.Fprintf(out, "last reload:   %s\n", formatTime(st.LastReloadAt))
			fmt.Fprintf(out, "last dispense: %s\n", formatTime(st.LastDispenseAt))
			if st.LastError != "" {
				fmt.Fprintf(out, "last error:    %s\n", st.LastError)
			}
			return nil
		},
	}
}

func newHistoryCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent schedule loads and dispenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, *cfgPath, cfg); err != nil {
				return err
			}
			j, err := journal.Open(cfg.JournalPath)
			if err != nil {
				return err
			}
			defer j.Close()

			recs, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range recs {
				fmt.Fprintf(out, "%s  %-8s %-5s %s\n", r.At.Local().Format(time.DateTime), r.Kind, r.Slot, r.Detail)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records")
	return cmd
}

func newSendCmd() *cobra.Command {
	var (
		wsURL   string
		device  string
		opts    = sender.DefaultOptions()
		ackWait time.Duration
	)
	cmd := &cobra.Command{
		Use:   "send <file>",
		Short: "Frame a schedule file and send it to a dispenser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			payload, sum, err := sender.Frame(data)
			if err != nil {
				return err
			}

			log := logAdapter.NewZerologAdapterWithLogger(cliconfig.Logger())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sending %d medications, %d tubes, %d slots (%d bytes)\n",
				sum.Medications, sum.Tubes, sum.Slots, len(payload))

			ctx := cmd.Context()

			if device != "" {
				dev, err := os.OpenFile(device, os.O_WRONLY, 0)
				if err != nil {
					return fmt.Errorf("open %s: %w", device, err)
				}
				defer dev.Close()
				_, err = sender.New(dev, opts, log).Send(ctx, payload)
				return err
			}

			client, err := transport.DialWebSocket(ctx, wsURL)
			if err != nil {
				return err
			}
			defer client.Close()
			if _, err := sender.New(client, opts, log).Send(ctx, payload); err != nil {
				return err
			}

			timer := time.NewTimer(ackWait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
			fmt.Fprintf(out, "received %d acknowledgements\n", client.Acks())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&wsURL, "ws", "ws://"+cliconfig.DefaultListenAddr+transport.WebSocketPath, "dispenser websocket URL")
	f.StringVar(&device, "device", "", "write to a serial device instead of the websocket")
	f.IntVar(&opts.ChunkSize, "chunk-size", opts.ChunkSize, "bytes per chunk")
	f.DurationVar(&opts.ChunkDelay, "chunk-delay", opts.ChunkDelay, "pause after each chunk")
	f.DurationVar(&ackWait, "ack-wait", time.Second, "how long to wait for trailing acknowledgements")
	return cmd
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}
