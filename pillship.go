// Package pillship runs a medication dispenser.
//
// Example usage:
//
//	cfg := pillship.DefaultConfig()
//	cfg.DataDir = "/mnt/sd"
//	cfg.Device = "/dev/ttyUSB0"
//	if err := pillship.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// For lifecycle control and hardware adapters use pkg/pillship directly.
package pillship

import (
	"context"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/pillship/internal/adapters/log"
	"github.com/bft-labs/pillship/internal/cliconfig"
	service "github.com/bft-labs/pillship/pkg/pillship"
)

// Config holds the dispenser configuration.
type Config = service.Config

// DefaultConfig returns a Config with sensible default values.
// At minimum, set DataDir before calling Run.
func DefaultConfig() Config {
	return service.DefaultConfig()
}

// Run starts the dispenser and blocks until ctx is cancelled, then shuts
// it down and persists its status.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cliconfig.SetLevel(cfg.LogLevel); err != nil {
		return err
	}

	svc, err := service.New(cfg, service.WithLogger(logAdapter.NewZerologAdapterWithLogger(Logger())))
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return svc.Stop()
}

// Logger returns the package-level zerolog logger.
func Logger() zerolog.Logger {
	return cliconfig.Logger()
}
