package pillship

import (
	"context"
	"time"

	"github.com/bft-labs/pillship/internal/ports"
)

// RetentionConfig controls pruning of the history journal.
type RetentionConfig struct {
	// Enabled controls whether pruning is active. Default: false
	Enabled bool

	// CheckInterval is how often old records are pruned.
	// Default: 24 hours
	CheckInterval time.Duration

	// MaxAge is how long records are kept.
	// Default: 90 days
	MaxAge time.Duration
}

// DefaultRetentionConfig returns a RetentionConfig with sensible defaults.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		Enabled:       true,
		CheckInterval: 24 * time.Hour,
		MaxAge:        90 * 24 * time.Hour,
	}
}

// WithJournalRetention enables periodic pruning of journal records older
// than cfg.MaxAge. Journals that cannot prune are left alone.
//
// Usage:
//
//	svc, err := pillship.New(cfg,
//	    pillship.WithJournalRetention(pillship.RetentionConfig{
//	        Enabled: true,
//	        MaxAge:  30 * 24 * time.Hour,
//	    }),
//	)
func WithJournalRetention(cfg RetentionConfig) Option {
	if !cfg.Enabled {
		return func(o *options) {}
	}

	def := DefaultRetentionConfig()
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = def.CheckInterval
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = def.MaxAge
	}

	return func(o *options) {
		o.retention = &cfg
	}
}

// pruner is implemented by journals that can drop old records.
type pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// retentionRunner prunes the journal until its context ends.
type retentionRunner struct {
	cfg    RetentionConfig
	target pruner
	clock  ports.Clock
	logger ports.Logger
}

func (r *retentionRunner) run(ctx context.Context) {
	// Prune immediately on startup
	r.pruneOnce(ctx)

	ticker := time.NewTicker(r.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pruneOnce(ctx)
		}
	}
}

func (r *retentionRunner) pruneOnce(ctx context.Context) {
	cutoff := r.clock.Now().Add(-r.cfg.MaxAge)
	n, err := r.target.Prune(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("journal retention: prune failed", ports.Err(err))
		}
		return
	}
	if n > 0 {
		r.logger.Info("journal retention completed",
			ports.Int64("records_removed", n),
			ports.String("cutoff", cutoff.Format(time.RFC3339)))
	}
}
