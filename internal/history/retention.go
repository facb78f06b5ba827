package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Retention prunes old runs periodically using a time.Ticker.
type Retention struct {
	store    *Store
	days     int
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewRetention creates a retention pruner. The interval string is parsed
// with time.ParseDuration (e.g. "24h", "1h30m").
func NewRetention(store *Store, interval string, days int, logger *slog.Logger) (*Retention, error) {
	d, err := time.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("invalid prune interval %q: %w (use Go duration format: 24h, 30m, etc.)", interval, err)
	}
	if d < 1*time.Minute {
		return nil, fmt.Errorf("prune interval must be at least 1m, got %s", d)
	}
	if days <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", days)
	}
	return &Retention{
		store:    store,
		days:     days,
		interval: d,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins the pruning loop. Call Stop() to terminate.
func (r *Retention) Start(ctx context.Context) {
	go func() {
		defer close(r.doneCh)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info("history retention started",
			"interval", r.interval.String(), "days", r.days)

		for {
			select {
			case <-ticker.C:
				n, err := r.store.PruneOlderThan(ctx, r.days)
				if err != nil {
					r.logger.Error("history prune failed", "error", err)
					continue
				}
				if n > 0 {
					r.logger.Info("history pruned", "removed", n, "days", r.days)
				}
			case <-r.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the pruner and waits for it to finish.
func (r *Retention) Stop() {
	close(r.stopCh)
	<-r.doneCh
}
