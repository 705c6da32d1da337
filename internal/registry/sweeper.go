// ABOUTME: Background sweeper that periodically deletes expired tickets
// ABOUTME: Runs independently of request handling; Close is idempotent

package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper periodically invokes DeleteExpired on a registry. Request
// handling never waits on a sweep; the registry's own locking bounds any
// contention to single-ticket removal.
type Sweeper struct {
	registry TicketRegistry
	interval time.Duration
	logger   *slog.Logger
	done     chan struct{}
	once     sync.Once
}

// NewSweeper creates a sweeper and starts its background goroutine.
func NewSweeper(reg TicketRegistry, interval time.Duration) *Sweeper {
	s := &Sweeper{
		registry: reg,
		interval: interval,
		logger:   slog.Default().With("component", "registry.sweeper"),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			removed, err := s.registry.DeleteExpired(ctx)
			cancel()
			if err != nil {
				s.logger.Warn("sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				s.logger.Info("sweep removed expired tickets", "removed", removed)
			}
		case <-s.done:
			return
		}
	}
}

// Close stops the sweeper. Safe to call multiple times.
func (s *Sweeper) Close() {
	s.once.Do(func() { close(s.done) })
}
