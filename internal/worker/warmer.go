package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Warmer loads data into a cache
type Warmer interface {
	Warm(ctx context.Context) (int, error)
}

// CacheWarmer periodically refreshes the project key cache so encrypted
// requests rarely fall through to the database.
type CacheWarmer struct {
	warmer   Warmer
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewCacheWarmer creates a new cache warmer
func NewCacheWarmer(warmer Warmer, interval time.Duration, logger *slog.Logger) *CacheWarmer {
	return &CacheWarmer{
		warmer:   warmer,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start warms the cache once and then keeps refreshing it in the background
func (w *CacheWarmer) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("cache warmer started", "interval", w.interval)
	w.WarmOnce(ctx)

	go w.run(ctx)
	return nil
}

// Stop stops the background refresh
func (w *CacheWarmer) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.logger.Info("cache warmer stopped")
	return nil
}

func (w *CacheWarmer) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.WarmOnce(ctx)
		}
	}
}

// WarmOnce runs a single refresh cycle. Failures are logged.
func (w *CacheWarmer) WarmOnce(ctx context.Context) {
	startTime := time.Now()

	count, err := w.warmer.Warm(ctx)
	if err != nil {
		w.logger.Error("cache warm cycle failed", "error", err)
		return
	}

	w.logger.Info("cache warm cycle completed",
		"duration", time.Since(startTime),
		"projects", count,
	)
}
