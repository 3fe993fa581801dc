// Package dedup suppresses redundant activity-aggregate writes for the same
// (location, date, hour) bucket within a cooldown window. Suppressed events
// are coalesced into a count rather than lost.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultCooldownWindow is the span during which repeated activity for the
// same bucket key is coalesced rather than re-written.
const DefaultCooldownWindow = 5 * time.Minute

// Decision is the outcome of a ShouldWrite check. Count includes the
// current event regardless of whether the write is allowed.
type Decision struct {
	Allow bool
	Count int64
}

// Gate decides whether an activity write for a bucket key should reach the
// store now or be coalesced into a later write.
type Gate interface {
	ShouldWrite(ctx context.Context, locationName, date string, hour int) (Decision, error)
}

// bucketKey builds the canonical cache key for a heatmap bucket.
func bucketKey(locationName, date string, hour int) string {
	return fmt.Sprintf("%s|%s|%d", locationName, date, hour)
}

// entry tracks the last allowed write and the coalesced event count for one
// bucket key.
type entry struct {
	lastWrite time.Time
	count     int64
}

// MemoryGate is a process-local Gate. It is safe for concurrent use within
// a single process only; multiple collector instances sharing a store must
// use RedisGate instead, or each instance under-suppresses independently.
type MemoryGate struct {
	mu      sync.Mutex
	entries map[string]*entry
	window  time.Duration
	now     func() time.Time
}

// NewMemoryGate creates a MemoryGate with the given cooldown window.
// A zero window falls back to DefaultCooldownWindow.
func NewMemoryGate(window time.Duration) *MemoryGate {
	if window <= 0 {
		window = DefaultCooldownWindow
	}
	return &MemoryGate{
		entries: make(map[string]*entry),
		window:  window,
		now:     time.Now,
	}
}

// ShouldWrite implements Gate. The first call for a key, or any call after
// the cooldown window has elapsed, allows the write and restarts the
// window; calls inside the window are suppressed with an incremented count.
func (g *MemoryGate) ShouldWrite(_ context.Context, locationName, date string, hour int) (Decision, error) {
	key := bucketKey(locationName, date, hour)
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[key]
	if !ok {
		g.entries[key] = &entry{lastWrite: now, count: 1}
		return Decision{Allow: true, Count: 1}, nil
	}

	e.count++
	if now.Sub(e.lastWrite) < g.window {
		return Decision{Allow: false, Count: e.count}, nil
	}

	e.lastWrite = now
	return Decision{Allow: true, Count: e.count}, nil
}

// Sweep removes entries whose last allowed write is older than the given
// retention, bounding the cache. Returns the number of entries removed.
func (g *MemoryGate) Sweep(retention time.Duration) int {
	cutoff := g.now().Add(-retention)

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for key, e := range g.entries {
		if e.lastWrite.Before(cutoff) {
			delete(g.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries.
func (g *MemoryGate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// SweeperConfig configures the background sweep of a MemoryGate.
type SweeperConfig struct {
	// Interval is how often the sweep runs. Default: 30 minutes.
	Interval time.Duration
	// Retention is how long idle entries are kept. Default: 2x the gate's
	// cooldown window, minimum 10 minutes.
	Retention time.Duration
}

// Sweeper periodically bounds a MemoryGate by evicting idle entries.
type Sweeper struct {
	gate      *MemoryGate
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewSweeper creates a sweeper for the given gate.
func NewSweeper(gate *MemoryGate, logger *slog.Logger, cfg SweeperConfig) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval == 0 {
		cfg.Interval = 30 * time.Minute
	}
	if cfg.Retention == 0 {
		cfg.Retention = 2 * gate.window
		if cfg.Retention < 10*time.Minute {
			cfg.Retention = 10 * time.Minute
		}
	}
	return &Sweeper{
		gate:      gate,
		logger:    logger,
		interval:  cfg.Interval,
		retention: cfg.Retention,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start begins the sweep loop in a background goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop signals the sweeper to stop and waits for it to finish.
func (s *Sweeper) Stop() {
	close(s.stopChan)
	<-s.doneChan
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("dedup sweeper started",
		slog.Duration("interval", s.interval),
		slog.Duration("retention", s.retention))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("dedup sweeper stopping due to context cancellation")
			return
		case <-s.stopChan:
			s.logger.Info("dedup sweeper stopping")
			return
		case <-ticker.C:
			removed := s.gate.Sweep(s.retention)
			if removed > 0 {
				s.logger.Debug("dedup sweep completed",
					slog.Int("removed", removed),
					slog.Int("remaining", s.gate.Len()))
			}
		}
	}
}
