package multipass

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// SweepState is the sweeper's position in its Idle -> Sweeping -> Idle cycle.
type SweepState int32

const (
	StateIdle SweepState = iota
	StateSweeping
)

func (s SweepState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSweeping:
		return "sweeping"
	default:
		return fmt.Sprintf("SweepState(%d)", int32(s))
	}
}

var ErrSweeperStopped = errors.New("multipass: sweeper stopped")

// Sweeper periodically evicts cache entries that have been idle longer than
// the configured threshold.
//
// Each pass snapshots the idle keys and then removes them one by one with
// Cache.RemoveIfIdle, which re-checks lastUsed under the cache lock against
// the snapshot time. An instance used after the snapshot is kept.
type Sweeper struct {
	cache     *Cache
	clock     clock.Clock
	threshold time.Duration
	interval  time.Duration
	observer  Observer
	log       *zap.Logger

	state atomic.Int32

	mu       sync.Mutex
	started  bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newSweeper(cache *Cache, clk clock.Clock, threshold, interval time.Duration, obs Observer, log *zap.Logger) *Sweeper {
	return &Sweeper{
		cache:     cache,
		clock:     clk,
		threshold: threshold,
		interval:  interval,
		observer:  obs,
		log:       log,
		stopCh:    make(chan struct{}),
	}
}

// State reports whether a pass is in progress.
func (s *Sweeper) State() SweepState { return SweepState(s.state.Load()) }

// Start launches the sweep loop in the background. Calling Start on a
// running sweeper is a no-op; calling it after Stop returns ErrSweeperStopped.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.stopCh:
		return ErrSweeperStopped
	default:
	}
	if s.started {
		return nil
	}
	s.started = true
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()
	s.log.Info("sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("idleThreshold", s.threshold),
	)
	return nil
}

// Run sweeps on every tick until ctx is cancelled or Stop is called.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepOnce(s.clock.Now())
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

func (s *Sweeper) run() { s.Run(context.Background()) }

// Stop ends the loop and waits for an in-progress pass to finish. It is
// safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		close(s.stopCh)
		s.mu.Unlock()
		s.log.Info("sweeper stopping")
	})
	s.wg.Wait()
}

// SweepOnce performs one pass as of now and returns how many instances it
// evicted.
func (s *Sweeper) SweepOnce(now time.Time) int {
	s.state.Store(int32(StateSweeping))
	defer s.state.Store(int32(StateIdle))

	idle := s.listIdle(now)
	removed := 0
	for _, key := range idle {
		if s.evict(key, now) {
			removed++
		}
	}
	if removed > 0 || len(idle) > 0 {
		s.log.Debug("sweep finished",
			zap.Int("idle", len(idle)),
			zap.Int("removed", removed),
			zap.Int("remaining", s.cache.Len()),
		)
	}
	return removed
}

func (s *Sweeper) listIdle(now time.Time) (keys []Key) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("sweep scan panicked", zap.Any("panic", p))
			keys = nil
		}
	}()
	return s.cache.ListIdleKeys(now, s.threshold)
}

// evict removes one key; a panic here is logged and does not stop the pass.
func (s *Sweeper) evict(key Key, now time.Time) (removed bool) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("evicting instance panicked",
				zap.String("key", key.String()),
				zap.Any("panic", p),
			)
		}
	}()

	idle, ok := s.cache.RemoveIfIdle(key, now, s.threshold)
	if !ok {
		return false
	}
	removed = true
	s.log.Info("strategy evicted",
		zap.String("tenant", key.TenantID),
		zap.String("provider", key.ProviderType),
		zap.Duration("idle", idle),
	)
	s.observer.InstanceEvicted(key, idle)
	return removed
}
