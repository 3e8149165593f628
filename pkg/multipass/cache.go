package multipass

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// entry owns exactly one strategy instance.
type entry struct {
	instance  Strategy
	createdAt time.Time
	lastUsed  time.Time
}

// EntryInfo is a read-only view of a cached instance.
type EntryInfo struct {
	Key       Key       `json:"key"`
	CreatedAt time.Time `json:"createdAt"`
	LastUsed  time.Time `json:"lastUsed"`
}

// Cache holds at most one live strategy instance per key.
//
// All reads and writes of the entry map happen under mu. Construction runs
// outside the lock inside a singleflight group keyed by Key.String, so two
// first uses of the same key share one construction while other keys are
// not blocked behind it.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	flight  singleflight.Group

	clock            clock.Clock
	constructTimeout time.Duration
	observer         Observer
	log              *zap.Logger
}

func newCache(clk clock.Clock, constructTimeout time.Duration, obs Observer, log *zap.Logger) *Cache {
	return &Cache{
		entries:          make(map[Key]*entry),
		clock:            clk,
		constructTimeout: constructTimeout,
		observer:         obs,
		log:              log,
	}
}

// GetOrCreate returns the cached instance for key, touching its last-used
// time, or builds one from tpl and conn and caches it.
func (c *Cache) GetOrCreate(ctx context.Context, key Key, tpl Template, conn ConnectionData) (Strategy, error) {
	if s, ok := c.touch(key); ok {
		return s, nil
	}

	v, err, shared := c.flight.Do(key.String(), func() (any, error) {
		// another flight may have finished between our miss and this call
		if s, ok := c.touch(key); ok {
			return s, nil
		}
		s, err := c.construct(ctx, key, tpl, conn)
		if err != nil {
			return nil, err
		}
		return c.insert(key, s), nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug("joined in-flight construction", zap.String("key", key.String()))
	}
	return v.(Strategy), nil
}

func (c *Cache) construct(ctx context.Context, key Key, tpl Template, conn ConnectionData) (Strategy, error) {
	opts, err := tpl.OptionsBuilder(conn)
	if err != nil {
		c.observer.ConstructFailed(key, err)
		return nil, &DownstreamError{Phase: PhaseOptions, Key: key, Err: err}
	}

	// The instance outlives the request that triggered it, so construction
	// ignores the caller's cancellation and is bounded by constructTimeout.
	cctx := context.WithoutCancel(ctx)
	cancel := func() {}
	if c.constructTimeout > 0 {
		cctx, cancel = context.WithTimeout(cctx, c.constructTimeout)
	}
	defer cancel()

	type built struct {
		s   Strategy
		err error
	}
	done := make(chan built, 1)
	start := c.clock.Now()
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- built{err: fmt.Errorf("constructor panic: %v", p)}
			}
		}()
		s, err := tpl.Constructor(cctx, opts, tpl.ResultHandler)
		done <- built{s: s, err: err}
	}()

	var b built
	select {
	case b = <-done:
	case <-cctx.Done():
		b.err = cctx.Err()
	}
	if b.err == nil && b.s == nil {
		b.err = errors.New("constructor returned no instance")
	}
	if b.err != nil {
		c.observer.ConstructFailed(key, b.err)
		c.log.Warn("strategy construction failed",
			zap.String("tenant", key.TenantID),
			zap.String("provider", key.ProviderType),
			zap.Error(b.err),
		)
		return nil, &DownstreamError{Phase: PhaseConstruct, Key: key, Err: b.err}
	}

	took := c.clock.Since(start)
	c.observer.InstanceConstructed(key, took)
	c.log.Info("strategy constructed",
		zap.String("tenant", key.TenantID),
		zap.String("provider", key.ProviderType),
		zap.Duration("took", took),
	)
	return b.s, nil
}

// insert stores s unless an entry already exists, in which case the
// existing instance wins and is returned.
func (c *Cache) insert(key Key, s Strategy) Strategy {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.touchLocked(e)
		c.mu.Unlock()
		return e.instance
	}
	now := c.clock.Now()
	c.entries[key] = &entry{instance: s, createdAt: now, lastUsed: now}
	n := len(c.entries)
	c.mu.Unlock()

	c.observer.CacheSize(n)
	return s
}

func (c *Cache) touch(key Key) (Strategy, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.touchLocked(e)
	return e.instance, true
}

// touchLocked never moves lastUsed backwards.
func (c *Cache) touchLocked(e *entry) {
	if now := c.clock.Now(); now.After(e.lastUsed) {
		e.lastUsed = now
	}
}

// Remove deletes the entry for key. Removing an absent key is a no-op.
func (c *Cache) Remove(key Key) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	delete(c.entries, key)
	n := len(c.entries)
	c.mu.Unlock()

	if ok {
		c.observer.CacheSize(n)
		c.release(key, e.instance)
	}
	return ok
}

// ListIdleKeys returns the keys whose instance has been unused for longer
// than threshold as of now. It does not modify the cache.
func (c *Cache) ListIdleKeys(now time.Time, threshold time.Duration) []Key {
	c.mu.Lock()
	var keys []Key
	for k, e := range c.entries {
		if now.Sub(e.lastUsed) > threshold {
			keys = append(keys, k)
		}
	}
	c.mu.Unlock()

	sortKeys(keys)
	return keys
}

// RemoveIfIdle removes key only if it is still idle as of now. A key
// touched after now survives.
func (c *Cache) RemoveIfIdle(key Key, now time.Time, threshold time.Duration) (time.Duration, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return 0, false
	}
	idle := now.Sub(e.lastUsed)
	if idle <= threshold {
		c.mu.Unlock()
		return idle, false
	}
	delete(c.entries, key)
	n := len(c.entries)
	c.mu.Unlock()

	c.observer.CacheSize(n)
	c.release(key, e.instance)
	return idle, true
}

// release closes an evicted instance that holds resources of its own, such
// as a background key refresher. It runs outside the lock.
func (c *Cache) release(key Key, s Strategy) {
	cl, ok := s.(io.Closer)
	if !ok {
		return
	}
	if err := cl.Close(); err != nil {
		c.log.Warn("close evicted instance", zap.String("key", key.String()), zap.Error(err))
	}
}

// Len reports the number of cached instances.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys lists cached keys in sorted order.
func (c *Cache) Keys() []Key {
	c.mu.Lock()
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	sortKeys(keys)
	return keys
}

// Snapshot returns a copy of every entry's bookkeeping, sorted by key.
func (c *Cache) Snapshot() []EntryInfo {
	c.mu.Lock()
	out := make([]EntryInfo, 0, len(c.entries))
	for k, e := range c.entries {
		out = append(out, EntryInfo{Key: k, CreatedAt: e.createdAt, LastUsed: e.lastUsed})
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
}
