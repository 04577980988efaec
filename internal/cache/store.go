package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ComputeFunc produces the value for a cache key, typically by reaching the
// subject directory. It must honour ctx cancellation: a hung downstream
// lookup is bounded by the context deadline and surfaces as a compute
// failure, never as a cached result.
type ComputeFunc func(ctx context.Context) (any, error)

// InvalidationMode selects how an invalidation is applied at the store level.
type InvalidationMode int

const (
	// Background marks matching entries stale; they keep serving their last
	// value and refresh lazily on the next read.
	Background InvalidationMode = iota
	// Immediate synchronously recomputes matching entries before returning.
	Immediate
)

type entryState int

const (
	stateFresh entryState = iota
	stateStale
	stateExpired
)

type entry struct {
	value       any
	tags        []string
	tier        Tier
	computedAt  time.Time
	forcedStale bool
	refreshing  bool
	compute     ComputeFunc
}

// snapshot derives the entry's state from its age and tier. forcedStale is
// set by background invalidation and makes the entry refresh-eligible ahead
// of the revalidation timer.
func (e *entry) snapshot(now time.Time) (entryState, bool) {
	age := now.Sub(e.computedAt)
	if age >= e.tier.HardExpireAfter {
		return stateExpired, false
	}
	if e.forcedStale || age >= e.tier.RevalidateAfter {
		return stateStale, true
	}
	if age >= e.tier.StaleAfter {
		return stateStale, false
	}
	return stateFresh, false
}

// StoreOptions configures the entry store.
type StoreOptions struct {
	Logger *zap.Logger
	// ComputeTimeout bounds each synchronous fill and immediate-invalidation
	// recompute. Defaults to 5s.
	ComputeTimeout time.Duration
	// RefreshTimeout bounds each background recomputation. Defaults to 10s.
	RefreshTimeout time.Duration
	Metrics        *Metrics
}

// Store is the process-wide keyed storage of cached authorization facts. It
// is created once at startup and handed by reference to the pipeline and to
// mutation paths; there is no package-level instance.
//
// Concurrency: a single RWMutex guards the key and tag maps. The mutex is
// never held across a compute call; synchronous fills race benignly
// (last-writer-wins on success) while stale refreshes collapse to at most one
// in-flight recomputation per key via the entry's refreshing marker.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	byTag   map[string]map[string]struct{}

	logger         *zap.Logger
	metrics        *Metrics
	computeTimeout time.Duration
	refreshTimeout time.Duration
	refreshWG      sync.WaitGroup
	now            func() time.Time
}

// NewStore constructs an empty entry store.
func NewStore(opts StoreOptions) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	computeTimeout := opts.ComputeTimeout
	if computeTimeout <= 0 {
		computeTimeout = 5 * time.Second
	}

	refreshTimeout := opts.RefreshTimeout
	if refreshTimeout <= 0 {
		refreshTimeout = 10 * time.Second
	}

	return &Store{
		entries:        make(map[string]*entry),
		byTag:          make(map[string]map[string]struct{}),
		logger:         logger,
		metrics:        opts.Metrics,
		computeTimeout: computeTimeout,
		refreshTimeout: refreshTimeout,
		now:            time.Now,
	}
}

// WithNow overrides the clock, primarily for deterministic testing.
func (s *Store) WithNow(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// GetOrCompute returns the cached value for key, filling it through compute
// on a miss. Fresh and Stale entries return immediately; a Stale entry past
// its revalidation boundary additionally schedules exactly one background
// recomputation. Absent or Expired entries are recomputed synchronously
// before returning. Compute failures propagate and are never cached.
func (s *Store) GetOrCompute(ctx context.Context, key string, tags []string, tier Tier, compute ComputeFunc) (any, error) {
	now := s.now()

	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		// Keep the freshest compute fn so immediate invalidation and
		// background refreshes recompute with current dependencies.
		e.compute = compute

		state, needsRefresh := e.snapshot(now)
		switch state {
		case stateFresh:
			value := e.value
			s.mu.Unlock()
			s.metrics.observeRead(readFresh)
			return value, nil
		case stateStale:
			value := e.value
			startRefresh := needsRefresh && !e.refreshing
			if startRefresh {
				e.refreshing = true
			}
			s.mu.Unlock()
			s.metrics.observeRead(readStale)
			if startRefresh {
				s.refreshWG.Add(1)
				go s.refresh(key, compute)
			}
			return value, nil
		}
		// Expired: fall through to a synchronous recompute.
		s.metrics.observeRead(readExpired)
	} else {
		s.metrics.observeRead(readMiss)
	}
	s.mu.Unlock()

	value, err := s.runCompute(ctx, compute)
	if err != nil {
		s.metrics.observeComputeFailure()
		return nil, fmt.Errorf("compute cache entry %q: %w", key, err)
	}

	s.store(key, tags, tier, compute, value)
	return value, nil
}

// store records a successful fill, creating the entry and its tag index rows
// on first write. Tags are fixed at creation.
func (s *Store) store(key string, tags []string, tier Tier, compute ComputeFunc, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{tags: tags}
		s.entries[key] = e
		for _, tag := range tags {
			keys, ok := s.byTag[tag]
			if !ok {
				keys = make(map[string]struct{})
				s.byTag[tag] = keys
			}
			keys[key] = struct{}{}
		}
	}

	e.value = value
	e.tier = tier
	e.compute = compute
	e.computedAt = s.now()
	e.forcedStale = false
}

// runCompute executes a synchronous fill under the compute deadline so a hung
// downstream lookup cannot stall the calling request indefinitely.
func (s *Store) runCompute(ctx context.Context, compute ComputeFunc) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.computeTimeout)
	defer cancel()
	return compute(ctx)
}

// refresh runs a background recomputation for a stale key. A failed refresh
// leaves the last known value servable until a later attempt succeeds or the
// entry hard-expires; the original stale reader already got its answer, so no
// error surfaces here.
func (s *Store) refresh(key string, compute ComputeFunc) {
	defer s.refreshWG.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
	defer cancel()

	value, err := compute(ctx)

	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		e.refreshing = false
		if err == nil {
			e.value = value
			e.computedAt = s.now()
			e.forcedStale = false
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.metrics.observeRefresh(false)
		s.logger.Warn("background cache refresh failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	s.metrics.observeRefresh(true)
}

// InvalidateKey applies the invalidation mode to a single entry. Unknown keys
// are a no-op: there is nothing stale to serve.
func (s *Store) InvalidateKey(ctx context.Context, key string, mode InvalidationMode) error {
	return s.invalidateKeys(ctx, []string{key}, mode)
}

// InvalidateTag applies the invalidation mode to every entry whose tag set
// contains tag. Differently tagged entries are untouched.
func (s *Store) InvalidateTag(ctx context.Context, tag string, mode InvalidationMode) error {
	s.mu.RLock()
	keys := make([]string, 0, len(s.byTag[tag]))
	for key := range s.byTag[tag] {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	return s.invalidateKeys(ctx, keys, mode)
}

func (s *Store) invalidateKeys(ctx context.Context, keys []string, mode InvalidationMode) error {
	if mode == Background {
		s.mu.Lock()
		for _, key := range keys {
			if e, ok := s.entries[key]; ok {
				e.forcedStale = true
			}
		}
		s.mu.Unlock()
		return nil
	}

	var firstErr error
	for _, key := range keys {
		s.mu.RLock()
		e, ok := s.entries[key]
		var compute ComputeFunc
		var tags []string
		var tier Tier
		if ok {
			compute = e.compute
			tags = e.tags
			tier = e.tier
		}
		s.mu.RUnlock()

		if !ok || compute == nil {
			continue
		}

		value, err := s.runCompute(ctx, compute)
		if err != nil {
			// Keep the stale value servable; the entry rides out its tier.
			if firstErr == nil {
				firstErr = fmt.Errorf("recompute cache entry %q: %w", key, err)
			}
			continue
		}
		s.store(key, tags, tier, compute, value)
	}
	return firstErr
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// waitRefreshes blocks until all in-flight background recomputations finish.
// Used by tests to make refresh completion deterministic.
func (s *Store) waitRefreshes() {
	s.refreshWG.Wait()
}
