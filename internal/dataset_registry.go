package internal

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/datamimic"
	"go.uber.org/zap"
)

type registryEntry struct {
	dataset    *datamimic.Dataset
	origin     datamimic.Origin
	createdAt  time.Time
	lastAccess time.Time
}

var _ datamimic.DatasetRegistry = (*DatasetRegistry)(nil)

// DatasetRegistry maps handles to in-memory datasets. One RWMutex guards the map.
type DatasetRegistry struct {
	mu      sync.RWMutex
	entries map[datamimic.DatasetHandle]*registryEntry
	now     func() time.Time
}

// NewDatasetRegistry creates an empty registry.
func NewDatasetRegistry() *DatasetRegistry {
	return &DatasetRegistry{
		entries: make(map[datamimic.DatasetHandle]*registryEntry),
		now:     time.Now,
	}
}

// Create stores ds under a fresh UUID handle.
func (r *DatasetRegistry) Create(ds *datamimic.Dataset, origin datamimic.Origin) datamimic.DatasetHandle {
	handle := datamimic.DatasetHandle(uuid.New().String())
	now := r.now()

	r.mu.Lock()
	r.entries[handle] = &registryEntry{dataset: ds, origin: origin, createdAt: now, lastAccess: now}
	r.mu.Unlock()

	emitRegistrySize(r.Len())
	return handle
}

// Get returns the dataset held under handle.
func (r *DatasetRegistry) Get(handle datamimic.DatasetHandle) (*datamimic.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[handle]
	if !ok {
		return nil, datamimic.NewHandleNotFoundError(handle)
	}
	e.lastAccess = r.now()
	return e.dataset, nil
}

// Replace swaps the dataset held under an existing handle. It never creates an entry.
func (r *DatasetRegistry) Replace(handle datamimic.DatasetHandle, ds *datamimic.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[handle]
	if !ok {
		return datamimic.NewHandleNotFoundError(handle)
	}
	e.dataset = ds
	e.lastAccess = r.now()
	return nil
}

// Delete removes handle. Deleting an unknown handle is a no-op.
func (r *DatasetRegistry) Delete(handle datamimic.DatasetHandle) {
	r.mu.Lock()
	delete(r.entries, handle)
	n := len(r.entries)
	r.mu.Unlock()
	emitRegistrySize(n)
}

// Info returns bookkeeping for handle without refreshing its access time.
func (r *DatasetRegistry) Info(handle datamimic.DatasetHandle) (*datamimic.DatasetInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[handle]
	if !ok {
		return nil, datamimic.NewHandleNotFoundError(handle)
	}
	return &datamimic.DatasetInfo{
		Handle:     handle,
		Origin:     e.origin,
		CreatedAt:  e.createdAt,
		LastAccess: e.lastAccess,
		Rows:       e.dataset.NumRows(),
		Columns:    e.dataset.NumCols(),
	}, nil
}

// Len returns the number of live handles.
func (r *DatasetRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Handles returns the live handles in sorted order.
func (r *DatasetRegistry) Handles() []datamimic.DatasetHandle {
	r.mu.RLock()
	out := make([]datamimic.DatasetHandle, 0, len(r.entries))
	for h := range r.entries {
		out = append(out, h)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// evictIdle deletes entries not accessed since cutoff and returns the evicted handles.
func (r *DatasetRegistry) evictIdle(cutoff time.Time) []datamimic.DatasetHandle {
	r.mu.Lock()
	var evicted []datamimic.DatasetHandle
	for h, e := range r.entries {
		if e.lastAccess.Before(cutoff) {
			delete(r.entries, h)
			evicted = append(evicted, h)
		}
	}
	n := len(r.entries)
	r.mu.Unlock()
	if len(evicted) > 0 {
		emitRegistrySize(n)
	}
	return evicted
}

// SessionJanitor removes datasets whose handles have been idle longer than the timeout.
type SessionJanitor struct {
	registry    *DatasetRegistry
	idleTimeout time.Duration
	interval    time.Duration
}

// NewSessionJanitor creates a janitor. A zero idleTimeout disables eviction.
func NewSessionJanitor(registry *DatasetRegistry, cfg datamimic.RegistryConfig) *SessionJanitor {
	return &SessionJanitor{
		registry:    registry,
		idleTimeout: cfg.IdleTimeout,
		interval:    cfg.JanitorInterval,
	}
}

// Run sweeps on every tick until ctx is done.
func (j *SessionJanitor) Run(ctx context.Context) {
	if j.idleTimeout <= 0 || j.interval <= 0 {
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep performs one eviction pass and returns the number of datasets removed.
func (j *SessionJanitor) Sweep() int {
	evicted := j.registry.evictIdle(j.registry.now().Add(-j.idleTimeout))
	if len(evicted) > 0 {
		zap.S().Infow("evicted idle datasets", "count", len(evicted), "idleTimeout", j.idleTimeout)
	}
	return len(evicted)
}
