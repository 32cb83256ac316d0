package projection

import (
	"context"
	"sync"
	"time"

	"conduit/internal/domain"
)

// MemoryRegistry is the in-memory projection registry.
type MemoryRegistry struct {
	mu      sync.RWMutex
	records map[string]domain.ProjectionVersionRecord
	clock   func() time.Time
}

// MemoryRegistryOption configures a MemoryRegistry.
type MemoryRegistryOption func(*MemoryRegistry)

// WithRegistryClock sets the clock used for UpdatedAt stamps.
func WithRegistryClock(clock func() time.Time) MemoryRegistryOption {
	return func(r *MemoryRegistry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry(opts ...MemoryRegistryOption) *MemoryRegistry {
	r := &MemoryRegistry{
		records: make(map[string]domain.ProjectionVersionRecord),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *MemoryRegistry) GetVersion(_ context.Context, projectionName string) (domain.ProjectionVersionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.records[projectionName]; ok {
		return rec, nil
	}
	return domain.ProjectionVersionRecord{}, ErrNotFound
}

func (r *MemoryRegistry) UpsertVersion(_ context.Context, projectionName string, lastEventOffset int64, readModelVersion string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Identical input is an observational no-op: the record keeps its
	// original UpdatedAt so repeated checkpoints do not look like progress.
	if existing, ok := r.records[projectionName]; ok &&
		existing.LastEventOffset == lastEventOffset &&
		existing.ReadModelVersion == readModelVersion {
		return nil
	}

	r.records[projectionName] = domain.ProjectionVersionRecord{
		ProjectionName:   projectionName,
		LastEventOffset:  lastEventOffset,
		ReadModelVersion: readModelVersion,
		UpdatedAt:        r.clock(),
	}
	return nil
}
