package eventlog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"conduit/internal/domain"
)

// MemoryLog is the in-memory event log used by tests and single-process
// deployments. It favors clarity over performance.
type MemoryLog struct {
	mu     sync.RWMutex
	events []Sequenced
	seq    int64
	clock  func() time.Time
}

// MemoryLogOption configures a MemoryLog.
type MemoryLogOption func(*MemoryLog)

// WithClock sets the clock used when an event arrives without OccurredAt.
func WithClock(clock func() time.Time) MemoryLogOption {
	return func(l *MemoryLog) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog(opts ...MemoryLogOption) *MemoryLog {
	l := &MemoryLog{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Append stores the event and returns its ID. IDs and timestamps are
// assigned here when the caller left them empty.
func (l *MemoryLog) Append(_ context.Context, event domain.StoredEvent) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = l.clock()
	}
	l.seq++
	l.events = append(l.events, Sequenced{Offset: l.seq, Event: event})
	return event.ID, nil
}

// Replay returns the aggregate's events ordered by OccurredAt, ties broken
// by append sequence since timestamps may share a clock tick.
func (l *MemoryLog) Replay(_ context.Context, aggregateID string) ([]domain.StoredEvent, error) {
	l.mu.RLock()
	matched := make([]Sequenced, 0)
	for _, s := range l.events {
		if s.Event.AggregateID == aggregateID {
			matched = append(matched, s)
		}
	}
	l.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Event.OccurredAt.Equal(matched[j].Event.OccurredAt) {
			return matched[i].Offset < matched[j].Offset
		}
		return matched[i].Event.OccurredAt.Before(matched[j].Event.OccurredAt)
	})

	out := make([]domain.StoredEvent, len(matched))
	for i, s := range matched {
		out[i] = s.Event
	}
	return out, nil
}

// ReadFrom returns up to limit events with offset > after, in append order.
func (l *MemoryLog) ReadFrom(_ context.Context, after int64, limit int) ([]Sequenced, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Sequenced, 0, limit)
	for _, s := range l.events {
		if s.Offset <= after {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
