// Package eventlog persists domain events in an append-only, per-aggregate
// log. The log is the ground truth for every read model: replaying it in
// order must be sufficient to reconstruct any projection, so the API has
// no update and no delete.
package eventlog

import (
	"context"

	"conduit/internal/domain"
	dErrors "conduit/pkg/domain-errors"
)

// ErrNotFound keeps event log 404s consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "event not found")

// Log is the append-only event store.
type Log interface {
	// Append durably stores one event and returns its ID. Implementations
	// assign the append sequence; callers supply everything else.
	Append(ctx context.Context, event domain.StoredEvent) (string, error)

	// Replay returns all events for one aggregate ordered by OccurredAt
	// ascending, ties broken by append sequence.
	Replay(ctx context.Context, aggregateID string) ([]domain.StoredEvent, error)

	// ReadFrom returns up to limit events across all aggregates with a log
	// offset strictly greater than after, in append order. Projection
	// consumers use it together with their registry checkpoint.
	ReadFrom(ctx context.Context, after int64, limit int) ([]Sequenced, error)
}

// Sequenced pairs a stored event with its global log offset.
type Sequenced struct {
	Offset int64
	Event  domain.StoredEvent
}
