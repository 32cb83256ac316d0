// Package projection tracks read-model consumers of the event log: the
// registry checkpoints how far each named projection has consumed, and
// the grants projector keeps the scope guard's read model current.
package projection

import (
	"context"

	"conduit/internal/domain"
	dErrors "conduit/pkg/domain-errors"
)

// ErrNotFound keeps registry 404s consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "projection version not found")

// Registry stores one version record per named projection. UpsertVersion
// is a merge-write: repeated calls with the same or increasing offsets are
// safe, which makes the record double as a resume checkpoint for
// replay-based recovery.
type Registry interface {
	GetVersion(ctx context.Context, projectionName string) (domain.ProjectionVersionRecord, error)
	UpsertVersion(ctx context.Context, projectionName string, lastEventOffset int64, readModelVersion string) error
}
