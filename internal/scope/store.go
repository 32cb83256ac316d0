// Package scope answers "may this actor touch this workspace, and with
// what role". The guard consults a local, eventually-consistent grant
// read model first and falls back to the authoritative workspace store;
// it never reads an event bus directly, so in-flight events cannot fool
// an authorization check.
package scope

import (
	"context"
	"time"

	"conduit/internal/domain"
	dErrors "conduit/pkg/domain-errors"
)

var (
	// ErrNotFound keeps store-level 404s consistent across implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")

	// ErrGrantExists signals the duplicate-active-grant guard fired. It is
	// raised by the store's atomic insert, never by a read-then-write at
	// the service layer.
	ErrGrantExists = dErrors.New(dErrors.CodeConflict, "an active grant already exists for this user")
)

// GrantProjection is the local read model the guard consults before the
// authoritative store. Lookup's second result reports whether the answer
// is definitive; false means "unknown, fall back", never "denied".
type GrantProjection interface {
	Lookup(ctx context.Context, workspaceID, actorID string) (domain.ScopeDecision, bool, error)

	// BumpVersion marks the workspace's read model stale so the next
	// Lookup falls back to the authoritative store until the projection
	// catches up again.
	BumpVersion(ctx context.Context, workspaceID string) error
}

// WorkspaceStore is the authoritative source for workspaces and grants.
type WorkspaceStore interface {
	Find(ctx context.Context, workspaceID string) (domain.Workspace, error)
	Create(ctx context.Context, ws domain.Workspace) error
	ActiveGrants(ctx context.Context, workspaceID string) ([]domain.Grant, error)

	// CreateGrant inserts a grant atomically, returning ErrGrantExists when
	// an active grant for the same (workspace, user) pair already exists.
	CreateGrant(ctx context.Context, grant domain.Grant) error

	// RevokeGrant deactivates the user's active grant, returning
	// ErrNotFound when there is none.
	RevokeGrant(ctx context.Context, workspaceID, userID string, at time.Time) error
}
