package domain

import "time"

// Workspace is the aggregate commands target: the unit of authorization
// and event ownership.
type Workspace struct {
	ID        string
	OwnerID   string
	Name      string
	CreatedAt time.Time
}

// GrantStatus tracks the lifecycle of a workspace grant.
type GrantStatus string

const (
	GrantActive  GrantStatus = "active"
	GrantRevoked GrantStatus = "revoked"
)

// Grant gives an actor a role on a workspace. At most one active grant may
// exist per (workspace, user) pair; the stores enforce that atomically at
// the point of mutation.
type Grant struct {
	ID          string
	WorkspaceID string
	UserID      string
	Role        Role
	Status      GrantStatus
	CreatedAt   time.Time
	RevokedAt   *time.Time
}

// Active reports whether the grant currently authorizes its user.
func (g Grant) Active() bool {
	return g.Status == GrantActive
}
