package scope

import (
	"context"
	"log/slog"

	"conduit/internal/domain"
	dErrors "conduit/pkg/domain-errors"
)

// Deny reasons surfaced verbatim to callers as "Access denied: {reason}".
const (
	ReasonWorkspaceNotFound = "Workspace not found"
	ReasonNoActiveGrant     = "No active workspace grant for this user"
)

// Guard is the access-control gate in front of the command pipeline.
type Guard struct {
	projection GrantProjection
	workspaces WorkspaceStore
	logger     *slog.Logger
}

// NewGuard constructs a scope guard over the grant read model and the
// authoritative workspace store.
func NewGuard(projection GrantProjection, workspaces WorkspaceStore, logger *slog.Logger) *Guard {
	return &Guard{
		projection: projection,
		workspaces: workspaces,
		logger:     logger,
	}
}

// Check resolves the actor's access to the workspace. "Not found" and "no
// grant" are normal deny outcomes returned as data; only store I/O
// failures surface as errors, which the command handler treats as a failed
// command rather than a security decision.
func (g *Guard) Check(ctx context.Context, workspaceID, actorID string) (domain.ScopeDecision, error) {
	decision, definitive, err := g.projection.Lookup(ctx, workspaceID, actorID)
	if err != nil {
		// A broken read model is not a deny; fall back to the
		// authoritative store and let it decide.
		g.logger.WarnContext(ctx, "grant read model lookup failed, falling back",
			"workspace_id", workspaceID,
			"actor_id", actorID,
			"error", err,
		)
	} else if definitive && decision.Allowed {
		return decision, nil
	}

	return g.checkAuthoritative(ctx, workspaceID, actorID)
}

func (g *Guard) checkAuthoritative(ctx context.Context, workspaceID, actorID string) (domain.ScopeDecision, error) {
	ws, err := g.workspaces.Find(ctx, workspaceID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return domain.Deny(ReasonWorkspaceNotFound), nil
		}
		return domain.ScopeDecision{}, err
	}

	if ws.OwnerID == actorID {
		return domain.Allow(domain.RoleManager), nil
	}

	grants, err := g.workspaces.ActiveGrants(ctx, workspaceID)
	if err != nil {
		return domain.ScopeDecision{}, err
	}
	for _, grant := range grants {
		if grant.UserID == actorID && grant.Active() {
			return domain.Allow(grant.Role), nil
		}
	}

	return domain.Deny(ReasonNoActiveGrant), nil
}
