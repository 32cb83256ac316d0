package scope

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"conduit/internal/command"
	"conduit/internal/domain"
	dErrors "conduit/pkg/domain-errors"
	"conduit/pkg/requestcontext"
)

// GrantService owns the grant mutation units of work. The
// duplicate-active-grant guard lives in the store's atomic insert, never
// here: two racing creates both reach the store and exactly one wins.
type GrantService struct {
	workspaces WorkspaceStore
	logger     *slog.Logger
	clock      func() time.Time
}

// GrantServiceOption configures a GrantService.
type GrantServiceOption func(*GrantService)

// WithGrantClock overrides the grant clock. Without it, mutations are
// stamped with the request-scoped time from the context.
func WithGrantClock(clock func() time.Time) GrantServiceOption {
	return func(s *GrantService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewGrantService constructs the service over the authoritative store.
func NewGrantService(workspaces WorkspaceStore, logger *slog.Logger, opts ...GrantServiceOption) *GrantService {
	s := &GrantService{workspaces: workspaces, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// now resolves the mutation timestamp: an injected clock wins, otherwise
// the request-scoped time.
func (s *GrantService) now(ctx context.Context) time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return requestcontext.Now(ctx)
}

// RegisterHandlers binds the grant actions on the dispatcher.
func (s *GrantService) RegisterHandlers(d *command.Dispatcher) {
	d.Register("grants:create", s.CreateGrantHandler)
	d.Register("grants:revoke", s.RevokeGrantHandler)
}

type createGrantRequest struct {
	UserID string      `json:"userId"`
	Role   domain.Role `json:"role"`
}

type revokeGrantRequest struct {
	UserID string `json:"userId"`
}

// CreateGrantHandler builds the grants:create unit of work.
func (s *GrantService) CreateGrantHandler(payload json.RawMessage) command.UnitOfWork {
	return func(ctx context.Context, tc *command.TransactionContext) (any, error) {
		var req createGrantRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid grant payload")
		}
		if req.UserID == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "userId is required")
		}
		if !req.Role.Valid() {
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown role %q", req.Role)
		}

		grant := domain.Grant{
			ID:          uuid.NewString(),
			WorkspaceID: tc.AggregateID,
			UserID:      req.UserID,
			Role:        req.Role,
			Status:      domain.GrantActive,
			CreatedAt:   s.now(ctx),
		}
		if err := s.workspaces.CreateGrant(ctx, grant); err != nil {
			return nil, err
		}

		tc.Outbox.Collect(domain.EventGrantCreated, domain.GrantEventPayload{
			GrantID:     grant.ID,
			WorkspaceID: grant.WorkspaceID,
			UserID:      grant.UserID,
			Role:        grant.Role,
		})
		return grant.ID, nil
	}
}

// RevokeGrantHandler builds the grants:revoke unit of work.
func (s *GrantService) RevokeGrantHandler(payload json.RawMessage) command.UnitOfWork {
	return func(ctx context.Context, tc *command.TransactionContext) (any, error) {
		var req revokeGrantRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid grant payload")
		}
		if req.UserID == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "userId is required")
		}

		if err := s.workspaces.RevokeGrant(ctx, tc.AggregateID, req.UserID, s.now(ctx)); err != nil {
			return nil, err
		}

		tc.Outbox.Collect(domain.EventGrantRevoked, domain.GrantEventPayload{
			WorkspaceID: tc.AggregateID,
			UserID:      req.UserID,
		})
		return nil, nil
	}
}
