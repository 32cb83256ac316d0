package scope

import (
	"context"
	"sync"
	"time"

	"conduit/internal/domain"
)

// MemoryReadModel is the in-process grant read model. The grants
// projector feeds it from the event log; the policy cache marks it stale
// when policies change elsewhere.
type MemoryReadModel struct {
	mu         sync.RWMutex
	workspaces map[string]*workspaceView
	clock      func() time.Time
}

type workspaceView struct {
	grants    map[string]domain.Grant // keyed by user ID
	appliedAt time.Time               // last projector write
	staleAt   time.Time               // last version bump
}

// MemoryReadModelOption configures a MemoryReadModel.
type MemoryReadModelOption func(*MemoryReadModel)

// WithReadModelClock sets the clock used for version markers.
func WithReadModelClock(clock func() time.Time) MemoryReadModelOption {
	return func(m *MemoryReadModel) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewMemoryReadModel creates an empty grant read model.
func NewMemoryReadModel(opts ...MemoryReadModelOption) *MemoryReadModel {
	m := &MemoryReadModel{
		workspaces: make(map[string]*workspaceView),
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Lookup returns the actor's decision when the read model can answer
// definitively: the workspace is populated and has not been marked stale
// since the last projector write. Anything else is "unknown, fall back".
func (m *MemoryReadModel) Lookup(_ context.Context, workspaceID, actorID string) (domain.ScopeDecision, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	view, ok := m.workspaces[workspaceID]
	if !ok {
		return domain.ScopeDecision{}, false, nil
	}
	if view.staleAt.After(view.appliedAt) {
		return domain.ScopeDecision{}, false, nil
	}

	grant, ok := view.grants[actorID]
	if !ok || !grant.Active() {
		// The read model only tracks grants; owners and revocations are
		// the authoritative store's call.
		return domain.ScopeDecision{}, false, nil
	}
	return domain.Allow(grant.Role), true, nil
}

// BumpVersion marks the workspace stale so lookups fall back until the
// projector writes again.
func (m *MemoryReadModel) BumpVersion(_ context.Context, workspaceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	view, ok := m.workspaces[workspaceID]
	if !ok {
		view = &workspaceView{grants: make(map[string]domain.Grant)}
		m.workspaces[workspaceID] = view
	}
	view.staleAt = m.clock()
	return nil
}

// ApplyGrant upserts a grant from a projected event.
func (m *MemoryReadModel) ApplyGrant(_ context.Context, grant domain.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	view, ok := m.workspaces[grant.WorkspaceID]
	if !ok {
		view = &workspaceView{grants: make(map[string]domain.Grant)}
		m.workspaces[grant.WorkspaceID] = view
	}
	view.grants[grant.UserID] = grant
	view.appliedAt = m.clock()
	return nil
}

// RemoveGrant drops the user's grant after a revocation event.
func (m *MemoryReadModel) RemoveGrant(_ context.Context, workspaceID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	view, ok := m.workspaces[workspaceID]
	if !ok {
		return nil
	}
	delete(view.grants, userID)
	view.appliedAt = m.clock()
	return nil
}

// MemoryWorkspaceStore is the in-memory authoritative store. The
// duplicate-active-grant guard runs under the store lock so concurrent
// CreateGrant calls cannot both succeed.
type MemoryWorkspaceStore struct {
	mu         sync.RWMutex
	workspaces map[string]domain.Workspace
	grants     map[string]map[string]domain.Grant // workspace ID -> user ID -> grant
}

// NewMemoryWorkspaceStore creates an empty workspace store.
func NewMemoryWorkspaceStore() *MemoryWorkspaceStore {
	return &MemoryWorkspaceStore{
		workspaces: make(map[string]domain.Workspace),
		grants:     make(map[string]map[string]domain.Grant),
	}
}

func (s *MemoryWorkspaceStore) Find(_ context.Context, workspaceID string) (domain.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ws, ok := s.workspaces[workspaceID]; ok {
		return ws, nil
	}
	return domain.Workspace{}, ErrNotFound
}

func (s *MemoryWorkspaceStore) Create(_ context.Context, ws domain.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaces[ws.ID] = ws
	return nil
}

func (s *MemoryWorkspaceStore) ActiveGrants(_ context.Context, workspaceID string) ([]domain.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Grant
	for _, grant := range s.grants[workspaceID] {
		if grant.Active() {
			out = append(out, grant)
		}
	}
	return out, nil
}

func (s *MemoryWorkspaceStore) CreateGrant(_ context.Context, grant domain.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byUser, ok := s.grants[grant.WorkspaceID]
	if !ok {
		byUser = make(map[string]domain.Grant)
		s.grants[grant.WorkspaceID] = byUser
	}
	if existing, ok := byUser[grant.UserID]; ok && existing.Active() {
		return ErrGrantExists
	}
	byUser[grant.UserID] = grant
	return nil
}

func (s *MemoryWorkspaceStore) RevokeGrant(_ context.Context, workspaceID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byUser := s.grants[workspaceID]
	grant, ok := byUser[userID]
	if !ok || !grant.Active() {
		return ErrNotFound
	}
	grant.Status = domain.GrantRevoked
	grant.RevokedAt = &at
	byUser[userID] = grant
	return nil
}
