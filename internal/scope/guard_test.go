package scope

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedWorkspace(t *testing.T, store *MemoryWorkspaceStore, id, owner string) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), domain.Workspace{
		ID: id, OwnerID: owner, CreatedAt: time.Now(),
	}))
}

func TestGuard_ReadModelHitShortCircuits(t *testing.T) {
	ctx := context.Background()
	readModel := NewMemoryReadModel()
	store := NewMemoryWorkspaceStore()
	guard := NewGuard(readModel, store, testLogger())

	// The workspace exists only in the read model; a definitive hit never
	// touches the authoritative store.
	require.NoError(t, readModel.ApplyGrant(ctx, domain.Grant{
		WorkspaceID: "ws-1", UserID: "u-1", Role: domain.RoleContributor, Status: domain.GrantActive,
	}))

	decision, err := guard.Check(ctx, "ws-1", "u-1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, domain.RoleContributor, decision.Role)
}

func TestGuard_FallbackOwnerGetsManager(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryWorkspaceStore()
	guard := NewGuard(NewMemoryReadModel(), store, testLogger())
	seedWorkspace(t, store, "ws-1", "u-owner")

	decision, err := guard.Check(ctx, "ws-1", "u-owner")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, domain.RoleManager, decision.Role)
}

func TestGuard_FallbackGrantRole(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryWorkspaceStore()
	guard := NewGuard(NewMemoryReadModel(), store, testLogger())
	seedWorkspace(t, store, "ws-1", "u-owner")
	require.NoError(t, store.CreateGrant(ctx, domain.Grant{
		ID: "g-1", WorkspaceID: "ws-1", UserID: "u-viewer", Role: domain.RoleViewer, Status: domain.GrantActive,
	}))

	decision, err := guard.Check(ctx, "ws-1", "u-viewer")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, domain.RoleViewer, decision.Role)
}

func TestGuard_WorkspaceNotFoundDenies(t *testing.T) {
	guard := NewGuard(NewMemoryReadModel(), NewMemoryWorkspaceStore(), testLogger())

	decision, err := guard.Check(context.Background(), "ws-missing", "u-1")
	require.NoError(t, err, "not found is a deny, not an error")
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonWorkspaceNotFound, decision.Reason)
}

func TestGuard_NoGrantDenies(t *testing.T) {
	store := NewMemoryWorkspaceStore()
	guard := NewGuard(NewMemoryReadModel(), store, testLogger())
	seedWorkspace(t, store, "ws-1", "u-owner")

	decision, err := guard.Check(context.Background(), "ws-1", "u-stranger")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNoActiveGrant, decision.Reason)
}

func TestGuard_RevokedGrantDenies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryWorkspaceStore()
	guard := NewGuard(NewMemoryReadModel(), store, testLogger())
	seedWorkspace(t, store, "ws-1", "u-owner")
	require.NoError(t, store.CreateGrant(ctx, domain.Grant{
		ID: "g-1", WorkspaceID: "ws-1", UserID: "u-1", Role: domain.RoleViewer, Status: domain.GrantActive,
	}))
	require.NoError(t, store.RevokeGrant(ctx, "ws-1", "u-1", time.Now()))

	decision, err := guard.Check(ctx, "ws-1", "u-1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestGuard_StaleReadModelFallsBack(t *testing.T) {
	ctx := context.Background()
	readModel := NewMemoryReadModel()
	store := NewMemoryWorkspaceStore()
	guard := NewGuard(readModel, store, testLogger())
	seedWorkspace(t, store, "ws-1", "u-owner")

	// The read model says Contributor, but a policy change bumped the
	// version marker; the guard must re-validate against the store, which
	// has no grant for this user.
	require.NoError(t, readModel.ApplyGrant(ctx, domain.Grant{
		WorkspaceID: "ws-1", UserID: "u-1", Role: domain.RoleContributor, Status: domain.GrantActive,
	}))
	require.NoError(t, readModel.BumpVersion(ctx, "ws-1"))

	decision, err := guard.Check(ctx, "ws-1", "u-1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNoActiveGrant, decision.Reason)
}

func TestGuard_ProjectorWriteClearsStaleness(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	now := base
	readModel := NewMemoryReadModel(WithReadModelClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))
	guard := NewGuard(readModel, NewMemoryWorkspaceStore(), testLogger())

	require.NoError(t, readModel.ApplyGrant(ctx, domain.Grant{
		WorkspaceID: "ws-1", UserID: "u-1", Role: domain.RoleViewer, Status: domain.GrantActive,
	}))
	require.NoError(t, readModel.BumpVersion(ctx, "ws-1"))

	// The projector catches up; lookups are definitive again.
	require.NoError(t, readModel.ApplyGrant(ctx, domain.Grant{
		WorkspaceID: "ws-1", UserID: "u-1", Role: domain.RoleViewer, Status: domain.GrantActive,
	}))

	decision, err := guard.Check(ctx, "ws-1", "u-1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

type failingProjection struct{}

func (failingProjection) Lookup(context.Context, string, string) (domain.ScopeDecision, bool, error) {
	return domain.ScopeDecision{}, false, errors.New("projection store down")
}

func (failingProjection) BumpVersion(context.Context, string) error {
	return nil
}

func TestGuard_ReadModelErrorFallsBack(t *testing.T) {
	store := NewMemoryWorkspaceStore()
	guard := NewGuard(failingProjection{}, store, testLogger())
	seedWorkspace(t, store, "ws-1", "u-owner")

	decision, err := guard.Check(context.Background(), "ws-1", "u-owner")
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "a broken read model must not deny the owner")
}

type failingWorkspaces struct {
	MemoryWorkspaceStore
}

func (*failingWorkspaces) Find(context.Context, string) (domain.Workspace, error) {
	return domain.Workspace{}, errors.New("store unavailable")
}

func TestGuard_AuthoritativeErrorPropagates(t *testing.T) {
	guard := NewGuard(NewMemoryReadModel(), &failingWorkspaces{}, testLogger())

	_, err := guard.Check(context.Background(), "ws-1", "u-1")
	require.Error(t, err, "store failures are failed commands, not security decisions")
}
