package scope

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/command"
	"conduit/internal/domain"
	dErrors "conduit/pkg/domain-errors"
	"conduit/pkg/requestcontext"
)

func newGrantFixture(t *testing.T) (*GrantService, *MemoryWorkspaceStore, *command.TransactionContext) {
	t.Helper()

	store := NewMemoryWorkspaceStore()
	require.NoError(t, store.Create(context.Background(), domain.Workspace{
		ID:      "ws-1",
		OwnerID: "owner-1",
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewGrantService(store, logger, WithGrantClock(func() time.Time {
		return time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	}))

	tc := &command.TransactionContext{
		AggregateID:   "ws-1",
		CorrelationID: "corr-1",
		Outbox:        command.NewOutbox(),
	}
	return svc, store, tc
}

func TestCreateGrantCollectsEvent(t *testing.T) {
	svc, store, tc := newGrantFixture(t)

	payload, _ := json.Marshal(map[string]string{"userId": "user-9", "role": "Contributor"})
	value, err := svc.CreateGrantHandler(payload)(context.Background(), tc)
	require.NoError(t, err)

	grantID, ok := value.(string)
	require.True(t, ok)
	assert.NotEmpty(t, grantID)

	grants, err := store.ActiveGrants(context.Background(), "ws-1")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "user-9", grants[0].UserID)
	assert.Equal(t, domain.RoleContributor, grants[0].Role)

	events := tc.Outbox.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventGrantCreated, events[0].Type)
	body, ok := events[0].Payload.(domain.GrantEventPayload)
	require.True(t, ok)
	assert.Equal(t, grantID, body.GrantID)
	assert.Equal(t, "ws-1", body.WorkspaceID)
}

func TestCreateGrantUsesRequestScopedTime(t *testing.T) {
	store := NewMemoryWorkspaceStore()
	require.NoError(t, store.Create(context.Background(), domain.Workspace{ID: "ws-1", OwnerID: "owner-1"}))

	// No injected clock: the grant timestamp comes from the request context.
	svc := NewGrantService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	tc := &command.TransactionContext{AggregateID: "ws-1", Outbox: command.NewOutbox()}

	requestTime := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), requestTime)

	payload, _ := json.Marshal(map[string]string{"userId": "user-9", "role": "Viewer"})
	_, err := svc.CreateGrantHandler(payload)(ctx, tc)
	require.NoError(t, err)

	grants, err := store.ActiveGrants(context.Background(), "ws-1")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.True(t, grants[0].CreatedAt.Equal(requestTime))
}

func TestCreateGrantDuplicateActiveRejected(t *testing.T) {
	svc, _, tc := newGrantFixture(t)

	payload, _ := json.Marshal(map[string]string{"userId": "user-9", "role": "Viewer"})
	_, err := svc.CreateGrantHandler(payload)(context.Background(), tc)
	require.NoError(t, err)

	_, err = svc.CreateGrantHandler(payload)(context.Background(), tc)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	// The failed attempt must not have collected a second event.
	assert.Len(t, tc.Outbox.Drain(), 1)
}

func TestCreateGrantValidation(t *testing.T) {
	svc, _, tc := newGrantFixture(t)

	cases := map[string]string{
		"missing user": `{"role":"Viewer"}`,
		"unknown role": `{"userId":"user-9","role":"Superuser"}`,
		"bad json":     `{`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateGrantHandler(json.RawMessage(raw))(context.Background(), tc)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		})
	}
	assert.Zero(t, tc.Outbox.Len())
}

func TestRevokeGrantCollectsEvent(t *testing.T) {
	svc, store, tc := newGrantFixture(t)

	create, _ := json.Marshal(map[string]string{"userId": "user-9", "role": "Viewer"})
	_, err := svc.CreateGrantHandler(create)(context.Background(), tc)
	require.NoError(t, err)

	revoke, _ := json.Marshal(map[string]string{"userId": "user-9"})
	_, err = svc.RevokeGrantHandler(revoke)(context.Background(), tc)
	require.NoError(t, err)

	grants, err := store.ActiveGrants(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.Empty(t, grants)

	events := tc.Outbox.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventGrantRevoked, events[1].Type)
}

func TestRevokeGrantWithoutActiveGrant(t *testing.T) {
	svc, _, tc := newGrantFixture(t)

	revoke, _ := json.Marshal(map[string]string{"userId": "user-9"})
	_, err := svc.RevokeGrantHandler(revoke)(context.Background(), tc)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	assert.Zero(t, tc.Outbox.Len())
}

func TestRegisterHandlersRoutesGrantActions(t *testing.T) {
	svc, _, _ := newGrantFixture(t)

	d := command.NewDispatcher(nil, nil)
	svc.RegisterHandlers(d)

	assert.True(t, d.Handles("grants:create"))
	assert.True(t, d.Handles("grants:revoke"))
	assert.False(t, d.Handles("grants:escalate"))
}
