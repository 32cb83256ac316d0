package projection

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/domain"
	"conduit/internal/eventlog"
	"conduit/internal/scope"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func appendGrantEvent(t *testing.T, log *eventlog.MemoryLog, eventType string, payload domain.GrantEventPayload) {
	t.Helper()
	_, err := log.Append(context.Background(), domain.StoredEvent{
		EventType:   eventType,
		AggregateID: payload.WorkspaceID,
		Payload:     payload,
	})
	require.NoError(t, err)
}

func TestGrantsProjector_AppliesGrantLifecycle(t *testing.T) {
	ctx := context.Background()
	log := eventlog.NewMemoryLog()
	registry := NewMemoryRegistry()
	readModel := scope.NewMemoryReadModel()
	projector := NewGrantsProjector(log, registry, readModel, testLogger())

	appendGrantEvent(t, log, domain.EventGrantCreated, domain.GrantEventPayload{
		GrantID: "g-1", WorkspaceID: "ws-1", UserID: "u-1", Role: domain.RoleContributor,
	})

	applied, err := projector.CatchUp(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	decision, definitive, err := readModel.Lookup(ctx, "ws-1", "u-1")
	require.NoError(t, err)
	require.True(t, definitive)
	assert.True(t, decision.Allowed)
	assert.Equal(t, domain.RoleContributor, decision.Role)

	// Revocation removes the grant; the read model can no longer answer
	// definitively for that user.
	appendGrantEvent(t, log, domain.EventGrantRevoked, domain.GrantEventPayload{
		GrantID: "g-1", WorkspaceID: "ws-1", UserID: "u-1",
	})
	_, err = projector.CatchUp(ctx)
	require.NoError(t, err)

	_, definitive, err = readModel.Lookup(ctx, "ws-1", "u-1")
	require.NoError(t, err)
	assert.False(t, definitive)
}

func TestGrantsProjector_CheckpointsOffset(t *testing.T) {
	ctx := context.Background()
	log := eventlog.NewMemoryLog()
	registry := NewMemoryRegistry()
	projector := NewGrantsProjector(log, registry, scope.NewMemoryReadModel(), testLogger())

	appendGrantEvent(t, log, domain.EventGrantCreated, domain.GrantEventPayload{
		GrantID: "g-1", WorkspaceID: "ws-1", UserID: "u-1", Role: domain.RoleViewer,
	})
	appendGrantEvent(t, log, domain.EventGrantCreated, domain.GrantEventPayload{
		GrantID: "g-2", WorkspaceID: "ws-1", UserID: "u-2", Role: domain.RoleViewer,
	})

	_, err := projector.CatchUp(ctx)
	require.NoError(t, err)

	rec, err := registry.GetVersion(ctx, GrantsProjectionName)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.LastEventOffset)

	// A second pass with no new events applies nothing and keeps the
	// checkpoint where it was.
	applied, err := projector.CatchUp(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied)

	again, err := registry.GetVersion(ctx, GrantsProjectionName)
	require.NoError(t, err)
	assert.Equal(t, rec.LastEventOffset, again.LastEventOffset)
}

func TestGrantsProjector_SkipsForeignEvents(t *testing.T) {
	ctx := context.Background()
	log := eventlog.NewMemoryLog()
	registry := NewMemoryRegistry()
	projector := NewGrantsProjector(log, registry, scope.NewMemoryReadModel(), testLogger())

	_, err := log.Append(ctx, domain.StoredEvent{
		EventType:   "tasks:created",
		AggregateID: "ws-1",
		Payload:     map[string]string{"id": "task-1"},
	})
	require.NoError(t, err)

	applied, err := projector.CatchUp(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied, "foreign events are consumed and checkpointed, just not projected")

	rec, err := registry.GetVersion(ctx, GrantsProjectionName)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.LastEventOffset)
}

func TestGrantsProjector_DecodesMapPayloads(t *testing.T) {
	// Payloads read back from a JSON store arrive as map[string]any.
	ctx := context.Background()
	log := eventlog.NewMemoryLog()
	readModel := scope.NewMemoryReadModel()
	projector := NewGrantsProjector(log, NewMemoryRegistry(), readModel, testLogger())

	_, err := log.Append(ctx, domain.StoredEvent{
		EventType:   domain.EventGrantCreated,
		AggregateID: "ws-1",
		Payload: map[string]any{
			"grantId":     "g-1",
			"workspaceId": "ws-1",
			"userId":      "u-1",
			"role":        "Manager",
		},
	})
	require.NoError(t, err)

	_, err = projector.CatchUp(ctx)
	require.NoError(t, err)

	decision, definitive, err := readModel.Lookup(ctx, "ws-1", "u-1")
	require.NoError(t, err)
	require.True(t, definitive)
	assert.Equal(t, domain.RoleManager, decision.Role)
}
