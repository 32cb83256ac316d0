package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutbox_CollectAndDrain(t *testing.T) {
	outbox := NewOutbox()
	outbox.Collect("tasks:created", map[string]string{"id": "task-1"})
	outbox.Collect("tasks:updated", map[string]string{"id": "task-1"})

	events := outbox.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, "tasks:created", events[0].Type)
	assert.Equal(t, "tasks:updated", events[1].Type)

	// Immediate second drain returns nothing.
	assert.Empty(t, outbox.Drain())
	assert.Zero(t, outbox.Len())
}

func TestOutbox_FlushDeliversWithoutClearing(t *testing.T) {
	outbox := NewOutbox()
	outbox.Collect("logs:created", "a")
	outbox.Collect("logs:updated", "b")

	var delivered []string
	outbox.Flush(func(eventType string, _ any) {
		delivered = append(delivered, eventType)
	})

	assert.Equal(t, []string{"logs:created", "logs:updated"}, delivered)
	assert.Equal(t, 2, outbox.Len(), "flush must not clear the outbox")

	// Drain still sees everything, in collection order.
	events := outbox.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, "logs:created", events[0].Type)
}

func TestOutbox_FlushNilPublishIsNoop(t *testing.T) {
	outbox := NewOutbox()
	outbox.Collect("tasks:created", nil)
	outbox.Flush(nil)
	assert.Equal(t, 1, outbox.Len())
}
