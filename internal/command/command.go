// Package command is the pipeline every business action passes through:
// scope guard, policy engine, transaction runner with its outbox, event
// log append, then live publish. The handler is the only entry point
// external callers use.
package command

import (
	"context"

	"conduit/internal/domain"
)

// Command is the envelope a caller builds per business action. Action is a
// "resource:verb" string such as "tasks:create". Commands are immutable
// and owned by the call stack that created them.
type Command struct {
	AggregateID string `json:"aggregateId"`
	ActorID     string `json:"actorId"`
	Action      string `json:"action"`
}

// Result is the flat shape every caller receives, regardless of which
// stage failed. Deny classes are distinguishable only by the error prefix.
type Result struct {
	Success bool   `json:"success"`
	Value   any    `json:"value,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PublishFunc delivers one event to whatever transport the caller wired
// (in-process bus, kafka, websocket fanout). The pipeline has no opinion.
type PublishFunc func(eventType string, payload any)

// UnitOfWork is the business logic run inside the transaction runner. It
// is the only place domain events are produced; the context's outbox
// collects them for append and publish after the work succeeds.
type UnitOfWork func(ctx context.Context, tc *TransactionContext) (any, error)

// TransactionContext is passed by reference into the unit of work. The
// outbox it carries must not outlive the Run call that created it.
type TransactionContext struct {
	AggregateID   string
	CorrelationID string
	Outbox        *Outbox
}

// ScopeGuard gates commands on workspace access.
type ScopeGuard interface {
	Check(ctx context.Context, aggregateID, actorID string) (domain.ScopeDecision, error)
}

// PolicyEngine gates commands on role permissions.
type PolicyEngine interface {
	Evaluate(role domain.Role, action string) domain.PolicyDecision
}

// EventLog is the append surface the runner needs; replay lives with the
// projection consumers.
type EventLog interface {
	Append(ctx context.Context, event domain.StoredEvent) (string, error)
}
