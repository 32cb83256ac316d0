package domain

import "time"

// Event types in the closed set the pipeline itself produces. Business
// handlers add their own "resource:verb" names on top.
const (
	EventGrantCreated = "grants:created"
	EventGrantRevoked = "grants:revoked"
)

// GrantEventPayload is the payload carried by grant lifecycle events.
type GrantEventPayload struct {
	GrantID     string `json:"grantId"`
	WorkspaceID string `json:"workspaceId"`
	UserID      string `json:"userId"`
	Role        Role   `json:"role,omitempty"`
	GrantedBy   string `json:"grantedBy,omitempty"`
}

// OutboxEvent is a pending domain event collected inside a unit of work.
// Type is a "resource:verb" style name from the closed set of event types
// the system knows; Payload stays opaque to the pipeline.
type OutboxEvent struct {
	Type    string
	Payload any
}

// StoredEvent is an immutable entry in the append-only event log. Once
// written it is never updated or deleted; the log replayed in OccurredAt
// order (ties by append sequence) reconstructs every projection.
type StoredEvent struct {
	ID            string    `json:"id"`
	EventType     string    `json:"eventType"`
	Payload       any       `json:"payload"`
	AggregateID   string    `json:"aggregateId"`
	OccurredAt    time.Time `json:"occurredAt"`
	CorrelationID string    `json:"correlationId,omitempty"`
	CausedBy      string    `json:"causedBy,omitempty"`
}
