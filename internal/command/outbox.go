package command

import "conduit/internal/domain"

// Outbox buffers events a unit of work wants to emit without delivering
// them yet. It is exclusively owned by one Run invocation, so no locking
// is needed; collection order is append order and is preserved through
// both the event log and the publish sink.
type Outbox struct {
	events []domain.OutboxEvent
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{}
}

// Collect appends one pending event.
func (o *Outbox) Collect(eventType string, payload any) {
	o.events = append(o.events, domain.OutboxEvent{Type: eventType, Payload: payload})
}

// Drain removes and returns everything collected since the last drain.
// A second immediate call returns an empty slice.
func (o *Outbox) Drain() []domain.OutboxEvent {
	events := o.events
	o.events = nil
	return events
}

// Flush delivers the current contents without clearing them.
func (o *Outbox) Flush(publish PublishFunc) {
	if publish == nil {
		return
	}
	for _, event := range o.events {
		publish(event.Type, event.Payload)
	}
}

// Len reports how many events are pending.
func (o *Outbox) Len() int {
	return len(o.events)
}
