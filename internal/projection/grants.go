package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"conduit/internal/domain"
	"conduit/internal/eventlog"
)

// GrantsProjectionName is the registry key for the grants read model.
const GrantsProjectionName = "grants"

// grantsReadModelVersion changes whenever the read-model shape changes,
// forcing a rebuild on deploy.
const grantsReadModelVersion = "v1"

// GrantApplier is the write surface of the grant read model. The scope
// package's MemoryReadModel implements it.
type GrantApplier interface {
	ApplyGrant(ctx context.Context, grant domain.Grant) error
	RemoveGrant(ctx context.Context, workspaceID, userID string) error
}

// GrantsProjector consumes grant lifecycle events from the event log and
// maintains the read model the scope guard consults, checkpointing
// through the registry after each batch.
type GrantsProjector struct {
	log      eventlog.Log
	registry Registry
	applier  GrantApplier
	logger   *slog.Logger

	batchSize int
	interval  time.Duration
}

// ProjectorOption configures a GrantsProjector.
type ProjectorOption func(*GrantsProjector)

// WithBatchSize bounds how many events one CatchUp pass consumes.
func WithBatchSize(n int) ProjectorOption {
	return func(p *GrantsProjector) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithPollInterval sets how often Run polls for new events.
func WithPollInterval(d time.Duration) ProjectorOption {
	return func(p *GrantsProjector) {
		if d > 0 {
			p.interval = d
		}
	}
}

// NewGrantsProjector wires the projector over the log, registry, and read
// model.
func NewGrantsProjector(log eventlog.Log, registry Registry, applier GrantApplier, logger *slog.Logger, opts ...ProjectorOption) *GrantsProjector {
	p := &GrantsProjector{
		log:       log,
		registry:  registry,
		applier:   applier,
		logger:    logger,
		batchSize: 100,
		interval:  250 * time.Millisecond,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Run polls the event log until the context is cancelled. It keeps
// background consumption testable without wiring queue implementations.
func (p *GrantsProjector) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.CatchUp(ctx); err != nil {
				p.logger.ErrorContext(ctx, "grants projection catch-up failed",
					"projection", GrantsProjectionName,
					"error", err,
				)
			}
		}
	}
}

// CatchUp consumes one batch of new events and checkpoints. It returns
// the number of events applied.
func (p *GrantsProjector) CatchUp(ctx context.Context) (int, error) {
	after := int64(0)
	if rec, err := p.registry.GetVersion(ctx, GrantsProjectionName); err == nil {
		after = rec.LastEventOffset
	}

	batch, err := p.log.ReadFrom(ctx, after, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("read events after %d: %w", after, err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	applied := 0
	last := after
	for _, s := range batch {
		if err := p.apply(ctx, s.Event); err != nil {
			// Checkpoint what landed so far; the failing event is retried
			// on the next pass.
			if cpErr := p.registry.UpsertVersion(ctx, GrantsProjectionName, last, grantsReadModelVersion); cpErr != nil {
				p.logger.ErrorContext(ctx, "checkpoint after apply failure failed", "error", cpErr)
			}
			return applied, fmt.Errorf("apply event %s at offset %d: %w", s.Event.EventType, s.Offset, err)
		}
		last = s.Offset
		applied++
	}

	if err := p.registry.UpsertVersion(ctx, GrantsProjectionName, last, grantsReadModelVersion); err != nil {
		return applied, fmt.Errorf("checkpoint projection: %w", err)
	}
	return applied, nil
}

// apply routes one event to the read model. Event types outside the
// grants set are skipped; the log carries every aggregate's history.
func (p *GrantsProjector) apply(ctx context.Context, event domain.StoredEvent) error {
	switch event.EventType {
	case domain.EventGrantCreated:
		payload, err := decodeGrantPayload(event.Payload)
		if err != nil {
			return err
		}
		return p.applier.ApplyGrant(ctx, domain.Grant{
			ID:          payload.GrantID,
			WorkspaceID: payload.WorkspaceID,
			UserID:      payload.UserID,
			Role:        payload.Role,
			Status:      domain.GrantActive,
			CreatedAt:   event.OccurredAt,
		})
	case domain.EventGrantRevoked:
		payload, err := decodeGrantPayload(event.Payload)
		if err != nil {
			return err
		}
		return p.applier.RemoveGrant(ctx, payload.WorkspaceID, payload.UserID)
	default:
		return nil
	}
}

// decodeGrantPayload accepts both in-process typed payloads and the
// map-shaped payloads that come back from a JSON store, normalizing
// through a marshal round trip.
func decodeGrantPayload(payload any) (domain.GrantEventPayload, error) {
	if typed, ok := payload.(domain.GrantEventPayload); ok {
		return typed, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.GrantEventPayload{}, fmt.Errorf("encode grant payload: %w", err)
	}
	var out domain.GrantEventPayload
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.GrantEventPayload{}, fmt.Errorf("decode grant payload: %w", err)
	}
	return out, nil
}
