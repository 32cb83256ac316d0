package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"conduit/internal/domain"
	"conduit/internal/platform/metrics"
	"conduit/pkg/requestcontext"
)

// Runner executes a unit of work, then drains its outbox and appends every
// collected event to the event log. The business side-effect is assumed
// committed once the handler returns, so the append step is best-effort:
// a failed append is logged and counted but never rolls the command back
// and never stops the remaining appends.
type Runner struct {
	log     EventLog
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerClock overrides the event clock. Without it, events are
// stamped with the request-scoped time from the context.
func WithRunnerClock(clock func() time.Time) RunnerOption {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithRunnerMetrics attaches pipeline metrics.
func WithRunnerMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// NewRunner constructs a transaction runner over the event log.
func NewRunner(log EventLog, logger *slog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{log: log, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RunResult carries the handler's return value and the in-memory events
// (already appended on a best-effort basis) for live delivery.
type RunResult struct {
	Value  any
	Events []domain.OutboxEvent
}

// Run builds a fresh transaction context, invokes the handler, and appends
// every drained event tagged with the aggregate, correlation ID, and
// causedBy actor. A correlation ID is generated when none is supplied.
func (r *Runner) Run(ctx context.Context, aggregateID, actorID, correlationID string, handler UnitOfWork) (RunResult, error) {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	tc := &TransactionContext{
		AggregateID:   aggregateID,
		CorrelationID: correlationID,
		Outbox:        NewOutbox(),
	}

	value, err := handler(ctx, tc)
	if err != nil {
		return RunResult{}, err
	}

	events := tc.Outbox.Drain()
	failed := 0
	for _, event := range events {
		stored := domain.StoredEvent{
			EventType:     event.Type,
			Payload:       event.Payload,
			AggregateID:   aggregateID,
			OccurredAt:    r.now(ctx),
			CorrelationID: correlationID,
			CausedBy:      actorID,
		}
		if _, appendErr := r.log.Append(ctx, stored); appendErr != nil {
			failed++
			r.metrics.ObserveAppendFailure()
			r.logger.ErrorContext(ctx, "event append failed, continuing",
				"correlation_id", correlationID,
				"aggregate_id", aggregateID,
				"event_type", event.Type,
				"error", appendErr,
			)
		}
	}

	// The command still succeeds, but operators can tell a fully durable
	// success from a partial one.
	if failed > 0 {
		r.metrics.ObservePartiallyDurable()
		r.logger.WarnContext(ctx, "command succeeded with partial event durability",
			"correlation_id", correlationID,
			"aggregate_id", aggregateID,
			"events_total", len(events),
			"events_failed", failed,
		)
	}

	return RunResult{Value: value, Events: events}, nil
}

// now resolves the event timestamp: an injected clock wins, otherwise the
// request-scoped time so every event of one request shares a "now".
func (r *Runner) now(ctx context.Context) time.Time {
	if r.clock != nil {
		return r.clock()
	}
	return requestcontext.Now(ctx)
}
