package command

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"conduit/internal/platform/metrics"
)

const tracerName = "conduit/internal/command"

// Handler orchestrates the pipeline: scope guard, policy engine,
// transaction runner, publish. Steps run strictly in that order with no
// retries; each stage short-circuits the ones after it.
type Handler struct {
	scope   ScopeGuard
	policy  PolicyEngine
	runner  *Runner
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerMetrics attaches pipeline metrics.
func WithHandlerMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler wires the pipeline stages together.
func NewHandler(scope ScopeGuard, policy PolicyEngine, runner *Runner, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		scope:  scope,
		policy: policy,
		runner: runner,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Execute runs one command through the pipeline exactly once. Denies come
// back as data; every error (and any handler panic) is caught here, logged
// as a structured domain-error record, and converted into a failed result.
// Nothing escapes to the caller.
func (h *Handler) Execute(ctx context.Context, cmd Command, handler UnitOfWork, publish PublishFunc) (res Result) {
	ctx, span := h.tracer.Start(ctx, "execute:"+cmd.Action,
		trace.WithAttributes(
			attribute.String("command.aggregate_id", cmd.AggregateID),
			attribute.String("command.actor_id", cmd.ActorID),
			attribute.String("command.action", cmd.Action),
		),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			h.logFailure(ctx, span, cmd, "handler", fmt.Sprintf("panic: %v", r), debug.Stack())
			h.metrics.ObserveOutcome("failed")
			res = Result{Success: false, Error: "Command execution failed"}
		}
	}()

	scopeDecision, err := h.scope.Check(ctx, cmd.AggregateID, cmd.ActorID)
	if err != nil {
		// A broken store is a failed command, not a security decision.
		h.logFailure(ctx, span, cmd, "scope", err.Error(), nil)
		h.metrics.ObserveOutcome("failed")
		return Result{Success: false, Error: err.Error()}
	}
	if !scopeDecision.Allowed {
		span.SetStatus(codes.Ok, "denied by scope")
		h.metrics.ObserveDenied("scope")
		h.metrics.ObserveOutcome("denied")
		return Result{Success: false, Error: "Access denied: " + scopeDecision.Reason}
	}

	policyDecision := h.policy.Evaluate(scopeDecision.Role, cmd.Action)
	if !policyDecision.Permitted {
		span.SetStatus(codes.Ok, "denied by policy")
		h.metrics.ObserveDenied("policy")
		h.metrics.ObserveOutcome("denied")
		return Result{Success: false, Error: "Policy denied: " + policyDecision.Reason}
	}

	runResult, err := h.runner.Run(ctx, cmd.AggregateID, cmd.ActorID, "", handler)
	if err != nil {
		h.logFailure(ctx, span, cmd, "transaction", err.Error(), nil)
		h.metrics.ObserveOutcome("failed")
		return Result{Success: false, Error: err.Error()}
	}

	if publish != nil {
		for _, event := range runResult.Events {
			publish(event.Type, event.Payload)
		}
		h.metrics.ObservePublished(len(runResult.Events))
	}

	h.metrics.ObserveOutcome("success")
	return Result{Success: true, Value: runResult.Value}
}

// logFailure is the single place command failures turn into structured
// domain-error records: timestamp (slog), trace ID, source stage, message,
// and a stack when one exists.
func (h *Handler) logFailure(ctx context.Context, span trace.Span, cmd Command, source, message string, stack []byte) {
	span.SetStatus(codes.Error, message)

	args := []any{
		"trace_id", span.SpanContext().TraceID().String(),
		"source", source,
		"action", cmd.Action,
		"aggregate_id", cmd.AggregateID,
		"actor_id", cmd.ActorID,
		"error", message,
	}
	if stack != nil {
		args = append(args, "stack", string(stack))
	}
	h.logger.ErrorContext(ctx, "command execution failed", args...)
}
