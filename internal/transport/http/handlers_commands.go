package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"conduit/internal/command"
	dErrors "conduit/pkg/domain-errors"
	"conduit/pkg/platform/httputil"
	"conduit/pkg/platform/middleware/metadata"
	"conduit/pkg/requestcontext"
)

// Dispatcher routes a decoded command envelope into the pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd command.Command, payload json.RawMessage) command.Result
}

// CommandHandler exposes the command pipeline over HTTP. It only decodes
// and routes; authorization and policy live inside the pipeline.
type CommandHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewCommandHandler constructs the transport handler.
func NewCommandHandler(dispatcher Dispatcher, logger *slog.Logger) *CommandHandler {
	return &CommandHandler{dispatcher: dispatcher, logger: logger}
}

// Register mounts the command endpoint on the router.
func (h *CommandHandler) Register(r chi.Router) {
	r.Post("/workspaces/{workspaceID}/commands", h.HandleCommand)
}

// CommandRequest is the wire envelope for POST /workspaces/{id}/commands.
type CommandRequest struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// CommandResponse mirrors the pipeline result. Denials and handler
// failures travel in-band with success=false rather than as transport
// errors; HTTP statuses are reserved for envelope problems.
type CommandResponse struct {
	Success bool   `json:"success"`
	Value   any    `json:"value,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HandleCommand handles POST /workspaces/{workspaceID}/commands requests.
func (h *CommandHandler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	actorID := requestcontext.ActorID(ctx)
	if actorID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	workspaceID := chi.URLParam(r, "workspaceID")
	if workspaceID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "workspace id is required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[CommandRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if req.Action == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "action is required"))
		return
	}

	cmd := command.Command{
		AggregateID: workspaceID,
		ActorID:     actorID,
		Action:      req.Action,
	}
	result := h.dispatcher.Dispatch(ctx, cmd, req.Payload)

	h.logger.InfoContext(ctx, "command dispatched",
		"request_id", requestID,
		"actor_id", actorID,
		"workspace_id", workspaceID,
		"action", req.Action,
		"success", result.Success,
		"client_ip", metadata.GetClientIP(ctx),
		"user_agent", metadata.GetUserAgent(ctx),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, CommandResponse{
		Success: result.Success,
		Value:   result.Value,
		Error:   result.Error,
	})
}
