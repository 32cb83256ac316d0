package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/command"
	dErrors "conduit/pkg/domain-errors"
	authmw "conduit/pkg/platform/middleware/auth"
	"conduit/pkg/testutil"
)

type stubDispatcher struct {
	lastCmd     command.Command
	lastPayload json.RawMessage
	result      command.Result
}

func (d *stubDispatcher) Dispatch(_ context.Context, cmd command.Command, payload json.RawMessage) command.Result {
	d.lastCmd = cmd
	d.lastPayload = payload
	return d.result
}

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*authmw.JWTClaims, error) {
	if token != "good-token" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &authmw.JWTClaims{ActorID: "actor-1"}, nil
}

func newTestServer(t *testing.T, result command.Result) (*stubDispatcher, http.Handler) {
	t.Helper()
	dispatcher := &stubDispatcher{result: result}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewCommandHandler(dispatcher, logger)
	return dispatcher, NewRouter(handler, stubValidator{}, logger)
}

func postCommand(router http.Handler, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/workspaces/ws-1/commands", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleCommand_Success(t *testing.T) {
	dispatcher, router := newTestServer(t, command.Result{Success: true, Value: "task-123"})

	rec := postCommand(router, "good-token", `{"action":"tasks:create","payload":{"title":"Ship"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CommandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "task-123", resp.Value)
	assert.Empty(t, resp.Error)

	assert.Equal(t, "ws-1", dispatcher.lastCmd.AggregateID)
	assert.Equal(t, "actor-1", dispatcher.lastCmd.ActorID)
	assert.Equal(t, "tasks:create", dispatcher.lastCmd.Action)
	assert.JSONEq(t, `{"title":"Ship"}`, string(dispatcher.lastPayload))
}

func TestHandleCommand_DenialStaysInBand(t *testing.T) {
	_, router := newTestServer(t, command.Result{Success: false, Error: "Access denied: Workspace not found"})

	rec := postCommand(router, "good-token", `{"action":"tasks:create"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CommandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Access denied: Workspace not found", resp.Error)
	assert.Nil(t, resp.Value)
}

func TestHandleCommand_AuthRequired(t *testing.T) {
	dispatcher, router := newTestServer(t, command.Result{Success: true})

	t.Run("missing token", func(t *testing.T) {
		rec := postCommand(router, "", `{"action":"tasks:create"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		rec := postCommand(router, "bad-token", `{"action":"tasks:create"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	assert.Empty(t, dispatcher.lastCmd.Action)
}

func TestHandleCommand_BadEnvelope(t *testing.T) {
	_, router := newTestServer(t, command.Result{Success: true})

	t.Run("invalid json", func(t *testing.T) {
		rec := postCommand(router, "good-token", `{bad-json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing action", func(t *testing.T) {
		rec := postCommand(router, "good-token", `{"payload":{}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleCommand_ActorFromContext(t *testing.T) {
	dispatcher := &stubDispatcher{result: command.Result{Success: true}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewCommandHandler(dispatcher, logger)

	r := chi.NewRouter()
	handler.Register(r)

	req := httptest.NewRequest(http.MethodPost, "/workspaces/ws-9/commands", strings.NewReader(`{"action":"tasks:create"}`))
	req = testutil.WithActor(req, "actor-7")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "actor-7", dispatcher.lastCmd.ActorID)
	assert.Equal(t, "ws-9", dispatcher.lastCmd.AggregateID)
}

func TestHandleCommand_LogsClientMetadata(t *testing.T) {
	dispatcher := &stubDispatcher{result: command.Result{Success: true}}
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := NewCommandHandler(dispatcher, logger)
	router := NewRouter(handler, stubValidator{}, logger)

	req := httptest.NewRequest(http.MethodPost, "/workspaces/ws-1/commands", strings.NewReader(`{"action":"tasks:create"}`))
	req.Header.Set("Authorization", "Bearer good-token")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("User-Agent", "conduit-cli/1.0")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), `"client_ip":"203.0.113.7"`)
	assert.Contains(t, buf.String(), `"user_agent":"conduit-cli/1.0"`)
}

func TestRouter_HealthOpenWithoutAuth(t *testing.T) {
	_, router := newTestServer(t, command.Result{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	_, router := newTestServer(t, command.Result{Success: true})

	req := httptest.NewRequest(http.MethodPost, "/workspaces/ws-1/commands", strings.NewReader(`{"action":"tasks:create"}`))
	req.Header.Set("Authorization", "Bearer good-token")
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-Id"))
}
