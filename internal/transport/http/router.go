package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authmw "conduit/pkg/platform/middleware/auth"
	"conduit/pkg/platform/middleware/metadata"
	request "conduit/pkg/platform/middleware/request"
	"conduit/pkg/platform/middleware/requesttime"
)

// NewRouter wires the public endpoints. Health and metrics stay outside
// the auth chain; everything under /workspaces requires a bearer token.
func NewRouter(commands *CommandHandler, validator authmw.JWTValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(validator, logger))
		commands.Register(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
