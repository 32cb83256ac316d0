package testutil

import (
	"net/http"

	"conduit/pkg/requestcontext"
)

// WithActor adds an actor ID to the request context, simulating what the
// auth middleware does for authenticated requests.
func WithActor(req *http.Request, actorID string) *http.Request {
	return req.WithContext(requestcontext.WithActorID(req.Context(), actorID))
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
