// Package request assigns each inbound request an ID, honoring one the
// caller already supplied so IDs survive proxy hops.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"conduit/pkg/requestcontext"
)

// HeaderRequestID is the header the ID is read from and echoed back on.
const HeaderRequestID = "X-Request-Id"

// Middleware ensures every request carries a request ID in its context
// and response headers.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(HeaderRequestID, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
