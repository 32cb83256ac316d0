// Package httpserver builds the command API server.
package httpserver

import (
	"net/http"
	"time"
)

// New wraps the router in an http.Server. Only the header read is bounded
// here; the command endpoint owns its own deadlines through the request
// context.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
