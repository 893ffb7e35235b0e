package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. WriteTimeout stays unset because the
// notification stream holds its response open indefinitely; per-request
// deadlines are enforced by the router's timeout middleware instead.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
