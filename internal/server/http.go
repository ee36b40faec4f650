// Package server exposes the daemon's HTTP surface: liveness, metrics,
// and the most recent device snapshot.
package server

import (
	"context"
	"net/http"
)

// HTTPServer wraps the daemon's HTTP listener.
type HTTPServer struct {
	Server *http.Server
}

func NewHTTPServer(addr string, handler http.Handler) *HTTPServer {
	return &HTTPServer{Server: &http.Server{Addr: addr, Handler: handler}}
}

func (s *HTTPServer) ListenAndServe() error {
	return s.Server.ListenAndServe()
}

// Shutdown stops the listener without dropping in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}
