// package server contains the router, middleware & job simulator behind `sonus serve`
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/run"
)

const shutdownTimeout = 5 * time.Second

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows the route patterns it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the patterns ("POST /start-scan/") this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Server runs an HTTP handler until its context is cancelled or the process receives SIGINT/SIGTERM.
type Server struct {
	addr   string
	http   *http.Server
	logger *log.Logger
}

func New(addr string, handler http.Handler, logger *log.Logger) *Server {
	return &Server{
		addr:   addr,
		http:   &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second},
		logger: logger,
	}
}

// ListenAndServe listens on the configured address and serves until shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled or a termination signal arrives, then shuts down gracefully.
//
// Shutdown by signal or cancellation returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	var g run.Group

	// HTTP server.
	{
		g.Add(
			func() error {
				s.logger.Info("server listening", "addr", ln.Addr().String())
				if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			},
			func(_ error) {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := s.http.Shutdown(shutdownCtx); err != nil {
					s.logger.Warn("error shutting down server", "err", err)
				}
			},
		)
	}

	// OS signals and context cancellation.
	{
		g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))
	}

	err := g.Run()

	var sigErr run.SignalError
	switch {
	case errors.As(err, &sigErr):
		s.logger.Info("termination signal received", "signal", sigErr.Signal)
		return nil
	case errors.Is(err, context.Canceled):
		return nil
	default:
		return err
	}
}
