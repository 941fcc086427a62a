// Package server runs the tile existence service: POST /exists answers
// whether a tile name template resolves to an existing file or URL for a
// coordinate. It is the remote side of probe.HTTPProbe.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/agbru/tilemanifest/internal/logging"
	"github.com/agbru/tilemanifest/internal/probe"
	"github.com/agbru/tilemanifest/internal/tile"
)

// Routes.
const (
	ExistsPath  = probe.ExistsPath
	MetricsPath = "/metrics"
	HealthPath  = "/healthz"
)

// Default timeouts.
const (
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Server serves existence queries over HTTP.
type Server struct {
	addr            string
	probe           probe.ExistenceProbe
	metrics         *Metrics
	logger          logging.Logger
	security        SecurityConfig
	shutdownTimeout time.Duration
	httpServer      *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithSecurity replaces the default security configuration.
func WithSecurity(c SecurityConfig) Option {
	return func(s *Server) { s.security = c }
}

// WithMetrics shares an existing Metrics instance.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// New returns a server listening on addr that answers with p.
func New(addr string, p probe.ExistenceProbe, logger logging.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		addr:            addr,
		metrics:         NewMetrics(),
		logger:          logger,
		security:        DefaultSecurityConfig(),
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.probe = probe.Instrumented(p, s.metrics.Probes)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
	}
	return s
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		return SecurityMiddleware(s.security, s.metricsMiddleware(h))
	}
	mux := http.NewServeMux()
	mux.HandleFunc(ExistsPath, wrap(s.handleExists))
	mux.HandleFunc(MetricsPath, wrap(s.handleMetrics))
	mux.HandleFunc(HealthPath, wrap(s.handleHealth))
	return mux
}

// ListenAndServe listens on the configured address and serves until ctx is
// canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled, then shuts down gracefully.
// It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("exists service listening", logging.String("addr", ln.Addr().String()))
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("exists service shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// existsBody mirrors probe.ExistsRequest with presence tracking.
type existsBody struct {
	FormatStr *string `json:"formatStr"`
	Coord     []int   `json:"coord"`
}

// handleExists answers POST /exists with a JSON boolean.
func (s *Server) handleExists(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var body existsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeText(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeText(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if body.FormatStr == nil {
		writeText(w, http.StatusBadRequest, "missing field: formatStr")
		return
	}
	if len(body.Coord) != 3 {
		writeText(w, http.StatusBadRequest, fmt.Sprintf("coord must have 3 elements, got %d", len(body.Coord)))
		return
	}
	c := tile.FromArray([3]int{body.Coord[0], body.Coord[1], body.Coord[2]})

	exists, err := s.probe.Exists(r.Context(), *body.FormatStr, c)
	switch {
	case errors.Is(err, tile.ErrBadFormat), errors.Is(err, probe.ErrOutsideRoot):
		writeText(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("exists probe failed", err,
			logging.String("format", *body.FormatStr),
			logging.Stringer("coord", c),
		)
		writeText(w, http.StatusInternalServerError, "probe failed")
		return
	}
	writeJSON(w, http.StatusOK, exists)
}

// handleMetrics serves the Prometheus exposition on GET.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r, http.MethodGet)
		return
	}
	s.metrics.WritePrometheus(w, r)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request, allow string) {
	s.logger.Debug("method not allowed",
		logging.String("method", r.Method),
		logging.String("path", r.URL.Path),
	)
	w.Header().Set("Allow", allow)
	writeText(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
