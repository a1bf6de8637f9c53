// Package server exposes report artifacts over HTTP.
//
// The serve surface is small: health and version probes plus read-only
// access to the report files a canopy job wrote. It exists so a scheduled
// report job can be inspected without shell access to the host.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/canopyhq/canopy/internal/server/handlers"
)

// Server serves report artifacts over HTTP.
type Server struct {
	host      string
	port      int
	reportDir string
	version   string
	logger    *zap.Logger
	http      *http.Server
}

// New creates a server bound to host:port serving reports from reportDir.
func New(host string, port int, reportDir, version string) *Server {
	return &Server{
		host:      host,
		port:      port,
		reportDir: reportDir,
		version:   version,
		logger:    zap.NewNop(),
	}
}

// WithLogger sets the request logger. Returns the server for chaining.
func (s *Server) WithLogger(logger *zap.Logger) *Server {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Handler builds the HTTP handler tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(requestLogger(s.logger))

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Get("/health", handlers.Health(s.version))
	r.Get("/version", handlers.Version(s.version))

	reports := handlers.NewReports(s.reportDir)
	r.Get("/reports", reports.List)
	r.Get("/reports/{name}", reports.Get)

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.host, s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	s.logger.Info("server listening", zap.String("addr", s.http.Addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// requestLogger logs each request at debug level.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
