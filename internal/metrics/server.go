package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quoter/internal/core"
)

// Server exports the metrics registry over HTTP.
type Server struct {
	port    int
	logger  core.ILogger
	metrics *Metrics
	srv     *http.Server
}

// NewServer creates a metrics server. A port of 0 disables the export.
func NewServer(port int, metrics *Metrics, logger core.ILogger) *Server {
	return &Server{
		port:    port,
		logger:  logger.WithField("component", "metrics_server"),
		metrics: metrics,
	}
}

// Start begins serving /metrics in the background.
func (s *Server) Start() {
	if s.port == 0 {
		s.logger.Info("metrics export disabled")
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	go func() {
		s.logger.Info("starting metrics server", "port", s.port)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()
}

// Stop gracefully stops the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	s.logger.Info("stopping metrics server")
	return s.srv.Shutdown(ctx)
}
