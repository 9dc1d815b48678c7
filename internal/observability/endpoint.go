package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tphakala/codeseek/internal/conf"
	"github.com/tphakala/codeseek/internal/logger"
	metricspkg "github.com/tphakala/codeseek/internal/observability/metrics"
)

// Endpoint serves the Prometheus metrics on a dedicated listener.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	path          string
	metrics       *Metrics
}

// NewEndpoint creates a new metrics Endpoint. It returns an error if metrics
// are not enabled in the settings.
func NewEndpoint(settings *conf.Settings, metrics *Metrics) (*Endpoint, error) {
	if !settings.Metrics.Enabled {
		return nil, fmt.Errorf("metrics not enabled in settings")
	}

	path := settings.Metrics.Path
	if path == "" {
		path = "/metrics"
	}

	return &Endpoint{
		listenAddress: settings.Metrics.Listen,
		path:          path,
		metrics:       metrics,
	}, nil
}

// Run serves metrics until ctx is cancelled, then shuts the server down.
func (e *Endpoint) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux, e.path)

	e.server = &http.Server{
		Addr:              e.listenAddress,
		Handler:           mux,
		ReadHeaderTimeout: metricspkg.ShutdownTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log().Info("metrics endpoint starting",
			logger.String("address", e.listenAddress),
			logger.String("path", e.path))
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log().Error("metrics HTTP server error", logger.Error(err))
		}
		return err
	case <-ctx.Done():
	}

	log().Info("stopping metrics server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricspkg.ShutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(shutdownCtx); err != nil {
		log().Error("metrics server shutdown error", logger.Error(err))
		return err
	}
	return nil
}

// GetMetrics returns the Metrics instance associated with this Endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return e.metrics
}
