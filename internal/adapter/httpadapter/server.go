package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/storefront-estimator/internal/domain"
	"github.com/couchcryptid/storefront-estimator/internal/observability"
)

// Estimator computes estimates for the API.
type Estimator interface {
	Estimate(ctx context.Context, req domain.EstimateRequest) (domain.LocationEstimate, error)
	NormalizeArea(raw domain.AreaDistribution) domain.AreaDistribution
}

// EstimateStore records and looks up estimates.
type EstimateStore interface {
	LoadBatch(ctx context.Context, estimates []domain.LocationEstimate) error
	Get(ctx context.Context, requestID string) (domain.LocationEstimate, error)
}

// Server exposes the estimate API alongside health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	estimator  Estimator
	store      EstimateStore
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server. A nil store disables persistence of API
// estimates and the lookup route.
func NewServer(addr string, estimator Estimator, store EstimateStore, ready sharedobs.ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      2 * time.Minute, // vision analysis can take most of a minute
			IdleTimeout:       60 * time.Second,
		},
		estimator: estimator,
		store:     store,
		metrics:   metrics,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("POST /v1/estimates", s.instrument("estimate", s.handleEstimate))
	mux.Handle("POST /v1/area/normalize", s.instrument("normalize", s.handleNormalize))
	if store != nil {
		mux.Handle("GET /v1/estimates/{id}", s.instrument("get_estimate", s.handleGetEstimate))
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument counts responses per route and status code.
func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
