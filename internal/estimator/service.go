// Package estimator runs the full estimate flow for one request: collaborator
// enrichment followed by domain.Engine.ComputeMetrics. It is shared by the
// Kafka pipeline, the HTTP API, and the CLI.
package estimator

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/storefront-estimator/internal/domain"
	"github.com/couchcryptid/storefront-estimator/internal/observability"
)

// Collaborators are the optional external lookups. Nil fields disable the
// corresponding enrichment step.
type Collaborators struct {
	Geocoder         domain.ReverseGeocoder
	Vision           domain.VisionAnalyzer
	Competitors      domain.CompetitorFinder
	Junctions        domain.JunctionLocator
	DefaultJunctions domain.JunctionSequence
}

// Service produces location estimates.
type Service struct {
	engine  *domain.Engine
	collab  Collaborators
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService creates a Service.
func NewService(engine *domain.Engine, collab Collaborators, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		engine:  engine,
		collab:  collab,
		metrics: metrics,
		logger:  logger,
	}
}

// Estimate enriches the request and computes its metrics. Business and
// screenshot parameters are validated before any collaborator is called.
func (s *Service) Estimate(ctx context.Context, req domain.EstimateRequest) (domain.LocationEstimate, error) {
	start := time.Now()

	if err := domain.ValidateInput(domain.EstimateInput{Business: req.Business, Screenshot: req.Screenshot}); err != nil {
		s.recordError(req.ID, err)
		return domain.LocationEstimate{}, err
	}

	a := domain.NewAssessment(req)
	a = domain.EnrichWithPlaceName(ctx, a, s.collab.Geocoder, s.logger)
	a = domain.ResolveArea(ctx, a, s.collab.Vision, s.logger)
	a = domain.EnrichWithCompetitors(ctx, a, s.collab.Competitors, s.logger)
	a = domain.EnrichWithJunctions(ctx, a, s.collab.Junctions, s.collab.DefaultJunctions, s.logger)

	m, err := s.engine.ComputeMetrics(ctx, a.Input())
	if err != nil {
		s.recordError(req.ID, err)
		return domain.LocationEstimate{}, err
	}
	est := a.Estimate(m)

	s.metrics.EstimatesComputed.WithLabelValues(string(est.Metrics.ConfidenceLevel)).Inc()
	s.metrics.LocationScore.Observe(est.Metrics.LocationScore)
	for _, d := range est.Metrics.Degradations {
		s.metrics.Degradations.WithLabelValues(string(d)).Inc()
	}

	s.logger.Info("estimate complete",
		"request_id", est.RequestID,
		"place", est.PlaceName,
		"area_source", est.AreaSource,
		"junction_source", est.JunctionSource,
		"monthly_revenue", est.Metrics.MonthlyRevenue,
		"score", est.Metrics.LocationScore,
		"confidence", est.Metrics.ConfidenceLevel,
		"degradations", len(est.Metrics.Degradations),
		"duration", time.Since(start),
	)
	return est, nil
}

// NormalizeArea applies the engine's normalization mode.
func (s *Service) NormalizeArea(raw domain.AreaDistribution) domain.AreaDistribution {
	return s.engine.NormalizeArea(raw)
}

func (s *Service) recordError(requestID string, err error) {
	kind := domain.ErrorKind(err)
	s.metrics.EstimateErrors.WithLabelValues(kind).Inc()
	s.logger.Warn("estimate rejected", "request_id", requestID, "kind", kind, "error", err)
}
