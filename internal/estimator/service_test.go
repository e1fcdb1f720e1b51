package estimator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storefront-estimator/internal/domain"
	"github.com/couchcryptid/storefront-estimator/internal/observability"
)

type stubVision struct {
	area  domain.AreaDistribution
	err   error
	calls int
}

func (v *stubVision) Name() string { return "stub" }

func (v *stubVision) AnalyzeArea(context.Context, domain.VisionRequest) (domain.AreaDistribution, error) {
	v.calls++
	return v.area, v.err
}

type stubGeocoder struct{ name string }

func (g stubGeocoder) ReverseGeocode(context.Context, float64, float64) (domain.Place, error) {
	return domain.Place{Name: g.name}, nil
}

type stubFinder struct{ n int }

func (f stubFinder) CountNearby(context.Context, float64, float64) (int, error) { return f.n, nil }

type failingLocator struct{}

func (failingLocator) LocateJunctions(context.Context, float64, float64) (domain.JunctionSequence, error) {
	return nil, errors.New("overpass unavailable")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validRequest() domain.EstimateRequest {
	return domain.EstimateRequest{
		ID:       "req-42",
		Image:    []byte("png"),
		Business: domain.BusinessParameters{BuildingWidth: 5, OperatingHours: 10, ProductPrice: 10},
		Screenshot: domain.ScreenshotMetadata{
			Width: 800, Height: 600, Scale: 1,
			Center: &domain.Coordinates{Lat: -6.2, Lon: 106.8},
		},
	}
}

func TestService_Estimate(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	density := 9000.0
	vision := &stubVision{area: domain.AreaDistribution{Residential: 50, Road: 20, OpenSpace: 30, EstimatedPopulationDensity: &density}}
	metrics := observability.NewMetricsForTesting()
	svc := NewService(domain.NewEngine(nil, discardLogger()), Collaborators{
		Geocoder:         stubGeocoder{name: "Menteng, Jakarta"},
		Vision:           vision,
		Competitors:      stubFinder{n: 1},
		Junctions:        failingLocator{},
		DefaultJunctions: domain.JunctionSequence{"B", "P", "B"},
	}, metrics, discardLogger())

	est, err := svc.Estimate(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "req-42", est.RequestID)
	assert.Equal(t, "Menteng, Jakarta", est.PlaceName)
	assert.Equal(t, domain.SourceVision, est.AreaSource)
	assert.Equal(t, domain.SourceFailed, est.JunctionSource)
	assert.Equal(t, "stub", est.VisionProvider)
	assert.Equal(t, domain.CompetitorLow, est.Metrics.Area.CompetitorDensity)
	assert.Equal(t, 4500.0, est.Metrics.AdjustedTraffic)
	assert.Equal(t, []domain.Degradation{domain.DegradedJunctionLookup}, est.Metrics.Degradations)
	assert.Equal(t, time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), est.ComputedAt)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EstimatesComputed.WithLabelValues(string(est.Metrics.ConfidenceLevel))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Degradations.WithLabelValues(string(domain.DegradedJunctionLookup))))
}

func TestService_ValidatesBeforeCollaborators(t *testing.T) {
	vision := &stubVision{}
	metrics := observability.NewMetricsForTesting()
	svc := NewService(domain.NewEngine(nil, discardLogger()), Collaborators{Vision: vision}, metrics, discardLogger())

	req := validRequest()
	req.Business.ProductPrice = -1

	_, err := svc.Estimate(context.Background(), req)

	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, vision.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EstimateErrors.WithLabelValues("validation")))
}

func TestService_ZeroRoadFromVision(t *testing.T) {
	vision := &stubVision{area: domain.AreaDistribution{Residential: 70, OpenSpace: 30}}
	metrics := observability.NewMetricsForTesting()
	svc := NewService(domain.NewEngine(nil, discardLogger()), Collaborators{Vision: vision}, metrics, discardLogger())

	_, err := svc.Estimate(context.Background(), validRequest())

	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EstimateErrors.WithLabelValues("validation")))
}

func TestService_VisionFailureStillEstimates(t *testing.T) {
	svc := NewService(domain.NewEngine(nil, discardLogger()), Collaborators{
		Vision: &stubVision{err: errors.New("quota exceeded")},
	}, observability.NewMetricsForTesting(), discardLogger())

	est, err := svc.Estimate(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.SourceFallback, est.AreaSource)
	assert.Equal(t, domain.ConfidenceLow, est.Metrics.ConfidenceLevel)
	assert.Contains(t, est.Metrics.Degradations, domain.DegradedVisionFallback)
	assert.Greater(t, est.Metrics.DailyRevenue, 0.0)
}

func TestService_NormalizeArea(t *testing.T) {
	svc := NewService(domain.NewEngine(nil, discardLogger(), domain.WithStrictNormalization(true)), Collaborators{}, observability.NewMetricsForTesting(), discardLogger())
	got := svc.NormalizeArea(domain.AreaDistribution{Residential: 50, Road: 25, OpenSpace: 30})
	assert.InDelta(t, 100, got.Sum(), 1e-9)
}
