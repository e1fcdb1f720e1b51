package domain

import (
	"context"
	"fmt"
	"log/slog"
)

// Values for the LocationEstimate *Source fields.
const (
	SourceRequest     = "request"
	SourceVision      = "vision"
	SourceFallback    = "fallback"
	SourceLocated     = "located"
	SourceDefault     = "default"
	SourceFailed      = "failed"
	SourceReverse     = "reverse"
	SourceCoordinates = "coordinates"
)

// Assessment accumulates collaborator output for one request ahead of
// ComputeMetrics. Each Enrich step degrades gracefully: a failing collaborator
// is logged, recorded as a Degradation, and replaced by a fallback value.
type Assessment struct {
	Request        EstimateRequest
	Area           AreaDistribution
	AreaSource     string
	VisionProvider string
	PlaceName      string
	GeoSource      string
	Junctions      JunctionSequence
	JunctionSource string
	Degradations   []Degradation
}

// NewAssessment seeds an assessment from the values the caller supplied.
func NewAssessment(req EstimateRequest) Assessment {
	a := Assessment{Request: req}
	if req.Area != nil {
		a.Area = *req.Area
		a.AreaSource = SourceRequest
	}
	if len(req.Junctions) > 0 {
		a.Junctions = req.Junctions
		a.JunctionSource = SourceRequest
	}
	return a
}

func (a *Assessment) degrade(d Degradation) {
	for _, existing := range a.Degradations {
		if existing == d {
			return
		}
	}
	a.Degradations = append(a.Degradations, d)
}

// EnrichWithPlaceName resolves the screenshot center to a place name. Without
// a geocoder, or when the lookup fails, the name is the formatted coordinates.
func EnrichWithPlaceName(ctx context.Context, a Assessment, geocoder ReverseGeocoder, logger *slog.Logger) Assessment {
	center := a.Request.Screenshot.Center
	if center == nil {
		return a
	}
	coords := fmt.Sprintf("%.6f, %.6f", center.Lat, center.Lon)

	if geocoder == nil {
		a.PlaceName = coords
		a.GeoSource = SourceCoordinates
		return a
	}

	place, err := geocoder.ReverseGeocode(ctx, center.Lat, center.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"request_id", a.Request.ID,
			"lat", center.Lat,
			"lon", center.Lon,
			"error", err,
		)
		a.PlaceName = coords
		a.GeoSource = SourceFailed
		a.degrade(DegradedGeocodeFailed)
		return a
	}
	if place.Name == "" {
		a.PlaceName = coords
		a.GeoSource = SourceCoordinates
		return a
	}

	a.PlaceName = place.Name
	a.GeoSource = SourceReverse
	return a
}

// ResolveArea fills the land-use distribution when the request did not supply
// one, asking the vision analyzer if there is an image to analyze.
func ResolveArea(ctx context.Context, a Assessment, analyzer VisionAnalyzer, logger *slog.Logger) Assessment {
	if a.AreaSource == SourceRequest {
		return a
	}

	if analyzer == nil || len(a.Request.Image) == 0 {
		a.Area = FallbackAreaDistribution("no area distribution or image supplied")
		a.AreaSource = SourceFallback
		a.degrade(DegradedAreaFallback)
		return a
	}

	a.VisionProvider = analyzer.Name()
	area, err := analyzer.AnalyzeArea(ctx, VisionRequest{
		Image:      a.Request.Image,
		MIMEType:   a.Request.ImageMIMEType,
		Screenshot: a.Request.Screenshot,
		PlaceName:  a.PlaceName,
	})
	if err != nil {
		logger.Warn("vision analysis failed, using fallback distribution",
			"request_id", a.Request.ID,
			"provider", a.VisionProvider,
			"error", err,
		)
		a.Area = FallbackAreaDistribution("vision analysis failed - " + err.Error())
		a.AreaSource = SourceFallback
		a.degrade(DegradedVisionFallback)
		return a
	}

	a.Area = area
	a.AreaSource = SourceVision
	return a
}

// EnrichWithCompetitors sets the competitor-density label. A label on the
// request wins, then one from the area, then a nearby-places count.
func EnrichWithCompetitors(ctx context.Context, a Assessment, finder CompetitorFinder, logger *slog.Logger) Assessment {
	if a.Request.CompetitorDensity != "" {
		a.Area.CompetitorDensity = a.Request.CompetitorDensity
		return a
	}
	center := a.Request.Screenshot.Center
	if a.Area.CompetitorDensity != "" || finder == nil || center == nil {
		return a
	}

	n, err := finder.CountNearby(ctx, center.Lat, center.Lon)
	if err != nil {
		logger.Warn("competitor lookup failed",
			"request_id", a.Request.ID,
			"lat", center.Lat,
			"lon", center.Lon,
			"error", err,
		)
		a.degrade(DegradedCompetitorLookup)
		return a
	}
	a.Area.CompetitorDensity = CompetitorDensityFromCount(n)
	return a
}

// EnrichWithJunctions sets the junction sequence when the request did not
// supply one, using the locator when coordinates are known and defaults
// otherwise.
func EnrichWithJunctions(ctx context.Context, a Assessment, locator JunctionLocator, defaults JunctionSequence, logger *slog.Logger) Assessment {
	if a.JunctionSource == SourceRequest {
		return a
	}

	center := a.Request.Screenshot.Center
	if locator == nil || center == nil {
		a.Junctions = defaults
		a.JunctionSource = SourceDefault
		return a
	}

	seq, err := locator.LocateJunctions(ctx, center.Lat, center.Lon)
	if err != nil {
		logger.Warn("junction lookup failed, using defaults",
			"request_id", a.Request.ID,
			"lat", center.Lat,
			"lon", center.Lon,
			"error", err,
		)
		a.Junctions = defaults
		a.JunctionSource = SourceFailed
		a.degrade(DegradedJunctionLookup)
		return a
	}

	a.Junctions = seq
	a.JunctionSource = SourceLocated
	return a
}

// Input assembles the engine input.
func (a Assessment) Input() EstimateInput {
	return EstimateInput{
		Area:       a.Area,
		Business:   a.Request.Business,
		Screenshot: a.Request.Screenshot,
		Junctions:  a.Junctions,
	}
}

// Estimate wraps the engine result with the assessment's provenance. The
// assessment's degradations are merged into the metrics.
func (a Assessment) Estimate(m MetricsResult) LocationEstimate {
	for _, d := range a.Degradations {
		m.Degrade(d)
	}
	return LocationEstimate{
		RequestID:      a.Request.ID,
		PlaceName:      a.PlaceName,
		GeoSource:      a.GeoSource,
		AreaSource:     a.AreaSource,
		JunctionSource: a.JunctionSource,
		VisionProvider: a.VisionProvider,
		Metrics:        m,
		ComputedAt:     clock.Now().UTC(),
	}
}
