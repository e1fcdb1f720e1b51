package domain

import "context"

// Place is a human-readable name for a coordinate.
type Place struct {
	Name        string // short name built from road, locality, city, state
	DisplayName string // provider's full formatted address
}

// ReverseGeocoder resolves coordinates to a place name.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error)
}

// VisionRequest is the image and context handed to a vision analyzer.
type VisionRequest struct {
	Image      []byte
	MIMEType   string
	Screenshot ScreenshotMetadata
	PlaceName  string
}

// VisionAnalyzer extracts a land-use distribution from an aerial or map image.
type VisionAnalyzer interface {
	// Name identifies the provider in logs, metrics, and results.
	Name() string
	AnalyzeArea(ctx context.Context, req VisionRequest) (AreaDistribution, error)
}

// CompetitorFinder counts comparable businesses near a coordinate.
type CompetitorFinder interface {
	CountNearby(ctx context.Context, lat, lon float64) (int, error)
}

// JunctionLocator derives the junction sequence leading to a coordinate.
type JunctionLocator interface {
	LocateJunctions(ctx context.Context, lat, lon float64) (JunctionSequence, error)
}

// Competitor-count thresholds for the density label.
const (
	mediumCompetitorCount = 3
	highCompetitorCount   = 8
)

// CompetitorDensityFromCount labels a nearby-competitor count.
func CompetitorDensityFromCount(n int) CompetitorDensity {
	switch {
	case n >= highCompetitorCount:
		return CompetitorHigh
	case n >= mediumCompetitorCount:
		return CompetitorMedium
	default:
		return CompetitorLow
	}
}
