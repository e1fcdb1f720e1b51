package domain

// Model constants for the population and traffic estimate.
const (
	GlobalAverageDensity = 4000.0 // people per km²
	AverageRoadWidth     = 30.0   // meters
	ScaleErrorAdjustment = 1.305  // corrects the screenshot's nominal meters-per-pixel

	secondsPerHour = 3600.0
	sqmPerSqkm     = 1_000_000.0
)

// AreaGeometry is the physical footprint derived from the screenshot.
type AreaGeometry struct {
	AdjustedScale float64 `json:"adjustedScale"`
	WidthM        float64 `json:"widthM"`
	HeightM       float64 `json:"heightM"`
	AreaSqM       float64 `json:"areaSqM"`
	AreaSqKm      float64 `json:"areaSqKm"`
}

// MeasureArea converts the screenshot's pixel dimensions to meters.
func MeasureArea(s ScreenshotMetadata) AreaGeometry {
	scale := s.Scale * ScaleErrorAdjustment
	width := float64(s.Width) * scale
	height := float64(s.Height) * scale
	area := width * height
	return AreaGeometry{
		AdjustedScale: scale,
		WidthM:        width,
		HeightM:       height,
		AreaSqM:       area,
		AreaSqKm:      area / sqmPerSqkm,
	}
}

// TrafficEstimate holds the population figures and raw passing traffic for one
// footprint, before weather and junction attenuation.
type TrafficEstimate struct {
	Geometry AreaGeometry

	GrossPopulation          float64 // CGLP: global density applied to the whole footprint
	ResidentialPopulation    float64 // residential share of CGLP
	RoadAreaSqM              float64
	PopulationDensityOnRoad  float64 // PDR: residents per m² of road
	PopulationCapitalization float64 // residents reachable from the frontage
	RawTraffic               float64 // people passing per day
}

// EstimateTraffic derives population and raw daily traffic from the land-use
// split, frontage, and opening hours. A footprint whose area underflows to 0,
// or one with no road area, is a validation error.
func EstimateTraffic(area AreaDistribution, business BusinessParameters, screenshot ScreenshotMetadata) (TrafficEstimate, error) {
	geo := MeasureArea(screenshot)
	if !(geo.AreaSqM > 0) {
		return TrafficEstimate{}, NewValidationError("screenshot.scale", "must yield a footprint area greater than 0")
	}

	gross := GlobalAverageDensity * geo.AreaSqKm
	residential := gross * (area.Residential / 100)

	roadArea := geo.AreaSqM * (area.Road / 100)
	if !(roadArea > 0) {
		return TrafficEstimate{}, NewValidationError("area.road", "must yield a road area greater than 0 to compute population density on road")
	}

	pdr := residential / roadArea
	apc := business.BuildingWidth * AverageRoadWidth * pdr
	raw := apc * business.OperatingHours * secondsPerHour

	return TrafficEstimate{
		Geometry:                 geo,
		GrossPopulation:          gross,
		ResidentialPopulation:    residential,
		RoadAreaSqM:              roadArea,
		PopulationDensityOnRoad:  pdr,
		PopulationCapitalization: apc,
		RawTraffic:               raw,
	}, nil
}
