package domain

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// MetricsResult is the presentation-ready outcome of one estimate. Counts and
// currency amounts are rounded to whole units; ratios keep a few decimals.
type MetricsResult struct {
	DailyRevenue   float64 `json:"dailyRevenue"`
	MonthlyRevenue float64 `json:"monthlyRevenue"`
	YearlyRevenue  float64 `json:"yearlyRevenue"`
	Visitors       float64 `json:"visitors"`
	Buyers         float64 `json:"tppd"`

	GrossPopulation          float64 `json:"cglp"`
	ResidentialPopulation    float64 `json:"pops"`
	RoadAreaSqM              float64 `json:"roadAreaSqM"`
	PopulationDensityOnRoad  float64 `json:"pdr"`
	PopulationCapitalization float64 `json:"apc"`
	PopulationDensity        float64 `json:"populationDensity"`

	RawTraffic          float64          `json:"rawTraffic"`
	AdjustedTraffic     float64          `json:"apt"`
	JunctionProbability float64          `json:"junctionProbability"`
	Junctions           string           `json:"junctions,omitempty"`
	WeatherUsed         WeatherCondition `json:"weatherUsed"`
	WeatherSource       WeatherSource    `json:"weatherSource"`

	LocationScore   float64         `json:"locationScore"`
	RiskScore       float64         `json:"riskScore"`
	ConfidenceLevel ConfidenceLevel `json:"confidenceLevel"`
	Assumptions     string          `json:"assumptions"`

	Area         AreaDistribution `json:"areaDistribution"`
	AreaData     AreaGeometry     `json:"areaData"`
	Degradations []Degradation    `json:"degradations,omitempty"`
}

// Degrade records a recovered collaborator failure once.
func (r *MetricsResult) Degrade(d Degradation) {
	for _, existing := range r.Degradations {
		if existing == d {
			return
		}
	}
	r.Degradations = append(r.Degradations, d)
}

// WeatherSourceDisabled marks results computed without any weather stage.
const WeatherSourceDisabled WeatherSource = "disabled"

// Engine runs the estimation pipeline. It holds configuration only, so one
// Engine may serve concurrent calls.
type Engine struct {
	normalizer AreaNormalizer
	weather    *WeatherAttenuator
	scoring    ScoringConfig
	logger     *slog.Logger
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithScoringConfig replaces the default scoring constants.
func WithScoringConfig(c ScoringConfig) EngineOption {
	return func(e *Engine) { e.scoring = c }
}

// WithStrictNormalization makes the normalizer rescale every non-zero sum to 100.
func WithStrictNormalization(strict bool) EngineOption {
	return func(e *Engine) { e.normalizer.Strict = strict }
}

// NewEngine creates an Engine. A nil weather attenuator leaves traffic
// unchanged by weather.
func NewEngine(weather *WeatherAttenuator, logger *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		weather: weather,
		scoring: DefaultScoringConfig(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NormalizeArea applies the engine's normalization mode.
func (e *Engine) NormalizeArea(raw AreaDistribution) AreaDistribution {
	return e.normalizer.Normalize(raw)
}

// ComputeMetrics validates the input and runs normalize, estimate, weather,
// junction, revenue, and scoring stages in order. Invalid input yields a
// *ValidationError; a non-finite intermediate value yields a *ComputationError.
func (e *Engine) ComputeMetrics(ctx context.Context, in EstimateInput) (MetricsResult, error) {
	var result MetricsResult

	if err := ValidateInput(in); err != nil {
		return MetricsResult{}, err
	}

	area := e.normalizer.Normalize(in.Area)
	if !in.Area.HasSignal() {
		result.Degrade(DegradedAreaFallback)
	}

	density := GlobalAverageDensity
	if d := in.Area.EstimatedPopulationDensity; d != nil && isFinite(*d) && *d >= 0 {
		density = *d
	} else {
		result.Degrade(DegradedDensityDefault)
	}

	est, err := EstimateTraffic(area, in.Business, in.Screenshot)
	if err != nil {
		return MetricsResult{}, err
	}
	if err := checkFinite("population",
		named{"gross_population", &est.GrossPopulation},
		named{"residential_population", &est.ResidentialPopulation},
		named{"road_area", &est.RoadAreaSqM},
		named{"population_density_on_road", &est.PopulationDensityOnRoad},
		named{"population_capitalization", &est.PopulationCapitalization},
		named{"raw_traffic", &est.RawTraffic},
	); err != nil {
		return MetricsResult{}, err
	}

	adjusted := est.RawTraffic
	reading := WeatherReading{Source: WeatherSourceDisabled}
	if e.weather != nil {
		adjusted, reading = e.weather.Attenuate(ctx, adjusted, in.Screenshot.Center)
		if reading.Source == WeatherSourceSampled {
			result.Degrade(DegradedWeatherSampled)
		}
	}
	junctionP := in.Junctions.CombinedProbability()
	adjusted = AttenuateJunctions(adjusted, in.Junctions)
	if err := checkFinite("attenuation", named{"adjusted_traffic", &adjusted}); err != nil {
		return MetricsResult{}, err
	}

	rev := ProjectRevenue(adjusted, in.Business.ProductPrice)
	if err := checkFinite("revenue",
		named{"visitors", &rev.Visitors},
		named{"buyers", &rev.Buyers},
		named{"daily_revenue", &rev.Daily},
		named{"monthly_revenue", &rev.Monthly},
		named{"yearly_revenue", &rev.Yearly},
	); err != nil {
		return MetricsResult{}, err
	}

	score := e.scoring.Compose(ScoreInput{
		MonthlyRevenue:    rev.Monthly,
		PopulationDensity: density,
		Competitor:        area.CompetitorDensity,
		Buyers:            rev.Buyers,
		RoadPercent:       area.Road,
		Reasoning:         area.Reasoning,
	})
	if err := checkFinite("scoring",
		named{"location_score", &score.Final},
		named{"risk", &score.Risk},
	); err != nil {
		return MetricsResult{}, err
	}

	e.logger.Debug("estimate computed",
		"raw_traffic", est.RawTraffic,
		"adjusted_traffic", adjusted,
		"weather", reading.Condition,
		"weather_source", reading.Source,
		"junction_probability", junctionP,
		"monthly_revenue", rev.Monthly,
		"score", score.Final,
	)

	result.DailyRevenue = math.Round(rev.Daily)
	result.MonthlyRevenue = math.Round(rev.Monthly)
	result.YearlyRevenue = math.Round(rev.Yearly)
	result.Visitors = math.Round(rev.Visitors)
	result.Buyers = math.Round(rev.Buyers)
	result.GrossPopulation = math.Round(est.GrossPopulation)
	result.ResidentialPopulation = math.Round(est.ResidentialPopulation)
	result.RoadAreaSqM = roundTo(est.RoadAreaSqM, 2)
	result.PopulationDensityOnRoad = roundTo(est.PopulationDensityOnRoad, 4)
	result.PopulationCapitalization = roundTo(est.PopulationCapitalization, 4)
	result.PopulationDensity = density
	result.RawTraffic = math.Round(est.RawTraffic)
	result.AdjustedTraffic = math.Round(adjusted)
	result.JunctionProbability = roundTo(junctionP, 6)
	result.Junctions = in.Junctions.String()
	result.WeatherUsed = reading.Condition
	result.WeatherSource = reading.Source
	result.LocationScore = roundTo(score.Final, 2)
	result.RiskScore = roundTo(score.Risk, 3)
	result.ConfidenceLevel = score.Confidence
	result.Assumptions = Assumptions(in.Business.ProductPrice)
	result.Area = area
	result.AreaData = est.Geometry
	return result, nil
}

// Assumptions renders the human-readable modeling assumptions for a price.
func Assumptions(productPrice float64) string {
	return fmt.Sprintf("Assumes average transaction value of %s with a standard visitor conversion rate of %s%% from passing traffic.",
		formatThousands(productPrice), strconv.FormatFloat(VisitorRate, 'f', -1, 64))
}

type named struct {
	name  string
	value *float64
}

// checkFinite rejects NaN and ±Inf and clamps negative values to 0 in place.
func checkFinite(stage string, values ...named) error {
	for _, v := range values {
		if !isFinite(*v.value) {
			return &ComputationError{Stage: stage, Quantity: v.name, Value: *v.value}
		}
		if *v.value < 0 {
			*v.value = 0
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// formatThousands renders v rounded to a whole number with comma separators.
func formatThousands(v float64) string {
	s := strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
