package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ConfidenceLevel is how much observed (rather than default) data fed an estimate.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "Low"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceHigh   ConfidenceLevel = "High"
)

// ScoringConfig holds the heuristic constants of the location score. The
// defaults are business rules, not calibrated values; deployments may
// override any of them.
type ScoringConfig struct {
	ProfitLogMultiplier float64 `yaml:"profitLogMultiplier" validate:"gt=0"`
	RevenueScale        float64 `yaml:"revenueScale" validate:"gt=0"`
	ProfitScoreCap      float64 `yaml:"profitScoreCap" validate:"gt=0"`

	DensityScale float64 `yaml:"densityScale" validate:"gt=0"`
	DensityCap   float64 `yaml:"densityCap" validate:"gt=0"`

	CompetitorFactors       map[CompetitorDensity]float64 `yaml:"competitorFactors" validate:"dive,gte=0"`
	UnknownCompetitorFactor float64                       `yaml:"unknownCompetitorFactor" validate:"gte=0"`
	CompetitorScale         float64                       `yaml:"competitorScale" validate:"gt=0"`

	ProfitWeight     float64 `yaml:"profitWeight" validate:"gte=0"`
	DensityWeight    float64 `yaml:"densityWeight" validate:"gte=0"`
	CompetitorWeight float64 `yaml:"competitorWeight" validate:"gte=0"`

	NicheBuyerThreshold float64 `yaml:"nicheBuyerThreshold" validate:"gte=0"`
	NichePenalty        float64 `yaml:"nichePenalty" validate:"gt=0,lte=1"`

	MinScore    float64 `yaml:"minScore" validate:"gte=0"`
	MaxScore    float64 `yaml:"maxScore" validate:"gtfield=MinScore"`
	RiskDivisor float64 `yaml:"riskDivisor" validate:"gtefield=MaxScore"`

	HighConfidenceDensity float64 `yaml:"highConfidenceDensity" validate:"gte=0"`
}

// DefaultScoringConfig returns the stock scoring rules.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		ProfitLogMultiplier: 3.5,
		RevenueScale:        1_000_000,
		ProfitScoreCap:      9.5,
		DensityScale:        2000,
		DensityCap:          10,
		CompetitorFactors: map[CompetitorDensity]float64{
			CompetitorLow:    1.0,
			CompetitorMedium: 0.6,
			CompetitorHigh:   0.3,
		},
		UnknownCompetitorFactor: 0.5,
		CompetitorScale:         10,
		ProfitWeight:            0.5,
		DensityWeight:           0.3,
		CompetitorWeight:        0.2,
		NicheBuyerThreshold:     20,
		NichePenalty:            0.85,
		MinScore:                1.0,
		MaxScore:                9.5,
		RiskDivisor:             12,
		HighConfidenceDensity:   100,
	}
}

// Validate checks that the constants keep scores and risk bounded.
func (c ScoringConfig) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		return fmt.Errorf("invalid scoring config: %s %s", ves[0].Field(), describeTag(ves[0]))
	}
	return fmt.Errorf("invalid scoring config: %w", err)
}

// ScoreInput is what the composer needs from the upstream stages.
type ScoreInput struct {
	MonthlyRevenue    float64
	PopulationDensity float64 // people/km²
	Competitor        CompetitorDensity
	Buyers            float64
	RoadPercent       float64
	Reasoning         string
}

// Score is the composed desirability score with its components.
type Score struct {
	ProfitScore      float64
	DensityFactor    float64
	CompetitorFactor float64

	// Unpenalized is the weighted sum before the niche penalty and clamping.
	Unpenalized    float64
	NichePenalized bool
	Final          float64
	Risk           float64
	Confidence     ConfidenceLevel
}

// ComposeScore scores with the default configuration.
func ComposeScore(in ScoreInput) Score {
	return DefaultScoringConfig().Compose(in)
}

// Compose combines revenue, density, and competition into a bounded score.
// Risk is 1 - score/RiskDivisor: a monotonic proxy, not a calibrated measure.
func (c ScoringConfig) Compose(in ScoreInput) Score {
	var s Score

	if in.MonthlyRevenue > 0 {
		s.ProfitScore = math.Min(c.ProfitLogMultiplier*math.Log10(in.MonthlyRevenue/c.RevenueScale+1), c.ProfitScoreCap)
	}
	s.DensityFactor = math.Min(math.Max(in.PopulationDensity, 0)/c.DensityScale, c.DensityCap)
	s.CompetitorFactor = c.competitorFactor(in.Competitor)

	s.Unpenalized = c.ProfitWeight*s.ProfitScore +
		c.DensityWeight*s.DensityFactor +
		c.CompetitorWeight*(s.CompetitorFactor*c.CompetitorScale)

	score := s.Unpenalized
	if in.Buyers < c.NicheBuyerThreshold {
		score *= c.NichePenalty
		s.NichePenalized = true
	}

	s.Final = math.Min(math.Max(score, c.MinScore), c.MaxScore)
	s.Risk = 1 - s.Final/c.RiskDivisor
	s.Confidence = c.confidence(in)
	return s
}

func (c ScoringConfig) competitorFactor(label CompetitorDensity) float64 {
	if f, ok := c.CompetitorFactors[CompetitorDensity(strings.ToLower(strings.TrimSpace(string(label))))]; ok {
		return f
	}
	return c.UnknownCompetitorFactor
}

func (c ScoringConfig) confidence(in ScoreInput) ConfidenceLevel {
	switch {
	case isFallbackReasoning(in.Reasoning):
		return ConfidenceLow
	case in.PopulationDensity > c.HighConfidenceDensity && in.RoadPercent > 0:
		return ConfidenceHigh
	default:
		return ConfidenceMedium
	}
}
