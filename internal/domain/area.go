package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// CompetitorDensity is the qualitative competitor-density label attached to an
// area. Unknown labels are tolerated and scored with a neutral factor.
type CompetitorDensity string

const (
	CompetitorLow    CompetitorDensity = "low"
	CompetitorMedium CompetitorDensity = "medium"
	CompetitorHigh   CompetitorDensity = "high"
)

// AreaDistribution is the residential/road/open-space land-use breakdown of the
// surveyed footprint, in percent.
type AreaDistribution struct {
	Residential float64 `json:"residential" yaml:"residential"`
	Road        float64 `json:"road" yaml:"road"`
	OpenSpace   float64 `json:"openSpace" yaml:"openSpace"`

	// EstimatedPopulationDensity is in people/km². Nil means "not estimated".
	EstimatedPopulationDensity *float64          `json:"estimatedPopulationDensity,omitempty" yaml:"estimatedPopulationDensity,omitempty"`
	CompetitorDensity          CompetitorDensity `json:"competitorDensity,omitempty" yaml:"competitorDensity,omitempty"`
	Reasoning                  string            `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
}

// Sum returns residential + road + open space.
func (a AreaDistribution) Sum() float64 {
	return a.Residential + a.Road + a.OpenSpace
}

// IsFallback reports whether the reasoning marks this distribution as a default
// rather than an observation.
func (a AreaDistribution) IsFallback() bool {
	return isFallbackReasoning(a.Reasoning)
}

// HasSignal reports whether at least one percentage is positive and finite.
func (a AreaDistribution) HasSignal() bool {
	return clampPercent(a.Residential)+clampPercent(a.Road)+clampPercent(a.OpenSpace) > 0
}

func isFallbackReasoning(reasoning string) bool {
	return strings.Contains(strings.ToLower(reasoning), "fallback")
}

const (
	fallbackResidential = 45.0
	fallbackRoad        = 25.0
	fallbackOpenSpace   = 30.0

	// areaSumTolerance is how far from 100 a sum may drift before it is rescaled.
	areaSumTolerance = 10.0

	fallbackPrefix = "Fallback: "
)

// FallbackAreaDistribution returns the default 45/25/30 split used when no
// usable land-use signal exists.
func FallbackAreaDistribution(reason string) AreaDistribution {
	return AreaDistribution{
		Residential: fallbackResidential,
		Road:        fallbackRoad,
		OpenSpace:   fallbackOpenSpace,
		Reasoning:   fallbackPrefix + reason,
	}
}

// AreaNormalizer repairs a raw percentage triple. In tolerant mode (the zero
// value) sums within ±10 of 100 pass through unchanged; in strict mode every
// non-zero sum is rescaled to exactly 100.
type AreaNormalizer struct {
	Strict bool
}

// NormalizeAreaDistribution applies the tolerant normalizer.
func NormalizeAreaDistribution(raw AreaDistribution) AreaDistribution {
	return AreaNormalizer{}.Normalize(raw)
}

// Normalize returns a copy of raw with non-negative percentages that sum to
// 100 (or, in tolerant mode, to within the tolerance band of 100). Auxiliary
// fields are preserved.
func (n AreaNormalizer) Normalize(raw AreaDistribution) AreaDistribution {
	out := raw
	out.Residential = clampPercent(raw.Residential)
	out.Road = clampPercent(raw.Road)
	out.OpenSpace = clampPercent(raw.OpenSpace)

	sum := out.Sum()
	if sum == 0 {
		fb := FallbackAreaDistribution("no usable land-use signal")
		out.Residential, out.Road, out.OpenSpace = fb.Residential, fb.Road, fb.OpenSpace
		if out.Reasoning == "" {
			out.Reasoning = fb.Reasoning
		} else if !out.IsFallback() {
			out.Reasoning = fallbackPrefix + out.Reasoning
		}
		return out
	}

	if !n.Strict && math.Abs(sum-100) <= areaSumTolerance {
		return out
	}

	factor := 100 / sum
	out.Residential *= factor
	out.Road *= factor
	out.OpenSpace *= factor
	return out
}

// clampPercent maps negative, NaN, and infinite values to 0.
func clampPercent(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

var (
	residentialPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)residential:\s*(\d+(?:\.\d+)?)%`),
		regexp.MustCompile(`(?i)residential.*?(\d+(?:\.\d+)?)%`),
	}
	roadPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)road:\s*(\d+(?:\.\d+)?)%`),
		regexp.MustCompile(`(?i)road.*?(\d+(?:\.\d+)?)%`),
	}
	openSpacePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)open[_\s]space:\s*(\d+(?:\.\d+)?)%`),
		regexp.MustCompile(`(?i)open[_\s]space.*?(\d+(?:\.\d+)?)%`),
		regexp.MustCompile(`(?i)green.*?(\d+(?:\.\d+)?)%`),
	}
	anyPercentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
)

// ParseAreaDistribution extracts a land-use split from free-form model output
// such as "Residential: 50%, Road: 20%, Open space: 30%". Labelled values win;
// otherwise the first three percentages in the text are taken in order. The
// result is normalized, so text with no percentages yields the fallback split.
func ParseAreaDistribution(text string) AreaDistribution {
	raw := AreaDistribution{
		Residential: firstPercent(text, residentialPatterns),
		Road:        firstPercent(text, roadPatterns),
		OpenSpace:   firstPercent(text, openSpacePatterns),
		Reasoning:   strings.TrimSpace(text),
	}

	if raw.Sum() == 0 {
		all := anyPercentPattern.FindAllStringSubmatch(text, -1)
		if len(all) >= 3 {
			raw.Residential = parsePercent(all[0][1])
			raw.Road = parsePercent(all[1][1])
			raw.OpenSpace = parsePercent(all[2][1])
		}
	}

	return NormalizeAreaDistribution(raw)
}

func firstPercent(text string, patterns []*regexp.Regexp) float64 {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return parsePercent(m[1])
		}
	}
	return 0
}

func parsePercent(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
