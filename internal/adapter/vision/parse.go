// Package vision implements domain.VisionAnalyzer on top of multimodal LLM
// APIs (Gemini and Claude). Both providers share one prompt and one response
// parser.
package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/couchcryptid/storefront-estimator/internal/domain"
)

// ErrNoDistribution is returned when a model reply contains neither a JSON
// object nor recognizable percentages.
var ErrNoDistribution = errors.New("no area distribution in model reply")

var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

// reply is the JSON object the prompt asks the model to return.
type reply struct {
	Residential       *percent `json:"residential_percentage"`
	Road              *percent `json:"road_percentage"`
	OpenSpace         *percent `json:"open_space_percentage"`
	PopulationDensity *percent `json:"estimated_population_density"`
	Competitor        string   `json:"competitor_density_estimate"`
	Reasoning         string   `json:"reasoning"`
}

// percent accepts 42, 42.5, "42", or "42%".
type percent float64

func (p *percent) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("parse percentage %s: %w", b, err)
	}
	*p = percent(v)
	return nil
}

func (p *percent) value() float64 {
	if p == nil {
		return 0
	}
	return float64(*p)
}

// ParseReply extracts an area distribution from a model reply. Markdown code
// fences are ignored. Replies without a JSON object fall back to free-text
// percentage extraction.
func ParseReply(text string) (domain.AreaDistribution, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	raw := jsonObject.FindString(cleaned)
	if raw == "" {
		area := domain.ParseAreaDistribution(cleaned)
		if area.IsFallback() {
			return domain.AreaDistribution{}, ErrNoDistribution
		}
		return area, nil
	}

	var r reply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return domain.AreaDistribution{}, fmt.Errorf("decode model reply: %w", err)
	}

	area := domain.AreaDistribution{
		Residential:       r.Residential.value(),
		Road:              r.Road.value(),
		OpenSpace:         r.OpenSpace.value(),
		CompetitorDensity: domain.CompetitorDensity(strings.ToLower(strings.TrimSpace(r.Competitor))),
		Reasoning:         strings.TrimSpace(r.Reasoning),
	}
	if r.PopulationDensity != nil {
		d := r.PopulationDensity.value()
		area.EstimatedPopulationDensity = &d
	}
	if !area.HasSignal() {
		return domain.AreaDistribution{}, ErrNoDistribution
	}
	return area, nil
}

// Prompt builds the instruction sent with the image.
func Prompt(req domain.VisionRequest) string {
	place := req.PlaceName
	if place == "" {
		place = "an unnamed location"
	}

	var footprint string
	s := req.Screenshot
	if s.Width > 0 && s.Height > 0 && s.Scale > 0 {
		footprint = fmt.Sprintf("The image covers roughly %.0f m by %.0f m.\n",
			float64(s.Width)*s.Scale*domain.ScaleErrorAdjustment,
			float64(s.Height)*s.Scale*domain.ScaleErrorAdjustment)
	}

	return fmt.Sprintf(`You are an urban planner and retail site analyst.

Analyze this satellite or map image of %s.
%sEstimate how the visible land is used and how crowded the area is with
competing retail businesses.

Reply with JSON only:
{
  "residential_percentage": number (0-100, from roof density),
  "road_percentage": number (0-100),
  "open_space_percentage": number (0-100),
  "estimated_population_density": number (people per km2),
  "competitor_density_estimate": "low|medium|high",
  "reasoning": "one or two sentences"
}`, place, footprint)
}

// mimeType defaults an empty image type to PNG.
func mimeType(req domain.VisionRequest) string {
	if req.MIMEType == "" {
		return "image/png"
	}
	return req.MIMEType
}
