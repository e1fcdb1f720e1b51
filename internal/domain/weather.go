package domain

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// WeatherCondition is one of the five weather buckets the model distinguishes.
type WeatherCondition string

const (
	WeatherClear     WeatherCondition = "clear"
	WeatherCloudy    WeatherCondition = "cloudy"
	WeatherLightRain WeatherCondition = "light_rain"
	WeatherHeavyRain WeatherCondition = "heavy_rain"
	WeatherStorm     WeatherCondition = "storm"
)

// Coefficient is the share of normal foot traffic expected under the condition.
// Unknown conditions are treated as clear.
func (w WeatherCondition) Coefficient() float64 {
	switch w {
	case WeatherCloudy:
		return 0.9
	case WeatherLightRain:
		return 0.85
	case WeatherHeavyRain:
		return 0.6
	case WeatherStorm:
		return 0.4
	default:
		return 1.0
	}
}

// ConditionFromWMOCode buckets a WMO weather interpretation code.
func ConditionFromWMOCode(code int) WeatherCondition {
	switch {
	case code <= 1:
		return WeatherClear
	case code <= 3:
		return WeatherCloudy
	case code <= 65:
		return WeatherLightRain
	case code <= 82:
		return WeatherHeavyRain
	default:
		return WeatherStorm
	}
}

// WeatherSource records whether a reading came from a live lookup or the
// fallback distribution.
type WeatherSource string

const (
	WeatherSourceLive    WeatherSource = "live"
	WeatherSourceSampled WeatherSource = "sampled"
)

// WeatherReading is the condition applied to one estimate.
type WeatherReading struct {
	Condition WeatherCondition `json:"condition"`
	Source    WeatherSource    `json:"source"`
}

// WeatherProvider returns the current WMO weather code at a coordinate.
type WeatherProvider interface {
	CurrentCode(ctx context.Context, lat, lon float64) (int, error)
}

// weatherDistribution is the fallback categorical distribution, in sampling order.
var weatherDistribution = []struct {
	condition WeatherCondition
	weight    float64
}{
	{WeatherClear, 0.40},
	{WeatherLightRain, 0.30},
	{WeatherHeavyRain, 0.15},
	{WeatherCloudy, 0.10},
	{WeatherStorm, 0.05},
}

// WeatherSampler draws conditions from the fallback distribution. Two samplers
// built with the same seed produce the same sequence. Safe for concurrent use.
type WeatherSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewWeatherSampler creates a sampler with a fixed seed.
func NewWeatherSampler(seed uint64) *WeatherSampler {
	return &WeatherSampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Sample draws one condition.
func (s *WeatherSampler) Sample() WeatherCondition {
	s.mu.Lock()
	u := s.rng.Float64()
	s.mu.Unlock()
	return conditionAt(u)
}

// conditionAt maps u in [0,1) onto the cumulative distribution.
func conditionAt(u float64) WeatherCondition {
	cumulative := 0.0
	for _, d := range weatherDistribution {
		cumulative += d.weight
		if u < cumulative {
			return d.condition
		}
	}
	return weatherDistribution[len(weatherDistribution)-1].condition
}

// DefaultWeatherTimeout bounds a single live weather lookup.
const DefaultWeatherTimeout = 3 * time.Second

// WeatherAttenuator applies the weather coefficient to traffic. It tries the
// live provider once and falls back to the sampler when coordinates are absent,
// no provider is configured, or the lookup fails or times out.
type WeatherAttenuator struct {
	provider WeatherProvider
	sampler  *WeatherSampler
	timeout  time.Duration
	logger   *slog.Logger
}

// NewWeatherAttenuator creates an attenuator. A nil provider always samples.
func NewWeatherAttenuator(provider WeatherProvider, sampler *WeatherSampler, timeout time.Duration, logger *slog.Logger) *WeatherAttenuator {
	if timeout <= 0 {
		timeout = DefaultWeatherTimeout
	}
	return &WeatherAttenuator{
		provider: provider,
		sampler:  sampler,
		timeout:  timeout,
		logger:   logger,
	}
}

// Read determines the weather condition for the given center.
func (a *WeatherAttenuator) Read(ctx context.Context, center *Coordinates) WeatherReading {
	if center != nil && a.provider != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, a.timeout)
		code, err := a.provider.CurrentCode(lookupCtx, center.Lat, center.Lon)
		cancel()
		if err == nil {
			return WeatherReading{Condition: ConditionFromWMOCode(code), Source: WeatherSourceLive}
		}
		a.logger.Warn("live weather lookup failed, sampling fallback distribution",
			"lat", center.Lat,
			"lon", center.Lon,
			"error", err,
		)
	}
	return WeatherReading{Condition: a.sampler.Sample(), Source: WeatherSourceSampled}
}

// Attenuate reads the weather and scales traffic by its coefficient.
func (a *WeatherAttenuator) Attenuate(ctx context.Context, traffic float64, center *Coordinates) (float64, WeatherReading) {
	reading := a.Read(ctx, center)
	return traffic * reading.Condition.Coefficient(), reading
}
