package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storefront-estimator/internal/adapter/nominatim"
	"github.com/couchcryptid/storefront-estimator/internal/adapter/openmeteo"
	"github.com/couchcryptid/storefront-estimator/internal/adapter/overpass"
	"github.com/couchcryptid/storefront-estimator/internal/adapter/places"
	"github.com/couchcryptid/storefront-estimator/internal/adapter/vision"
	"github.com/couchcryptid/storefront-estimator/internal/config"
	"github.com/couchcryptid/storefront-estimator/internal/domain"
	"github.com/couchcryptid/storefront-estimator/internal/estimator"
	"github.com/couchcryptid/storefront-estimator/internal/observability"
)

// buildWeather returns the weather stage: live Open-Meteo codes when enabled,
// sampled conditions otherwise.
func buildWeather(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *domain.WeatherAttenuator {
	seed := cfg.WeatherSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	var provider domain.WeatherProvider
	if cfg.WeatherEnabled {
		client := openmeteo.NewClient(cfg.WeatherBaseURL, cfg.WeatherTimeout, metrics, logger)
		provider = openmeteo.NewCachedProvider(client, cfg.WeatherCacheSize, cfg.WeatherCacheTTL, clockwork.NewRealClock(), metrics)
	}
	setEnabled(metrics, observability.CollaboratorWeather, provider != nil, logger)

	return domain.NewWeatherAttenuator(provider, domain.NewWeatherSampler(seed), cfg.WeatherTimeout, logger)
}

// buildCollaborators creates the optional lookups that config enables.
func buildCollaborators(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (estimator.Collaborators, error) {
	collab := estimator.Collaborators{
		DefaultJunctions: domain.ParseJunctionSequence(cfg.DefaultJunctions),
	}

	if cfg.GeocoderEnabled {
		client := nominatim.NewClient(cfg.GeocoderTimeout, metrics, logger,
			nominatim.WithBaseURL(cfg.NominatimBaseURL),
			nominatim.WithUserAgent(cfg.NominatimUserAgent),
		)
		collab.Geocoder = nominatim.NewCachedGeocoder(client, cfg.GeocoderCacheSize, cfg.GeocoderCacheTTL, clockwork.NewRealClock(), metrics)
	}
	setEnabled(metrics, observability.CollaboratorGeocoder, collab.Geocoder != nil, logger)

	switch cfg.VisionProvider {
	case config.VisionGemini:
		g, err := vision.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.VisionTimeout, metrics, logger)
		if err != nil {
			return estimator.Collaborators{}, fmt.Errorf("gemini: %w", err)
		}
		collab.Vision = g
	case config.VisionClaude:
		c, err := vision.NewClaude(cfg.AnthropicAPIKey, cfg.ClaudeModel, cfg.VisionTimeout, metrics, logger)
		if err != nil {
			return estimator.Collaborators{}, fmt.Errorf("claude: %w", err)
		}
		collab.Vision = c
	}
	setEnabled(metrics, observability.CollaboratorVision, collab.Vision != nil, logger)

	if cfg.PlacesEnabled() {
		p, err := places.NewClient(cfg.PlacesAPIKey, cfg.PlacesRadius, cfg.PlacesKeyword, cfg.PlacesTimeout,
			cfg.PlacesCacheSize, cfg.PlacesCacheTTL, metrics, logger)
		if err != nil {
			return estimator.Collaborators{}, fmt.Errorf("places: %w", err)
		}
		collab.Competitors = p
	}
	setEnabled(metrics, observability.CollaboratorCompetitors, collab.Competitors != nil, logger)

	if cfg.OverpassEnabled {
		collab.Junctions = overpass.NewLocator(cfg.OverpassURL, cfg.OverpassTimeout, metrics, logger)
	}
	setEnabled(metrics, observability.CollaboratorJunctions, collab.Junctions != nil, logger)

	return collab, nil
}

func setEnabled(metrics *observability.Metrics, collaborator string, enabled bool, logger *slog.Logger) {
	v := 0.0
	if enabled {
		v = 1
	}
	metrics.CollaboratorEnabled.WithLabelValues(collaborator).Set(v)
	logger.Info("collaborator configured", "collaborator", collaborator, "enabled", enabled)
}
