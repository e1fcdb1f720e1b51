package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Vision provider names accepted by VISION_PROVIDER.
const (
	VisionNone   = "none"
	VisionGemini = "gemini"
	VisionClaude = "claude"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Open-Meteo live weather. Without it the engine samples conditions.
	WeatherEnabled   bool
	WeatherBaseURL   string
	WeatherTimeout   time.Duration
	WeatherCacheSize int
	WeatherCacheTTL  time.Duration
	WeatherSeed      uint64 // 0 seeds from the clock

	// Nominatim reverse geocoding.
	GeocoderEnabled    bool
	NominatimBaseURL   string
	NominatimUserAgent string
	GeocoderTimeout    time.Duration
	GeocoderCacheSize  int
	GeocoderCacheTTL   time.Duration

	// Screenshot analysis.
	VisionProvider  string
	GeminiAPIKey    string
	GeminiModel     string
	AnthropicAPIKey string
	ClaudeModel     string
	VisionTimeout   time.Duration

	// Overpass junction lookup.
	OverpassEnabled  bool
	OverpassURL      string
	OverpassTimeout  time.Duration
	DefaultJunctions string

	// Google Places competitor count.
	PlacesAPIKey    string
	PlacesRadius    int
	PlacesKeyword   string
	PlacesTimeout   time.Duration
	PlacesCacheSize int
	PlacesCacheTTL  time.Duration

	DatabaseURL string

	ScoringConfigPath       string
	AreaStrictNormalization bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "location-estimate-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "location-estimates"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "storefront-estimator"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		WeatherBaseURL:     sharedcfg.EnvOrDefault("WEATHER_BASE_URL", "https://api.open-meteo.com/v1/forecast"),
		NominatimBaseURL:   sharedcfg.EnvOrDefault("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org/reverse"),
		NominatimUserAgent: sharedcfg.EnvOrDefault("NOMINATIM_USER_AGENT", "storefront-estimator/1.0"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        sharedcfg.EnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		ClaudeModel:        sharedcfg.EnvOrDefault("CLAUDE_MODEL", "claude-sonnet-4-20250514"),
		OverpassURL:        sharedcfg.EnvOrDefault("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		DefaultJunctions:   os.Getenv("DEFAULT_JUNCTIONS"),
		PlacesAPIKey:       os.Getenv("PLACES_API_KEY"),
		PlacesKeyword:      sharedcfg.EnvOrDefault("PLACES_KEYWORD", "food"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		ScoringConfigPath:  os.Getenv("SCORING_CONFIG_PATH"),
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg.WeatherEnabled, err = parseBool("WEATHER_ENABLED", true)
	collect(err)
	cfg.WeatherTimeout, err = parseDuration("WEATHER_TIMEOUT", 3*time.Second)
	collect(err)
	cfg.WeatherCacheSize, err = parsePositiveInt("WEATHER_CACHE_SIZE", 1000)
	collect(err)
	cfg.WeatherCacheTTL, err = parseDuration("WEATHER_CACHE_TTL", 10*time.Minute)
	collect(err)
	cfg.WeatherSeed, err = parseSeed("WEATHER_SEED")
	collect(err)

	cfg.GeocoderEnabled, err = parseBool("GEOCODER_ENABLED", false)
	collect(err)
	cfg.GeocoderTimeout, err = parseDuration("GEOCODER_TIMEOUT", 5*time.Second)
	collect(err)
	cfg.GeocoderCacheSize, err = parsePositiveInt("GEOCODER_CACHE_SIZE", 1000)
	collect(err)
	cfg.GeocoderCacheTTL, err = parseDuration("GEOCODER_CACHE_TTL", 24*time.Hour)
	collect(err)

	cfg.VisionProvider, err = parseVisionProvider(cfg.GeminiAPIKey, cfg.AnthropicAPIKey)
	collect(err)
	cfg.VisionTimeout, err = parseDuration("VISION_TIMEOUT", 60*time.Second)
	collect(err)

	cfg.OverpassEnabled, err = parseBool("OVERPASS_ENABLED", false)
	collect(err)
	cfg.OverpassTimeout, err = parseDuration("OVERPASS_TIMEOUT", 10*time.Second)
	collect(err)
	if err := ValidateJunctions(cfg.DefaultJunctions); err != nil {
		collect(fmt.Errorf("invalid DEFAULT_JUNCTIONS: %w", err))
	}

	cfg.PlacesRadius, err = parsePositiveInt("PLACES_RADIUS", 1000)
	collect(err)
	cfg.PlacesTimeout, err = parseDuration("PLACES_TIMEOUT", 5*time.Second)
	collect(err)
	cfg.PlacesCacheSize, err = parsePositiveInt("PLACES_CACHE_SIZE", 1000)
	collect(err)
	cfg.PlacesCacheTTL, err = parseDuration("PLACES_CACHE_TTL", time.Hour)
	collect(err)

	cfg.AreaStrictNormalization, err = parseBool("AREA_STRICT_NORMALIZATION", false)
	collect(err)

	if len(cfg.KafkaBrokers) == 0 {
		collect(errors.New("KAFKA_BROKERS is required"))
	}
	if cfg.KafkaSourceTopic == "" {
		collect(errors.New("KAFKA_SOURCE_TOPIC is required"))
	}
	if cfg.KafkaSinkTopic == "" {
		collect(errors.New("KAFKA_SINK_TOPIC is required"))
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		collect(fmt.Errorf("invalid LOG_FORMAT %q: must be json or text", cfg.LogFormat))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PlacesEnabled reports whether competitor lookups are configured.
func (c *Config) PlacesEnabled() bool {
	return c.PlacesAPIKey != ""
}

// PersistenceEnabled reports whether estimates are recorded to Postgres.
func (c *Config) PersistenceEnabled() bool {
	return c.DatabaseURL != ""
}

// parseVisionProvider resolves VISION_PROVIDER. When unset, the first provider
// with an API key is used.
func parseVisionProvider(geminiKey, anthropicKey string) (string, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("VISION_PROVIDER")))
	switch provider {
	case "":
		switch {
		case geminiKey != "":
			return VisionGemini, nil
		case anthropicKey != "":
			return VisionClaude, nil
		default:
			return VisionNone, nil
		}
	case VisionNone:
		return VisionNone, nil
	case VisionGemini:
		if geminiKey == "" {
			return "", errors.New("VISION_PROVIDER is gemini but GEMINI_API_KEY is not set")
		}
		return VisionGemini, nil
	case VisionClaude:
		if anthropicKey == "" {
			return "", errors.New("VISION_PROVIDER is claude but ANTHROPIC_API_KEY is not set")
		}
		return VisionClaude, nil
	default:
		return "", fmt.Errorf("invalid VISION_PROVIDER %q: must be gemini, claude, or none", provider)
	}
}

// ValidateJunctions checks a comma-separated junction sequence such as "B,P,JK".
func ValidateJunctions(s string) error {
	for _, part := range strings.Split(s, ",") {
		switch strings.ToUpper(strings.TrimSpace(part)) {
		case "", "B", "P", "JK", "M":
		default:
			return fmt.Errorf("invalid junction code %q: must be B, P, JK, or M", strings.TrimSpace(part))
		}
	}
	return nil
}

func parseDuration(name string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", name, s)
	}
	return d, nil
}

func parsePositiveInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, s)
	}
	return n, nil
}

func parseBool(name string, def bool) (bool, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: must be true or false", name, s)
	}
	return b, nil
}

func parseSeed(name string) (uint64, error) {
	s := os.Getenv(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an unsigned integer", name, s)
	}
	return n, nil
}
