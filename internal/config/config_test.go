package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storefront-estimator/internal/domain"
)

const defaultBroker = "localhost:9092"

var envVars = []string{
	"KAFKA_BROKERS", "KAFKA_SOURCE_TOPIC", "KAFKA_SINK_TOPIC", "KAFKA_GROUP_ID",
	"HTTP_ADDR", "LOG_LEVEL", "LOG_FORMAT", "SHUTDOWN_TIMEOUT", "BATCH_SIZE", "BATCH_FLUSH_INTERVAL",
	"WEATHER_ENABLED", "WEATHER_BASE_URL", "WEATHER_TIMEOUT", "WEATHER_CACHE_SIZE", "WEATHER_CACHE_TTL", "WEATHER_SEED",
	"GEOCODER_ENABLED", "NOMINATIM_BASE_URL", "NOMINATIM_USER_AGENT", "GEOCODER_TIMEOUT", "GEOCODER_CACHE_SIZE", "GEOCODER_CACHE_TTL",
	"VISION_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL", "ANTHROPIC_API_KEY", "CLAUDE_MODEL", "VISION_TIMEOUT",
	"OVERPASS_ENABLED", "OVERPASS_URL", "OVERPASS_TIMEOUT", "DEFAULT_JUNCTIONS",
	"PLACES_API_KEY", "PLACES_RADIUS", "PLACES_KEYWORD", "PLACES_TIMEOUT", "PLACES_CACHE_SIZE", "PLACES_CACHE_TTL",
	"DATABASE_URL", "SCORING_CONFIG_PATH", "AREA_STRICT_NORMALIZATION",
}

// clearEnv blanks every variable Load reads so host settings cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "location-estimate-requests", cfg.KafkaSourceTopic)
	assert.Equal(t, "location-estimates", cfg.KafkaSinkTopic)
	assert.Equal(t, "storefront-estimator", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)

	assert.True(t, cfg.WeatherEnabled)
	assert.Equal(t, 3*time.Second, cfg.WeatherTimeout)
	assert.Equal(t, 1000, cfg.WeatherCacheSize)
	assert.Equal(t, uint64(0), cfg.WeatherSeed)
	assert.False(t, cfg.GeocoderEnabled)
	assert.Equal(t, "storefront-estimator/1.0", cfg.NominatimUserAgent)
	assert.Equal(t, VisionNone, cfg.VisionProvider)
	assert.Equal(t, 60*time.Second, cfg.VisionTimeout)
	assert.False(t, cfg.OverpassEnabled)
	assert.Empty(t, cfg.DefaultJunctions)
	assert.False(t, cfg.PlacesEnabled())
	assert.Equal(t, 1000, cfg.PlacesRadius)
	assert.False(t, cfg.PersistenceEnabled())
	assert.False(t, cfg.AreaStrictNormalization)
}

func TestLoad_CustomEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("WEATHER_ENABLED", "false")
	t.Setenv("WEATHER_SEED", "42")
	t.Setenv("GEOCODER_ENABLED", "true")
	t.Setenv("VISION_TIMEOUT", "20s")
	t.Setenv("OVERPASS_ENABLED", "true")
	t.Setenv("DEFAULT_JUNCTIONS", "B,p, JK")
	t.Setenv("PLACES_API_KEY", "places-key")
	t.Setenv("PLACES_RADIUS", "500")
	t.Setenv("DATABASE_URL", "postgres://localhost/estimates")
	t.Setenv("AREA_STRICT_NORMALIZATION", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.False(t, cfg.WeatherEnabled)
	assert.Equal(t, uint64(42), cfg.WeatherSeed)
	assert.True(t, cfg.GeocoderEnabled)
	assert.Equal(t, 20*time.Second, cfg.VisionTimeout)
	assert.True(t, cfg.OverpassEnabled)
	assert.Equal(t, "B,p, JK", cfg.DefaultJunctions)
	assert.True(t, cfg.PlacesEnabled())
	assert.Equal(t, 500, cfg.PlacesRadius)
	assert.True(t, cfg.PersistenceEnabled())
	assert.True(t, cfg.AreaStrictNormalization)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	clearEnv(t)
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_BatchSizeTooLarge(t *testing.T) {
	clearEnv(t)
	t.Setenv("BATCH_SIZE", "9999")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidBatchFlushInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("BATCH_FLUSH_INTERVAL", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_FLUSH_INTERVAL")
}

func TestLoad_InvalidValuesNameTheVariable(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		env   string
		value string
	}{
		{"WEATHER_TIMEOUT", "bad"},
		{"WEATHER_TIMEOUT", "-1s"},
		{"WEATHER_CACHE_SIZE", "0"},
		{"WEATHER_ENABLED", "maybe"},
		{"WEATHER_SEED", "-3"},
		{"GEOCODER_TIMEOUT", "soon"},
		{"OVERPASS_TIMEOUT", "0s"},
		{"PLACES_RADIUS", "wide"},
		{"DEFAULT_JUNCTIONS", "B,X"},
		{"AREA_STRICT_NORMALIZATION", "yes please"},
		{"LOG_FORMAT", "xml"},
		{"VISION_PROVIDER", "ocr"},
	}

	for _, tt := range tests {
		t.Run(tt.env+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.env)
		})
	}
}

func TestLoad_ReportsEveryInvalidVariable(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_TIMEOUT", "bad")
	t.Setenv("PLACES_RADIUS", "-1")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEATHER_TIMEOUT")
	assert.Contains(t, err.Error(), "PLACES_RADIUS")
}

func TestLoad_VisionProvider(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name      string
		provider  string
		gemini    string
		anthropic string
		want      string
		wantErr   string
	}{
		{name: "gemini key implies gemini", gemini: "g-key", want: VisionGemini},
		{name: "anthropic key implies claude", anthropic: "a-key", want: VisionClaude},
		{name: "gemini preferred when both set", gemini: "g-key", anthropic: "a-key", want: VisionGemini},
		{name: "explicit claude", provider: "Claude", gemini: "g-key", anthropic: "a-key", want: VisionClaude},
		{name: "explicit none", provider: "none", gemini: "g-key", want: VisionNone},
		{name: "gemini without key", provider: "gemini", wantErr: "GEMINI_API_KEY"},
		{name: "claude without key", provider: "claude", wantErr: "ANTHROPIC_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VISION_PROVIDER", tt.provider)
			t.Setenv("GEMINI_API_KEY", tt.gemini)
			t.Setenv("ANTHROPIC_API_KEY", tt.anthropic)

			cfg, err := Load()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.VisionProvider)
		})
	}
}

func TestLoadScoringConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadScoringConfig("")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultScoringConfig(), cfg)
}

func TestLoadScoringConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	doc := "minScore: 2\nnichePenalty: 0.7\ncompetitorFactors:\n  high: 0.1\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := LoadScoringConfig(path)
	require.NoError(t, err)

	want := domain.DefaultScoringConfig()
	want.MinScore = 2
	want.NichePenalty = 0.7
	want.CompetitorFactors[domain.CompetitorHigh] = 0.1
	assert.Equal(t, want, cfg)
}

func TestLoadScoringConfig_MissingFile(t *testing.T) {
	_, err := LoadScoringConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCORING_CONFIG_PATH")
}

func TestParseScoringConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "minimumScore: 2\n"},
		{"not yaml", "minScore: [\n"},
		{"max below min", "minScore: 5\nmaxScore: 4\n"},
		{"penalty above one", "nichePenalty: 1.5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScoringConfig([]byte(tt.doc))
			require.Error(t, err)
		})
	}
}

func TestParseScoringConfig_EmptyDocument(t *testing.T) {
	cfg, err := ParseScoringConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultScoringConfig(), cfg)
}

func TestValidateJunctions(t *testing.T) {
	assert.NoError(t, ValidateJunctions(""))
	assert.NoError(t, ValidateJunctions("b, P,jk,M,"))

	err := ValidateJunctions("B,Q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Q"`)
}

func TestLoad_IgnoresHostCredentials(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, VisionNone, cfg.VisionProvider)
	assert.False(t, cfg.PlacesEnabled())
	assert.False(t, cfg.PersistenceEnabled())

	t.Setenv("ANTHROPIC_API_KEY", "host-key")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, VisionClaude, cfg.VisionProvider)
}
