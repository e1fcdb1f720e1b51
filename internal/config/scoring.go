package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/storefront-estimator/internal/domain"
)

// LoadScoringConfig reads scoring overrides from a YAML file. Keys missing from
// the file keep their default values. An empty path returns the defaults.
func LoadScoringConfig(path string) (domain.ScoringConfig, error) {
	cfg := domain.DefaultScoringConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ScoringConfig{}, fmt.Errorf("read SCORING_CONFIG_PATH: %w", err)
	}
	return ParseScoringConfig(data)
}

// ParseScoringConfig applies a YAML override document to the defaults and
// validates the result. Unknown keys are rejected.
func ParseScoringConfig(data []byte) (domain.ScoringConfig, error) {
	cfg := domain.DefaultScoringConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return domain.ScoringConfig{}, fmt.Errorf("parse scoring config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return domain.ScoringConfig{}, err
	}
	return cfg, nil
}
