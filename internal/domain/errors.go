package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is. Every error returned by the engine matches exactly
// one of them.
var (
	ErrValidation  = errors.New("validation failed")
	ErrComputation = errors.New("computation failed")
)

// ErrNotFound is returned by estimate stores for an unknown request ID.
var ErrNotFound = errors.New("estimate not found")

// FieldError is a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports caller-supplied input the engine cannot use.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ComputationError reports a non-finite intermediate value.
type ComputationError struct {
	Stage    string
	Quantity string
	Value    float64
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s: stage %s produced %s = %v", ErrComputation, e.Stage, e.Quantity, e.Value)
}

func (e *ComputationError) Is(target error) bool {
	return target == ErrComputation
}

// ErrorKind classifies an error as "validation", "computation", or "internal"
// for metrics and transport status mapping.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrComputation):
		return "computation"
	default:
		return "internal"
	}
}

// Degradation names a collaborator failure that was recovered with a fallback.
type Degradation string

const (
	DegradedWeatherSampled   Degradation = "weather_sampled"
	DegradedVisionFallback   Degradation = "vision_fallback"
	DegradedAreaFallback     Degradation = "area_fallback"
	DegradedDensityDefault   Degradation = "density_default"
	DegradedGeocodeFailed    Degradation = "geocode_failed"
	DegradedCompetitorLookup Degradation = "competitor_lookup_failed"
	DegradedJunctionLookup   Degradation = "junction_lookup_failed"
)
