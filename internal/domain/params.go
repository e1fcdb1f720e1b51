package domain

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" yaml:"lon" validate:"gte=-180,lte=180"`
}

// BusinessParameters are the user-supplied figures for the planned business.
type BusinessParameters struct {
	BuildingWidth  float64 `json:"buildingWidth" yaml:"buildingWidth" validate:"gt=0"`   // meters of frontage
	OperatingHours float64 `json:"operatingHours" yaml:"operatingHours" validate:"gt=0"` // hours per day
	ProductPrice   float64 `json:"productPrice" yaml:"productPrice" validate:"gt=0"`     // currency units per sale
}

// ScreenshotMetadata describes the physical footprint of the analysed image.
type ScreenshotMetadata struct {
	Width  int          `json:"width" yaml:"width" validate:"gt=0"`   // pixels
	Height int          `json:"height" yaml:"height" validate:"gt=0"` // pixels
	Scale  float64      `json:"scale" yaml:"scale" validate:"gt=0"`   // meters per pixel
	Center *Coordinates `json:"center,omitempty" yaml:"center,omitempty"`
}

// EstimateInput bundles everything ComputeMetrics needs for one estimate.
type EstimateInput struct {
	Area       AreaDistribution   `json:"area" yaml:"area"`
	Business   BusinessParameters `json:"business" yaml:"business"`
	Screenshot ScreenshotMetadata `json:"screenshot" yaml:"screenshot"`
	Junctions  JunctionSequence   `json:"junctions,omitempty" yaml:"junctions,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateInput checks business and screenshot parameters. Non-finite values
// are rejected before the struct tags run because NaN and Inf slip past
// ordinary comparisons.
func ValidateInput(in EstimateInput) error {
	var fields []FieldError

	for name, v := range map[string]float64{
		"business.buildingWidth":  in.Business.BuildingWidth,
		"business.operatingHours": in.Business.OperatingHours,
		"business.productPrice":   in.Business.ProductPrice,
		"screenshot.scale":        in.Screenshot.Scale,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			fields = append(fields, FieldError{Field: name, Message: "must be a finite number"})
		}
	}
	if len(fields) > 0 {
		slices.SortFunc(fields, func(a, b FieldError) int { return strings.Compare(a.Field, b.Field) })
		return &ValidationError{Fields: fields}
	}

	if err := validate.Struct(in); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return fmt.Errorf("validate input: %w", err)
		}
		for _, fe := range ves {
			fields = append(fields, FieldError{
				Field:   trimNamespace(fe.Namespace()),
				Message: describeTag(fe),
			})
		}
		return &ValidationError{Fields: fields}
	}
	return nil
}

// trimNamespace drops the root struct name: "EstimateInput.business.x" -> "business.x".
func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "required":
		return "is required"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
