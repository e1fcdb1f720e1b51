package pipeline

import (
	"context"

	"github.com/couchcryptid/storefront-estimator/internal/domain"
)

// Estimator computes one location estimate.
type Estimator interface {
	Estimate(ctx context.Context, req domain.EstimateRequest) (domain.LocationEstimate, error)
}

// EstimateTransformer implements Transformer by decoding the request payload
// and handing it to an Estimator.
type EstimateTransformer struct {
	estimator Estimator
}

// NewTransformer creates an EstimateTransformer.
func NewTransformer(estimator Estimator) *EstimateTransformer {
	return &EstimateTransformer{estimator: estimator}
}

func (t *EstimateTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.LocationEstimate, error) {
	req, err := domain.ParseEstimateRequest(raw)
	if err != nil {
		return domain.LocationEstimate{}, err
	}
	return t.estimator.Estimate(ctx, req)
}
