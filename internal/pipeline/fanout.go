package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/storefront-estimator/internal/domain"
)

// FanOutLoader publishes to a primary loader and then records to secondary
// loaders. Only a primary failure fails the batch; secondary failures are
// logged so a store outage does not stall the topic.
type FanOutLoader struct {
	primary     BatchLoader
	secondaries []BatchLoader
	logger      *slog.Logger
}

// NewFanOutLoader creates a FanOutLoader. Nil secondaries are ignored.
func NewFanOutLoader(primary BatchLoader, logger *slog.Logger, secondaries ...BatchLoader) *FanOutLoader {
	f := &FanOutLoader{primary: primary, logger: logger}
	for _, s := range secondaries {
		if s != nil {
			f.secondaries = append(f.secondaries, s)
		}
	}
	return f
}

func (f *FanOutLoader) LoadBatch(ctx context.Context, estimates []domain.LocationEstimate) error {
	if err := f.primary.LoadBatch(ctx, estimates); err != nil {
		return err
	}
	for _, s := range f.secondaries {
		if err := s.LoadBatch(ctx, estimates); err != nil {
			f.logger.Warn("secondary load failed", "error", err, "batch_size", len(estimates))
		}
	}
	return nil
}
