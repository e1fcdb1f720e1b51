package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storefront-estimator/internal/config"
	"github.com/couchcryptid/storefront-estimator/internal/domain"
)

// Writer publishes estimates to the sink topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes the estimates in a single WriteMessages call. Messages
// are keyed by request ID so updates for one request stay on one partition.
func (w *Writer) LoadBatch(ctx context.Context, estimates []domain.LocationEstimate) error {
	if len(estimates) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(estimates))
	for i := range estimates {
		msg, err := serializeToMessage(estimates[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write estimates: %w", err)
	}
	w.logger.Debug("batch published", "size", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeToMessage(est domain.LocationEstimate) (kafkago.Message, error) {
	data, err := json.Marshal(est)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize estimate %s: %w", est.RequestID, err)
	}
	return kafkago.Message{
		Key:   []byte(est.RequestID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "confidence", Value: []byte(est.Metrics.ConfidenceLevel)},
			{Key: "area_source", Value: []byte(est.AreaSource)},
			{Key: "computed_at", Value: []byte(est.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
