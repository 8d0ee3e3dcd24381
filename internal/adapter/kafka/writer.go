package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/vessel-data-service/internal/config"
	"github.com/couchcryptid/vessel-data-service/internal/domain"
)

// Writer publishes latest-state snapshots to a Kafka topic.
// It implements service.SnapshotPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
	now    func() time.Time
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSnapshotTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger, now: time.Now}
}

// PublishSnapshot writes state keyed by vessel id, so every snapshot of one
// vessel lands on the same partition in publish order.
func (w *Writer) PublishSnapshot(ctx context.Context, state domain.VesselState) error {
	msg, err := serializeToMessage(state, w.now().UTC())
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	w.logger.Debug("snapshot published", "vessel_id", state.ID, "date", state.Date)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a VesselState into a Kafka message.
func serializeToMessage(state domain.VesselState, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize vessel state: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(state.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "vessel_date", Value: []byte(state.Date)},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
