// Package kafka publishes flagged anomaly records to a Kafka topic for
// downstream consumers (alerting, archival). Publishing is feature-flagged
// and never affects the served view.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/gridwatch/traffic-anomaly-service/internal/config"
	"github.com/gridwatch/traffic-anomaly-service/internal/domain"
)

// Publisher produces anomaly events to the configured topic.
// It implements view.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the anomaly topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAnomalyTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishBatch serializes and publishes the flagged rows in a single
// WriteMessages call.
func (p *Publisher) PublishBatch(ctx context.Context, flagged []domain.ScoredReading, computedAt time.Time) error {
	if len(flagged) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(flagged))
	for i := range flagged {
		msg, err := serializeToMessage(flagged[i], computedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// anomalyEvent is the wire form of one flagged reading.
type anomalyEvent struct {
	domain.ScoredReading
	ComputedAt time.Time `json:"computed_at"`
}

// serializeToMessage marshals a flagged reading into a Kafka message keyed
// by node id, so all events for one node land on the same partition.
func serializeToMessage(s domain.ScoredReading, computedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(anomalyEvent{ScoredReading: s, ComputedAt: computedAt})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize anomaly event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(s.NodeID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "spatial_cluster", Value: []byte(s.SpatialCluster)},
			{Key: "computed_at", Value: []byte(computedAt.Format(time.RFC3339))},
		},
	}, nil
}
