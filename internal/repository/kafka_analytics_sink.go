package repository

import (
	"context"

	"LoadCoach/internal/domain/models"
	domrepo "LoadCoach/internal/domain/repository"
	pkgkafka "LoadCoach/pkg/kafka"
)

var _ domrepo.AnalyticsSink = (*KafkaAnalyticsSink)(nil)

// KafkaAnalyticsSink publishes recommendation events keyed by user id.
type KafkaAnalyticsSink struct {
	producer pkgkafka.Publisher
	topic    string
}

// NewKafkaAnalyticsSink creates a Kafka-backed analytics sink.
func NewKafkaAnalyticsSink(producer pkgkafka.Publisher, topic string) *KafkaAnalyticsSink {
	return &KafkaAnalyticsSink{producer: producer, topic: topic}
}

func (p *KafkaAnalyticsSink) Record(ctx context.Context, ev models.RecommendationEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.UserID), ev)
}

func (p *KafkaAnalyticsSink) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
