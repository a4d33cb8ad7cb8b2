package repository

import (
	"context"
	"strconv"

	"PitWall/internal/domain/models"
	domrepo "PitWall/internal/domain/repository"
	pkgkafka "PitWall/pkg/kafka"
)

// KafkaPublisher pushes strategy recommendations onto Kafka, keyed by
// competitor id so per-competitor ordering is preserved across partitions.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates a Kafka recommendation publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) domrepo.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishRecommendation(ctx context.Context, rec *models.StrategyRecommendation) error {
	if rec == nil {
		return nil
	}
	return p.producer.Publish(ctx, p.topic, recKey(rec), rec)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, recs []*models.StrategyRecommendation) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(recs))
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{
			Key:   recKey(rec),
			Value: rec,
		})
	}
	if len(msgs) == 0 {
		return nil
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func recKey(rec *models.StrategyRecommendation) []byte {
	return []byte(strconv.Itoa(rec.CompetitorID))
}
