package repository

import (
	"context"
	"strconv"

	"VolSurf/internal/domain/models"
	"VolSurf/internal/domain/repository"
	pkgkafka "VolSurf/pkg/kafka"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// batchPublisher is the part of pkg/kafka.Producer the publisher needs.
type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaGridPublisher implements GridPublisher for Kafka. Snapshots share one
// key so a compacted topic keeps only the latest surface.
type KafkaGridPublisher struct {
	producer batchPublisher
	topic    string
}

// NewKafkaGridPublisher creates the grid publisher.
func NewKafkaGridPublisher(producer *pkgkafka.Producer, topic string) *KafkaGridPublisher {
	return &KafkaGridPublisher{producer: producer, topic: topic}
}

var _ repository.GridPublisher = (*KafkaGridPublisher)(nil)

func (p *KafkaGridPublisher) PublishGrid(ctx context.Context, g *models.GridSnapshot) error {
	traceID := pkgkafka.TraceIDFrom(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{{
		Key:   []byte("surface"),
		Value: g,
		Headers: []kafka.Header{
			{Key: "trace_id", Value: []byte(traceID)},
			{Key: "version", Value: []byte(strconv.FormatUint(g.Version, 10))},
		},
	}})
}

func (p *KafkaGridPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
