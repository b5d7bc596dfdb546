// Package messaging relays outbox messages to Kafka.
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/postgres"
	"github.com/tihomirborovcak/radni-nalozi/pkg/logger"
)

// Header keys set on every message.
const (
	HeaderEventType     = "event-type"
	HeaderAggregateType = "aggregate-type"
	HeaderMessageID     = "message-id"
)

// Writer is the part of kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the producer.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// NewKafkaWriter creates a writer that keys messages onto partitions by
// hash, so events of one aggregate stay ordered.
func NewKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// OutboxPublisher implements postgres.OutboxHandler on a Kafka writer.
type OutboxPublisher struct {
	writer Writer
}

var _ postgres.OutboxHandler = (*OutboxPublisher)(nil)

// NewOutboxPublisher creates the handler.
func NewOutboxPublisher(writer Writer) *OutboxPublisher {
	return &OutboxPublisher{writer: writer}
}

// Handle writes msg keyed by aggregate id.
func (p *OutboxPublisher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	km := kafka.Message{
		Key:   []byte(msg.AggregateID.String()),
		Value: msg.Payload,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(msg.EventType)},
			{Key: HeaderAggregateType, Value: []byte(msg.AggregateType)},
			{Key: HeaderMessageID, Value: []byte(msg.ID.String())},
		},
		Time: msg.CreatedAt,
	}
	if err := p.writer.WriteMessages(ctx, km); err != nil {
		return fmt.Errorf("write %s to kafka: %w", msg.EventType, err)
	}
	logger.Debug(ctx, "event published", "event_type", msg.EventType, "aggregate_id", msg.AggregateID)
	return nil
}

// Close closes the writer.
func (p *OutboxPublisher) Close() error {
	return p.writer.Close()
}
