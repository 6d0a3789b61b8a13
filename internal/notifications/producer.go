package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"busline/internal/bookings"
	"busline/internal/feed"
	"busline/pkg/logger"

	"github.com/IBM/sarama"
)

// ProducerConfig contains configuration for the Kafka producer
type ProducerConfig struct {
	Brokers          []string
	SupervisorTopic  string
	TransitionTopic  string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultProducerConfig returns a default producer configuration
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Brokers:          []string{"localhost:9092"},
		SupervisorTopic:  "busline.supervisor-notices",
		TransitionTopic:  "busline.transitions",
		RetryMax:         3,
		TimeoutMs:        10000,             // 10 seconds
		RequiredAcks:     sarama.WaitForAll, // Wait for all in-sync replicas
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000, // 1MB
	}
}

// SaramaConfig builds the client configuration for a producer
func (c *ProducerConfig) SaramaConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = c.RequiredAcks
	saramaConfig.Producer.Compression = c.CompressionType
	saramaConfig.Producer.Retry.Max = c.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(c.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = c.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = c.MaxMessageBytes

	// Idempotent writes need a single in-flight request
	if c.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keeps one key on one partition
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	return saramaConfig
}

// Producer publishes supervisor notices and transitions to Kafka. It
// implements bookings.Notifier and feed.Publisher.
type Producer struct {
	producer sarama.SyncProducer
	config   *ProducerConfig
	log      *logger.Logger
}

// NewProducer connects a sync producer to the configured brokers
func NewProducer(config *ProducerConfig, log *logger.Logger) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(config.Brokers, config.SaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewProducerWithClient(producer, config, log), nil
}

// NewProducerWithClient wraps an existing sarama producer
func NewProducerWithClient(producer sarama.SyncProducer, config *ProducerConfig, log *logger.Logger) *Producer {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Producer{producer: producer, config: config, log: log}
}

// NotifySupervisor publishes a notice for a new pending reservation
func (p *Producer) NotifySupervisor(ctx context.Context, notice bookings.SupervisorNotice) error {
	msg := NewNoticeMessage(notice)
	payload, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     p.config.SupervisorTopic,
		Key:       sarama.StringEncoder(msg.GetPartitionKey()),
		Value:     sarama.ByteEncoder(payload),
		Headers:   headers(msg.Type, msg.ID.String()),
		Timestamp: msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to send notice to Kafka: %w", err)
	}

	p.log.DebugContext(ctx, "Supervisor notice published",
		slog.String("topic", p.config.SupervisorTopic),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
		slog.String("reservation_id", notice.ReservationID.String()),
	)
	return nil
}

// Publish sends a committed transition. Delivery is best effort; a failure
// is logged and the event is lost.
func (p *Producer) Publish(ctx context.Context, ev feed.Event) {
	if err := p.PublishTransition(ctx, ev); err != nil {
		p.log.WarnContext(ctx, "Failed to publish transition",
			slog.String("entity_id", ev.EntityID.String()),
			slog.String("status", ev.NewStatus),
			slog.Any("error", err),
		)
	}
}

func (p *Producer) PublishTransition(ctx context.Context, ev feed.Event) error {
	msg := NewTransitionMessage(ev)
	payload, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal transition: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     p.config.TransitionTopic,
		Key:       sarama.StringEncoder(msg.GetPartitionKey()),
		Value:     sarama.ByteEncoder(payload),
		Headers:   headers(msg.Type, msg.ID.String()),
		Timestamp: msg.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to send transition to Kafka: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}

func headers(t MessageType, id string) []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte("message_type"), Value: []byte(t)},
		{Key: []byte("message_id"), Value: []byte(id)},
		{Key: []byte("producer"), Value: []byte("busline")},
	}
}
