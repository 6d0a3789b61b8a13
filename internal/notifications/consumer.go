package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"busline/internal/bookings"
	"busline/internal/feed"
	"busline/pkg/logger"

	"github.com/IBM/sarama"
)

type ConsumerConfig struct {
	Brokers          []string
	GroupID          string
	SupervisorTopic  string
	TransitionTopic  string
	SessionTimeoutMs int
	HeartbeatMs      int
	RetryBackoffMs   int
	OffsetOldest     bool
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:          []string{"localhost:9092"},
		GroupID:          "busline-feed-relay",
		SupervisorTopic:  "busline.supervisor-notices",
		TransitionTopic:  "busline.transitions",
		SessionTimeoutMs: 30000,
		HeartbeatMs:      3000,
		RetryBackoffMs:   100,
		OffsetOldest:     false,
	}
}

// NoticeHandler delivers a supervisor notice that came off the topic
type NoticeHandler func(ctx context.Context, notice bookings.SupervisorNotice) error

// Relay consumes transitions and notices. Transitions go to the local hub,
// so a transition relay needs a group id of its own on every instance.
type Relay struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	topics        []string
	handler       *ConsumerGroupHandler
	log           *logger.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewRelay(config *ConsumerConfig, topics []string, hub feed.Publisher, notices NoticeHandler, log *logger.Logger) (*Relay, error) {
	if log == nil {
		log = logger.GetDefault()
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Retry.Backoff = time.Duration(config.RetryBackoffMs) * time.Millisecond
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second
	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Relay{
		consumerGroup: consumerGroup,
		config:        config,
		topics:        topics,
		handler:       NewConsumerGroupHandler(config, hub, notices, log),
		log:           log,
	}, nil
}

// Start runs the consume loop until ctx is done or Stop is called
func (r *Relay) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	topics := r.topics

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		for err := range r.consumerGroup.Errors() {
			r.log.Warn("Consumer group error", slog.Any("error", err))
		}
	}()
	go func() {
		defer r.wg.Done()
		for {
			if err := r.consumerGroup.Consume(ctx, topics, r.handler); err != nil {
				r.log.Warn("Relay consume failed", slog.Any("error", err))
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	r.log.Info("Kafka relay started",
		slog.String("group_id", r.config.GroupID),
		slog.Any("topics", topics),
	)
}

func (r *Relay) Stop() error {
	if r.cancel != nil {
		r.cancel()
	}
	err := r.consumerGroup.Close()
	r.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	return nil
}

// ConsumerGroupHandler routes each message by topic
type ConsumerGroupHandler struct {
	config  *ConsumerConfig
	hub     feed.Publisher
	notices NoticeHandler
	log     *logger.Logger
}

func NewConsumerGroupHandler(config *ConsumerConfig, hub feed.Publisher, notices NoticeHandler, log *logger.Logger) *ConsumerGroupHandler {
	if log == nil {
		log = logger.GetDefault()
	}
	return &ConsumerGroupHandler{config: config, hub: hub, notices: notices, log: log}
}

func (h *ConsumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.log.Debug("Consumer group session started")
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.log.Debug("Consumer group session ended")
	return nil
}

func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			// Malformed messages are skipped; there is no one to retry for.
			if err := h.processMessage(session.Context(), message); err != nil {
				h.log.Warn("Failed to process message",
					slog.String("topic", message.Topic),
					slog.Int64("offset", message.Offset),
					slog.Any("error", err),
				)
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *ConsumerGroupHandler) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	switch message.Topic {
	case h.config.TransitionTopic:
		var msg TransitionMessage
		if err := json.Unmarshal(message.Value, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal transition: %w", err)
		}
		if h.hub != nil {
			h.hub.Publish(ctx, msg.Event())
		}
		return nil

	case h.config.SupervisorTopic:
		var msg NoticeMessage
		if err := json.Unmarshal(message.Value, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal notice: %w", err)
		}
		if h.notices == nil {
			return nil
		}
		return h.notices(ctx, msg.Notice())

	default:
		return fmt.Errorf("unexpected topic %q", message.Topic)
	}
}
