package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"busline/internal/bookings"
	"busline/internal/feed"
	"busline/internal/shared/config"
	"busline/pkg/logger"
)

// Service is what the booking service talks to after a commit. It sends
// notices to supervisors and transitions to every instance's feed hub.
type Service interface {
	bookings.Notifier
	feed.Publisher
	Start(ctx context.Context)
	Stop() error
}

// LogNotices is the notice delivery used when there is no external channel.
// Notices carry ids only, so logging them exposes no rider identity.
func LogNotices(log *logger.Logger) NoticeHandler {
	return func(ctx context.Context, n bookings.SupervisorNotice) error {
		log.InfoContext(ctx, "Supervisor notice",
			slog.String("supervisor_id", n.SupervisorID.String()),
			slog.String("reservation_id", n.ReservationID.String()),
			slog.String("trip_id", n.TripID.String()),
		)
		return nil
	}
}

type localService struct {
	hub     feed.Publisher
	notices NoticeHandler
}

// NewLocalService delivers everything in process
func NewLocalService(hub feed.Publisher, notices NoticeHandler) Service {
	return &localService{hub: hub, notices: notices}
}

func (s *localService) NotifySupervisor(ctx context.Context, n bookings.SupervisorNotice) error {
	return s.notices(ctx, n)
}

func (s *localService) Publish(ctx context.Context, ev feed.Event) {
	s.hub.Publish(ctx, ev)
}

func (s *localService) Start(context.Context) {}

func (s *localService) Stop() error { return nil }

type kafkaService struct {
	*Producer
	transitions *Relay
	notices     *Relay
}

// NewKafkaService routes notices and transitions through Kafka. instanceID
// makes the transition group unique so each instance sees every transition;
// notices share one group so each is delivered once.
func NewKafkaService(cfg config.KafkaConfig, instanceID string, hub feed.Publisher, notices NoticeHandler, log *logger.Logger) (Service, error) {
	if log == nil {
		log = logger.GetDefault()
	}

	producerConfig := DefaultProducerConfig()
	producerConfig.Brokers = cfg.Brokers
	producerConfig.SupervisorTopic = cfg.SupervisorTopic
	producerConfig.TransitionTopic = cfg.TransitionTopic
	producerConfig.RetryMax = cfg.ProducerRetryMax

	producer, err := NewProducer(producerConfig, log)
	if err != nil {
		return nil, err
	}

	transitionConfig := consumerConfig(cfg, fmt.Sprintf("%s-%s", cfg.ConsumerGroup, instanceID))
	transitions, err := NewRelay(transitionConfig, []string{cfg.TransitionTopic}, hub, nil, log)
	if err != nil {
		producer.Close()
		return nil, err
	}

	noticeConfig := consumerConfig(cfg, cfg.ConsumerGroup+"-notices")
	noticeRelay, err := NewRelay(noticeConfig, []string{cfg.SupervisorTopic}, nil, notices, log)
	if err != nil {
		transitions.Stop()
		producer.Close()
		return nil, err
	}

	return &kafkaService{Producer: producer, transitions: transitions, notices: noticeRelay}, nil
}

func consumerConfig(cfg config.KafkaConfig, groupID string) *ConsumerConfig {
	c := DefaultConsumerConfig()
	c.Brokers = cfg.Brokers
	c.GroupID = groupID
	c.SupervisorTopic = cfg.SupervisorTopic
	c.TransitionTopic = cfg.TransitionTopic
	return c
}

func (s *kafkaService) Start(ctx context.Context) {
	s.transitions.Start(ctx)
	s.notices.Start(ctx)
}

func (s *kafkaService) Stop() error {
	transitionErr := s.transitions.Stop()
	noticeErr := s.notices.Stop()
	if err := s.Producer.Close(); err != nil {
		return fmt.Errorf("failed to close producer: %w", err)
	}
	if transitionErr != nil {
		return transitionErr
	}
	return noticeErr
}
