package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/CashFlow-Sentinel/internal/config"
	"github.com/turtacn/CashFlow-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
)

// WriterInterface abstracts kafka.Writer so the producer can be tested
// without a broker.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes event envelopes. A nil *Producer is safe to use:
// every method is a no-op, which keeps callers free of enabled checks.
type Producer struct {
	writer      WriterInterface
	topicPrefix string
	log         logging.Logger
	closed      atomic.Bool
}

// NewProducer builds a producer from config. Returns (nil, nil) when
// Kafka is disabled.
func NewProducer(cfg config.KafkaConfig, log logging.Logger) (*Producer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka enabled but no brokers configured")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	retries := cfg.ProducerRetries
	if retries <= 0 {
		retries = 3
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  retries,
		BatchSize:    batchSize,
		WriteTimeout: timeout,
		RequiredAcks: kafka.RequireAll,
	}

	log.Info("kafka producer initialized",
		logging.Int("brokers", len(cfg.Brokers)),
		logging.String("topic_prefix", cfg.TopicPrefix),
	)
	return &Producer{
		writer:      writer,
		topicPrefix: cfg.TopicPrefix,
		log:         log,
	}, nil
}

// NewProducerWithWriter is the test seam.
func NewProducerWithWriter(writer WriterInterface, topicPrefix string, log logging.Logger) *Producer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Producer{writer: writer, topicPrefix: topicPrefix, log: log}
}

func (p *Producer) topicName(topic string) string {
	if p.topicPrefix == "" {
		return topic
	}
	return p.topicPrefix + "." + topic
}

// Publish sends one envelope to topic, keyed by key for partition
// affinity.
func (p *Producer) Publish(ctx context.Context, topic, key string, envelope *EventEnvelope) error {
	if p == nil {
		return nil
	}
	if p.closed.Load() {
		return errors.New(errors.ErrCodePublishFailure, "producer is closed")
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshalling event envelope")
	}

	msg := kafka.Message{
		Topic: p.topicName(topic),
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(envelope.EventType)},
			{Key: "schema_version", Value: []byte(envelope.SchemaVersion)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("failed to publish event",
			logging.String("topic", msg.Topic),
			logging.String("event_type", envelope.EventType),
			logging.Err(err),
		)
		return errors.Wrap(err, errors.ErrCodePublishFailure, "publishing event to "+msg.Topic)
	}

	p.log.Debug("event published",
		logging.String("topic", msg.Topic),
		logging.String("event_id", envelope.EventID),
		logging.String("event_type", envelope.EventType),
	)
	return nil
}

// PublishRiskScored announces a completed scoring batch.
func (p *Producer) PublishRiskScored(ctx context.Context, payload RiskScoredPayload) error {
	if p == nil {
		return nil
	}
	env, err := NewEventEnvelope(TopicRiskScored, "", payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, TopicRiskScored, payload.BatchID, env)
}

// PublishPlanGenerated announces a generated collections plan.
func (p *Producer) PublishPlanGenerated(ctx context.Context, payload PlanGeneratedPayload) error {
	if p == nil {
		return nil
	}
	env, err := NewEventEnvelope(TopicPlanGenerated, "", payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, TopicPlanGenerated, payload.PlanID, env)
}

// Close flushes and closes the underlying writer. Idempotent.
func (p *Producer) Close() error {
	if p == nil || !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodePublishFailure, "closing kafka writer")
	}
	p.log.Info("kafka producer closed")
	return nil
}
