package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/plotinfo/internal/config"
	"github.com/turtacn/plotinfo/internal/domain/mapview"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/plotinfo/pkg/errors"
)

var ErrAlreadyRunning = errors.New(errors.ErrCodeMessagingError, "consumer already running")

// EnvelopeHandler processes one decoded envelope.
type EnvelopeHandler func(ctx context.Context, env *EffectEnvelope) error

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerMetrics holds consumer counters.
type ConsumerMetrics struct {
	MessagesConsumed  atomic.Int64
	MessagesProcessed atomic.Int64
	MessagesFailed    atomic.Int64
	MessagesRetried   atomic.Int64
}

// Consumer reads effect envelopes from the effect topic.
type Consumer struct {
	reader       ReaderInterface
	logger       logging.Logger
	maxRetries   int
	retryBackoff time.Duration
	fetchBackoff time.Duration
	running      atomic.Bool
	metrics      *ConsumerMetrics
}

// NewConsumer joins cfg.GroupID on cfg.Topic.
func NewConsumer(cfg config.KafkaConfig, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "group id required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10 * 1024 * 1024,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafka.LastOffset,
		CommitInterval: 0,
	})
	return NewConsumerWithReader(reader, logger), nil
}

// NewConsumerWithReader wraps an existing reader.
func NewConsumerWithReader(r ReaderInterface, logger logging.Logger) *Consumer {
	return &Consumer{
		reader:       r,
		logger:       logger,
		maxRetries:   3,
		retryBackoff: 200 * time.Millisecond,
		fetchBackoff: time.Second,
		metrics:      &ConsumerMetrics{},
	}
}

// Run hands every envelope to handler until ctx is cancelled. A message is
// committed once it has been handled or has exhausted its retries; messages
// that cannot be decoded are logged and committed.
func (c *Consumer) Run(ctx context.Context, handler EnvelopeHandler) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("FetchMessage error", logging.Err(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.fetchBackoff):
			}
			continue
		}
		c.metrics.MessagesConsumed.Add(1)

		env, err := DecodeEnvelope(m.Value)
		if err != nil {
			c.logger.Warn("Dropping undecodable message", logging.Int64("offset", m.Offset), logging.Err(err))
			c.metrics.MessagesFailed.Add(1)
		} else if err := c.process(ctx, env, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.metrics.MessagesFailed.Add(1)
			c.logger.Error("Message processing failed after retries",
				logging.String("kind", env.Kind),
				logging.Int64("offset", m.Offset),
				logging.Err(err))
		} else {
			c.metrics.MessagesProcessed.Add(1)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("CommitMessages failed", logging.Err(err))
		}
	}
}

func (c *Consumer) process(ctx context.Context, env *EffectEnvelope, handler EnvelopeHandler) error {
	err := handler(ctx, env)
	backoff := c.retryBackoff
	for i := 0; err != nil && i < c.maxRetries; i++ {
		c.metrics.MessagesRetried.Add(1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		err = handler(ctx, env)
		backoff *= 2
	}
	return err
}

// Processed returns the number of messages handled successfully.
func (c *Consumer) Processed() int64 { return c.metrics.MessagesProcessed.Load() }

// Failed returns the number of messages dropped.
func (c *Consumer) Failed() int64 { return c.metrics.MessagesFailed.Load() }

// Close closes the reader.
func (c *Consumer) Close() error {
	err := c.reader.Close()
	c.logger.Info("Kafka consumer closed", logging.Int64("consumed", c.metrics.MessagesConsumed.Load()))
	return err
}

// ApplyTo returns a handler that decodes each envelope and applies it to m.
// When session is not empty, envelopes of other sessions are skipped.
func ApplyTo(m mapview.Map, session string) EnvelopeHandler {
	return func(ctx context.Context, env *EffectEnvelope) error {
		if session != "" && env.Session != session {
			return nil
		}
		effect, err := env.Effect()
		if err != nil {
			return err
		}
		return m.Apply(ctx, effect)
	}
}
