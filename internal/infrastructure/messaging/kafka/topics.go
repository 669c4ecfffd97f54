package kafka

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/plotinfo/pkg/errors"
)

// TopicSpec describes a topic to create.
type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
}

// EffectTopic returns the default spec of the map effect topic. Effects are
// only useful while a session is being mirrored, hence the short retention.
func EffectTopic(name string) TopicSpec {
	return TopicSpec{Name: name, NumPartitions: 6, ReplicationFactor: 1, RetentionMs: 24 * 3600 * 1000}
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates topics.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

// NewTopicManager dials the first broker.
func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to dial kafka").WithDetail(brokers[0])
	}
	return &TopicManager{conn: conn, logger: logger}, nil
}

// NewTopicManagerWithConn wraps an existing connection.
func NewTopicManagerWithConn(conn ConnInterface, logger logging.Logger) *TopicManager {
	return &TopicManager{conn: conn, logger: logger}
}

// TopicExists reports whether name has partitions.
func (m *TopicManager) TopicExists(_ context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

// EnsureTopic creates spec unless it exists.
func (m *TopicManager) EnsureTopic(ctx context.Context, spec TopicSpec) error {
	if spec.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if spec.NumPartitions <= 0 || spec.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "partitions and replication factor must be > 0")
	}
	if exists, _ := m.TopicExists(ctx, spec.Name); exists {
		return nil
	}
	cfg := kafka.TopicConfig{
		Topic:             spec.Name,
		NumPartitions:     spec.NumPartitions,
		ReplicationFactor: spec.ReplicationFactor,
	}
	if spec.RetentionMs > 0 {
		cfg.ConfigEntries = append(cfg.ConfigEntries, kafka.ConfigEntry{
			ConfigName:  "retention.ms",
			ConfigValue: strconv.FormatInt(spec.RetentionMs, 10),
		})
	}
	if err := m.conn.CreateTopics(cfg); err != nil {
		return errors.Wrap(err, errors.ErrCodeMessagingError, "failed to create topic").WithDetail(spec.Name)
	}
	m.logger.Info("Topic created", logging.String("topic", spec.Name))
	return nil
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}
