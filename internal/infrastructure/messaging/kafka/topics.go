// Package kafka carries the citation-event feed in and ranking announcements
// out.  The consumer drives the ingest pipeline from the extraction topic
// with manual commits; the producer announces published score snapshots so
// downstream retrieval layers know to refresh.  Both sides are optional —
// the engine runs without a broker.
package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// Topic names of the citation-ranking exchange.
const (
	// TopicCitationExtracted carries one JSON citation-extraction event per
	// message, produced by the upstream extraction service.
	TopicCitationExtracted = "caselaw.citation.extracted"
	// TopicSnapshotPublished announces each published score snapshot.
	TopicSnapshotPublished = "caselaw.ranking.snapshot-published"
)

// SnapshotPublishedEvent tells downstream consumers that a new ranking
// version is live in the score cache.
type SnapshotPublishedEvent struct {
	Version    string    `json:"version"`
	ComputedAt time.Time `json:"computed_at"`
	NodeCount  int       `json:"node_count"`
}

// DecodeSnapshotPublished parses one announcement message value.
func DecodeSnapshotPublished(data []byte) (*SnapshotPublishedEvent, error) {
	var e SnapshotPublishedEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "malformed snapshot announcement")
	}
	if e.Version == "" {
		return nil, errors.New(errors.ErrCodeValidation, "snapshot announcement is missing the version")
	}
	return &e, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Topic administration
// ─────────────────────────────────────────────────────────────────────────────

// TopicConfig describes one topic for EnsureTopics.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	Retention         time.Duration
}

// DefaultTopics describes the exchange with single-broker friendly
// replication; production clusters raise the replication factor before
// calling EnsureTopics.  The announcement topic keeps a single partition so
// version announcements stay totally ordered.
func DefaultTopics() []TopicConfig {
	return []TopicConfig{
		{Name: TopicCitationExtracted, NumPartitions: 6, ReplicationFactor: 1, Retention: 7 * 24 * time.Hour},
		{Name: TopicSnapshotPublished, NumPartitions: 1, ReplicationFactor: 1, Retention: 3 * 24 * time.Hour},
	}
}

// ConnInterface abstracts the controller connection for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates the exchange's topics on clusters that do not
// auto-create them.  It holds a connection to the controller broker, the
// only broker that accepts topic creation.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

// NewTopicManager dials the first broker, resolves the cluster controller,
// and connects to it.
func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers are required")
	}

	bootstrap, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "kafka bootstrap dial failed")
	}
	controller, err := bootstrap.Controller()
	if err != nil {
		_ = bootstrap.Close()
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "kafka controller lookup failed")
	}
	conn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	_ = bootstrap.Close()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "kafka controller dial failed")
	}

	return &TopicManager{conn: conn, logger: logger}, nil
}

// CreateTopic creates one topic, treating an existing topic as success.
func (m *TopicManager) CreateTopic(ctx context.Context, cfg TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name is required")
	}
	if cfg.NumPartitions < 1 {
		return errors.New(errors.ErrCodeValidation, "topic partitions must be >= 1")
	}
	if cfg.ReplicationFactor < 1 {
		return errors.New(errors.ErrCodeValidation, "topic replication factor must be >= 1")
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.Retention > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{
			ConfigName:  "retention.ms",
			ConfigValue: fmt.Sprintf("%d", cfg.Retention.Milliseconds()),
		})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if stderrors.Is(err, kafka.TopicAlreadyExists) {
			return nil
		}
		if exists, _ := m.TopicExists(ctx, cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeMessagingError, "create topic "+cfg.Name)
	}
	m.logger.Info("kafka topic created",
		logging.String("topic", cfg.Name),
		logging.Int("partitions", cfg.NumPartitions))
	return nil
}

// TopicExists reports whether the topic has partitions.  Lookup failures
// read as absent so CreateTopic falls through to its own error.
func (m *TopicManager) TopicExists(_ context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

// EnsureTopics creates every topic, stopping at the first failure.
func (m *TopicManager) EnsureTopics(ctx context.Context, topics []TopicConfig) error {
	for _, topic := range topics {
		if err := m.CreateTopic(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

// EnsureDefaultTopics creates the exchange's topics with default sizing.
func (m *TopicManager) EnsureDefaultTopics(ctx context.Context) error {
	return m.EnsureTopics(ctx, DefaultTopics())
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}
