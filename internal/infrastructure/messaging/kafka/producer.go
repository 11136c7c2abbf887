package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/CiteRank-Engine/internal/config"
	"github.com/turtacn/CiteRank-Engine/internal/domain/ranking"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

var ErrProducerClosed = errors.New(errors.ErrCodeMessagingError, "kafka producer is closed")

const (
	producerMaxAttempts  = 3
	producerBatchTimeout = 50 * time.Millisecond
	producerWriteTimeout = 10 * time.Second
)

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProducerStats is a point-in-time view of the producer counters.
type ProducerStats struct {
	Sent       int64
	Failed     int64
	BytesSent  int64
	LastSentAt time.Time
}

type producerCounters struct {
	sent     atomic.Int64
	failed   atomic.Int64
	bytes    atomic.Int64
	lastSent atomic.Value // time.Time
}

// Producer publishes engine announcements.  Writes are synchronous — the
// recompute loop publishes one small message per pass, so batching latency
// buys nothing.
type Producer struct {
	writer   WriterInterface
	logger   logging.Logger
	closed   atomic.Bool
	counters producerCounters
}

// NewProducer builds a writer over the configured brokers.  The connection
// is lazy; the first publish dials.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) (*Producer, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers are required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  producerMaxAttempts,
		BatchTimeout: producerBatchTimeout,
		WriteTimeout: producerWriteTimeout,
	}

	return &Producer{writer: writer, logger: logger}, nil
}

// Publish writes one message and waits for the broker acknowledgement.
func (p *Producer) Publish(ctx context.Context, msg *Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if msg.Topic == "" {
		return errors.New(errors.ErrCodeValidation, "message topic is required")
	}
	if len(msg.Value) == 0 {
		return errors.New(errors.ErrCodeValidation, "message value is required")
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, toKafkaMessage(msg)); err != nil {
		p.counters.failed.Add(1)
		return errors.Wrap(err, errors.ErrCodeMessagingError, "kafka publish failed")
	}

	p.counters.sent.Add(1)
	p.counters.bytes.Add(int64(len(msg.Value)))
	p.counters.lastSent.Store(time.Now())

	p.logger.Debug("kafka message published",
		logging.String("topic", msg.Topic),
		logging.Duration("took", time.Since(start)))
	return nil
}

// NotifySnapshotPublished announces a freshly published score snapshot.  The
// version keys the message, and the announcement topic keeps one partition,
// so consumers see announcements in publish order.  A nil snapshot is a
// no-op.
func (p *Producer) NotifySnapshotPublished(ctx context.Context, snap *ranking.ScoreSnapshot) error {
	if snap == nil {
		return nil
	}
	event := SnapshotPublishedEvent{
		Version:    snap.Version,
		ComputedAt: snap.ComputedAt,
		NodeCount:  snap.Len(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode snapshot announcement")
	}
	return p.Publish(ctx, &Message{
		Topic: TopicSnapshotPublished,
		Key:   []byte(snap.Version),
		Value: value,
		Headers: map[string]string{
			"event_type":     "snapshot-published",
			"schema_version": "v1",
		},
	})
}

// Stats returns a snapshot of the producer counters.
func (p *Producer) Stats() ProducerStats {
	s := ProducerStats{
		Sent:      p.counters.sent.Load(),
		Failed:    p.counters.failed.Load(),
		BytesSent: p.counters.bytes.Load(),
	}
	if t, ok := p.counters.lastSent.Load().(time.Time); ok {
		s.LastSentAt = t
	}
	return s
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("kafka producer closed", logging.Int64("sent", p.counters.sent.Load()))
	return err
}

func toKafkaMessage(msg *Message) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return kafka.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    ts,
	}
}
