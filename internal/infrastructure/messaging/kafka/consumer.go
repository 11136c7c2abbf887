package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/CiteRank-Engine/internal/config"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

var ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "kafka consumer already running")

// Consumer tuning not worth a config knob.  Tests shorten the backoffs
// through the unexported fields.
const (
	defaultHandlerMaxRetries = 3
	defaultHandlerBackoff    = time.Second
	defaultFetchBackoff      = time.Second
	defaultFetchBackoffMax   = 30 * time.Second
)

// Message is the transport-neutral view handlers receive.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string]string
}

// Handler processes one fetched message.  A nil return commits the message;
// an error leaves it uncommitted.
type Handler func(ctx context.Context, msg *Message) error

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerStats is a point-in-time view of the consumer counters.
type ConsumerStats struct {
	Fetched       int64
	Processed     int64
	Retried       int64
	Dropped       int64
	Lag           int64
	LastFetchedAt time.Time
}

type consumerCounters struct {
	fetched   atomic.Int64
	processed atomic.Int64
	retried   atomic.Int64
	dropped   atomic.Int64
	lag       atomic.Int64
	lastFetch atomic.Value // time.Time
}

// Consumer drives per-topic handlers from a consumer-group reader.  Commits
// are manual: a message is committed only after its handler returns nil, so
// a crash replays uncommitted work instead of losing it.
type Consumer struct {
	reader   ReaderInterface
	logger   logging.Logger
	handlers map[string]Handler
	mu       sync.RWMutex

	running  atomic.Bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	counters consumerCounters

	maxRetries      int
	handlerBackoff  time.Duration
	fetchBackoff    time.Duration
	fetchBackoffMax time.Duration
}

// NewConsumer builds a consumer-group reader over the configured brokers for
// the given topics; empty topics default to the citation-extraction topic.
// Nothing is fetched until Start.
func NewConsumer(cfg config.KafkaConfig, topics []string, logger logging.Logger) (*Consumer, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers are required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "kafka consumer group is required")
	}
	if len(topics) == 0 {
		topics = []string{TopicCitationExtracted}
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: topics,
		StartOffset: kafka.FirstOffset,
	}
	if cfg.StartOffset == "latest" {
		readerCfg.StartOffset = kafka.LastOffset
	}
	if cfg.MaxWait > 0 {
		readerCfg.MaxWait = cfg.MaxWait
	}
	if cfg.MinBytes > 0 {
		readerCfg.MinBytes = cfg.MinBytes
	}
	if cfg.MaxBytes > 0 {
		readerCfg.MaxBytes = cfg.MaxBytes
	}

	return &Consumer{
		reader:          kafka.NewReader(readerCfg),
		logger:          logger,
		handlers:        make(map[string]Handler),
		maxRetries:      defaultHandlerMaxRetries,
		handlerBackoff:  defaultHandlerBackoff,
		fetchBackoff:    defaultFetchBackoff,
		fetchBackoffMax: defaultFetchBackoffMax,
	}, nil
}

// Subscribe registers the handler for a topic.  Registering again replaces
// the previous handler.
func (c *Consumer) Subscribe(topic string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	c.logger.Info("subscribed to topic", logging.String("topic", topic))
}

// Start launches the consume loop.  It returns immediately; Close stops the
// loop and waits for it.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.Info("kafka consumer started")
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	backoff := c.fetchBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("citation feed fetch failed",
				logging.Duration("backoff", backoff),
				logging.Err(errors.Wrap(err, errors.ErrCodeFeedUnavailable, "fetch message")))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.fetchBackoffMax {
				backoff = c.fetchBackoffMax
			}
			continue
		}
		backoff = c.fetchBackoff

		c.counters.fetched.Add(1)
		c.counters.lastFetch.Store(time.Now())
		c.counters.lag.Store(m.HighWaterMark - m.Offset)

		c.mu.RLock()
		handler, ok := c.handlers[m.Topic]
		c.mu.RUnlock()
		if !ok {
			c.logger.Warn("no handler for topic", logging.String("topic", m.Topic))
			c.commit(ctx, m)
			continue
		}

		if err := c.process(ctx, fromKafkaMessage(m), handler); err != nil {
			if ctx.Err() != nil {
				// Uncommitted on purpose: the message is redelivered to the
				// next session instead of being lost to the shutdown.
				return
			}
			// Retries exhausted on a non-cancellation fault.  The pipeline
			// already quarantines poison events, so dropping here trades one
			// message for the liveness of the partition.
			c.counters.dropped.Add(1)
			c.logger.Error("citation feed message dropped",
				logging.String("topic", m.Topic),
				logging.Int64("offset", m.Offset),
				logging.Err(err))
		} else {
			c.counters.processed.Add(1)
		}
		c.commit(ctx, m)
	}
}

// process runs the handler with bounded exponential retries.  Cancellation
// aborts between attempts.
func (c *Consumer) process(ctx context.Context, msg *Message, handler Handler) error {
	err := handler(ctx, msg)
	if err == nil {
		return nil
	}

	backoff := c.handlerBackoff
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return errors.Cancelled(ctx.Err())
		case <-time.After(backoff):
		}
		c.counters.retried.Add(1)

		if err = handler(ctx, msg); err == nil {
			return nil
		}
		backoff *= 2
	}
	return err
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.logger.Error("offset commit failed",
			logging.String("topic", m.Topic),
			logging.Int64("offset", m.Offset),
			logging.Err(err))
	}
}

// Stats returns a snapshot of the consumer counters.
func (c *Consumer) Stats() ConsumerStats {
	s := ConsumerStats{
		Fetched:   c.counters.fetched.Load(),
		Processed: c.counters.processed.Load(),
		Retried:   c.counters.retried.Load(),
		Dropped:   c.counters.dropped.Load(),
		Lag:       c.counters.lag.Load(),
	}
	if t, ok := c.counters.lastFetch.Load().(time.Time); ok {
		s.LastFetchedAt = t
	}
	return s
}

// Close stops the loop, waits for it to drain, and closes the reader.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	err := c.reader.Close()
	c.logger.Info("kafka consumer closed",
		logging.Int64("fetched", c.counters.fetched.Load()),
		logging.Int64("processed", c.counters.processed.Load()))
	return err
}

func fromKafkaMessage(m kafka.Message) *Message {
	msg := &Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}
