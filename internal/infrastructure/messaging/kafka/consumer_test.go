package kafka

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CiteRank-Engine/internal/application/ingest"
	"github.com/turtacn/CiteRank-Engine/internal/config"
	"github.com/turtacn/CiteRank-Engine/internal/domain/graph"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// fakeReader stands in for the consumer-group reader.  The default fetch
// blocks until the context ends, like a quiet partition.
type fakeReader struct {
	mu        sync.Mutex
	fetchFunc func(ctx context.Context) (kafka.Message, error)
	commits   []kafka.Message
	commitErr error
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	fetch := f.fetchFunc
	f.mu.Unlock()
	if fetch != nil {
		return fetch(ctx)
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	f.commits = append(f.commits, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeReader) committed() []kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafka.Message(nil), f.commits...)
}

// fetchOnce serves the given messages in order, then blocks.
func fetchOnce(msgs ...kafka.Message) func(ctx context.Context) (kafka.Message, error) {
	var mu sync.Mutex
	i := 0
	return func(ctx context.Context) (kafka.Message, error) {
		mu.Lock()
		if i < len(msgs) {
			m := msgs[i]
			i++
			mu.Unlock()
			return m, nil
		}
		mu.Unlock()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
}

func newTestConsumer(reader ReaderInterface) *Consumer {
	return &Consumer{
		reader:          reader,
		logger:          logging.NewNopLogger(),
		handlers:        make(map[string]Handler),
		maxRetries:      2,
		handlerBackoff:  time.Millisecond,
		fetchBackoff:    time.Millisecond,
		fetchBackoffMax: 4 * time.Millisecond,
	}
}

func TestNewConsumer_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewConsumer(config.KafkaConfig{GroupID: "citerank"}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = NewConsumer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestNewConsumer_DefaultsToCitationTopic(t *testing.T) {
	t.Parallel()

	c, err := NewConsumer(config.KafkaConfig{
		Brokers:     []string{"localhost:9092"},
		GroupID:     "citerank",
		StartOffset: "latest",
	}, nil, nil)
	require.NoError(t, err)

	reader, ok := c.reader.(*kafka.Reader)
	require.True(t, ok)
	defer reader.Close()
	assert.Equal(t, []string{TopicCitationExtracted}, reader.Config().GroupTopics)
	assert.Equal(t, kafka.LastOffset, reader.Config().StartOffset)
}

func TestConsumer_DeliversAndCommits(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{fetchFunc: fetchOnce(kafka.Message{
		Topic:         TopicCitationExtracted,
		Offset:        7,
		HighWaterMark: 9,
		Value:         []byte(`{"citing_case_id":"a","cited_case_id":"b"}`),
		Headers:       []kafka.Header{{Key: "event_type", Value: []byte("citation-extracted")}},
	})}
	c := newTestConsumer(reader)

	received := make(chan *Message, 1)
	c.Subscribe(TopicCitationExtracted, func(_ context.Context, msg *Message) error {
		received <- msg
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	select {
	case msg := <-received:
		assert.Equal(t, int64(7), msg.Offset)
		assert.JSONEq(t, `{"citing_case_id":"a","cited_case_id":"b"}`, string(msg.Value))
		assert.Equal(t, "citation-extracted", msg.Headers["event_type"])
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for handler")
	}

	require.Eventually(t, func() bool { return len(reader.committed()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(7), reader.committed()[0].Offset)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Fetched)
	assert.Equal(t, int64(1), stats.Processed)
	assert.Equal(t, int64(2), stats.Lag)
	assert.False(t, stats.LastFetchedAt.IsZero())
}

func TestConsumer_FeedsTheIngestPipeline(t *testing.T) {
	t.Parallel()

	store := graph.NewStore(graph.DefaultStoreOptions())
	pipe := ingest.NewPipeline(store, nil, nil, nil, nil, nil)

	reader := &fakeReader{fetchFunc: fetchOnce(
		kafka.Message{Topic: TopicCitationExtracted, Offset: 1,
			Value: []byte(`{"citing_case_id":"marbury","cited_case_id":"federalist"}`)},
		kafka.Message{Topic: TopicCitationExtracted, Offset: 2,
			Value: []byte(`not json at all`)},
	)}
	c := newTestConsumer(reader)
	c.Subscribe(TopicCitationExtracted, func(ctx context.Context, msg *Message) error {
		_, err := pipe.ApplyRaw(ctx, "kafka", msg.Value)
		return err
	})

	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	// Both messages commit: the applied one for progress, the poison one so
	// it cannot wedge the partition.
	require.Eventually(t, func() bool { return len(reader.committed()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, store.EdgeCount())
	assert.Equal(t, int64(0), c.Stats().Dropped)
}

func TestConsumer_StartTwice(t *testing.T) {
	t.Parallel()

	c := newTestConsumer(&fakeReader{})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	assert.Equal(t, ErrAlreadyRunning, c.Start(context.Background()))
}

func TestConsumer_NoHandlerStillCommits(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{fetchFunc: fetchOnce(kafka.Message{Topic: "some.other.topic", Offset: 3})}
	c := newTestConsumer(reader)

	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	require.Eventually(t, func() bool { return len(reader.committed()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(3), reader.committed()[0].Offset)
}

func TestConsumer_RetriesExhaustedDropsAndCommits(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{fetchFunc: fetchOnce(kafka.Message{Topic: TopicCitationExtracted, Offset: 5})}
	c := newTestConsumer(reader)

	var mu sync.Mutex
	attempts := 0
	c.Subscribe(TopicCitationExtracted, func(context.Context, *Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return stderrors.New("transient fault")
	})

	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	require.Eventually(t, func() bool { return len(reader.committed()) == 1 }, time.Second, time.Millisecond)
	mu.Lock()
	assert.Equal(t, 3, attempts) // first try plus maxRetries
	mu.Unlock()

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Retried)
	assert.Equal(t, int64(1), stats.Dropped)
	assert.Equal(t, int64(0), stats.Processed)
}

func TestConsumer_RetrySucceedsOnSecondAttempt(t *testing.T) {
	t.Parallel()

	c := newTestConsumer(&fakeReader{})
	attempts := 0
	handler := func(context.Context, *Message) error {
		attempts++
		if attempts < 2 {
			return stderrors.New("first attempt fails")
		}
		return nil
	}

	require.NoError(t, c.process(context.Background(), &Message{}, handler))
	assert.Equal(t, 2, attempts)
	assert.Equal(t, int64(1), c.counters.retried.Load())
}

func TestConsumer_CancellationLeavesMessageUncommitted(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{fetchFunc: fetchOnce(kafka.Message{Topic: TopicCitationExtracted, Offset: 11})}
	c := newTestConsumer(reader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handled := make(chan struct{})
	c.Subscribe(TopicCitationExtracted, func(context.Context, *Message) error {
		close(handled)
		cancel()
		return errors.Cancelled(context.Canceled)
	})

	require.NoError(t, c.Start(ctx))
	<-handled
	require.NoError(t, c.Close())

	assert.Empty(t, reader.committed())
	assert.True(t, reader.closed)
}

func TestConsumer_CommitFailureDoesNotStopTheLoop(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{
		commitErr: stderrors.New("coordinator moved"),
		fetchFunc: fetchOnce(
			kafka.Message{Topic: TopicCitationExtracted, Offset: 1},
			kafka.Message{Topic: TopicCitationExtracted, Offset: 2},
		),
	}
	c := newTestConsumer(reader)

	var mu sync.Mutex
	handled := 0
	c.Subscribe(TopicCitationExtracted, func(context.Context, *Message) error {
		mu.Lock()
		defer mu.Unlock()
		handled++
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return handled == 2
	}, time.Second, time.Millisecond)
}

func TestConsumer_FetchErrorBacksOffAndRecovers(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0
	reader := &fakeReader{}
	reader.fetchFunc = func(ctx context.Context) (kafka.Message, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		switch {
		case n <= 2:
			return kafka.Message{}, stderrors.New("broker unreachable")
		case n == 3:
			return kafka.Message{Topic: TopicCitationExtracted, Offset: 1}, nil
		default:
			<-ctx.Done()
			return kafka.Message{}, ctx.Err()
		}
	}
	c := newTestConsumer(reader)

	received := make(chan struct{})
	c.Subscribe(TopicCitationExtracted, func(context.Context, *Message) error {
		close(received)
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("consumer did not recover from fetch errors")
	}
	assert.Equal(t, int64(1), c.Stats().Fetched)
}

func TestConsumer_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{}
	c := newTestConsumer(reader)
	require.NoError(t, c.Start(context.Background()))

	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
	require.NoError(t, c.Close())
}
