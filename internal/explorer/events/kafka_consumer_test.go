package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// fakeReader serves queued messages and blocks once they run out. Like
// kafka.Reader, it answers io.EOF after Close.
type fakeReader struct {
	mu        sync.Mutex
	messages  chan kafka.Message
	closeCh   chan struct{}
	committed []kafka.Message
	closed    bool
	commitErr error
}

func newFakeReader(values ...string) *fakeReader {
	r := &fakeReader{
		messages: make(chan kafka.Message, len(values)),
		closeCh:  make(chan struct{}),
	}
	for i, v := range values {
		r.messages <- kafka.Message{Offset: int64(i), Value: []byte(v)}
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.messages:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-r.closeCh:
		return kafka.Message{}, io.EOF
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return r.commitErr
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.closeCh)
	}
	return nil
}

func (r *fakeReader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func TestConsumer_DispatchesDatasetRefreshed(t *testing.T) {
	reader := newFakeReader(
		`{"type":"dataset_refreshed","occurred_at":"2024-05-01T10:00:00Z"}`,
		`{"type":"search_index_rebuilt","index":"search-company","occurred_at":"2024-05-01T10:00:00Z"}`,
	)
	consumer := newConsumer(reader, zaptest.NewLogger(t))

	handled := make(chan Event, 2)
	consumer.RegisterHandler(func(_ context.Context, e Event) error {
		handled <- e
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	consumer.Start(ctx)

	select {
	case e := <-handled:
		assert.Equal(t, DatasetRefreshed, e.Type)
	case <-time.After(time.Second):
		t.Fatal("handler was not called")
	}

	require.Eventually(t, func() bool { return reader.commits() == 2 }, time.Second, 10*time.Millisecond)
	assert.Empty(t, handled, "only dataset refresh events reach the handler")

	cancel()
	<-consumer.Done()
}

func noWait(retries uint64) func() backoff.BackOff {
	return func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, retries)
	}
}

func TestConsumer_RetriesFailedHandler(t *testing.T) {
	reader := newFakeReader(`{"type":"dataset_refreshed"}`)
	consumer := newConsumer(reader, zaptest.NewLogger(t))
	consumer.newBackOff = noWait(2)

	var mu sync.Mutex
	calls := 0
	consumer.RegisterHandler(func(context.Context, Event) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return errors.New("index unavailable")
		}
		return nil
	})

	consumer.Start(context.Background())
	require.Eventually(t, func() bool { return reader.commits() == 1 }, time.Second, 10*time.Millisecond)
	consumer.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}

func TestConsumer_HandlerFailureIsDroppedAfterRetries(t *testing.T) {
	core, recorded := observer.New(zap.ErrorLevel)
	reader := newFakeReader(`{"type":"dataset_refreshed"}`)
	consumer := newConsumer(reader, zap.New(core))
	consumer.newBackOff = noWait(2)

	calls := make(chan struct{}, 10)
	consumer.RegisterHandler(func(context.Context, Event) error {
		calls <- struct{}{}
		return errors.New("rebuild failed")
	})

	consumer.Start(context.Background())
	require.Eventually(t, func() bool { return reader.commits() == 1 }, time.Second, 10*time.Millisecond)
	consumer.Close()

	assert.Len(t, calls, 3, "one attempt plus two retries")
	assert.Equal(t, 1, recorded.FilterMessage("Failed to handle event, dropping it").Len())
}

func TestConsumer_ShutdownDuringHandlerLeavesMessageUncommitted(t *testing.T) {
	reader := newFakeReader(`{"type":"dataset_refreshed"}`)
	consumer := newConsumer(reader, zaptest.NewLogger(t))

	started := make(chan struct{})
	consumer.RegisterHandler(func(ctx context.Context, _ Event) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	consumer.Start(ctx)
	<-started
	cancel()
	<-consumer.Done()

	assert.Equal(t, 0, reader.commits())
}

func TestConsumer_MalformedMessageIsCommitted(t *testing.T) {
	core, recorded := observer.New(zap.ErrorLevel)
	reader := newFakeReader(`not json`)
	consumer := newConsumer(reader, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	consumer.Start(ctx)

	require.Eventually(t, func() bool { return reader.commits() == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-consumer.Done()

	assert.Equal(t, 1, recorded.FilterMessage("Failed to parse event").Len())
}

func TestConsumer_Close(t *testing.T) {
	reader := newFakeReader()
	consumer := newConsumer(reader, zaptest.NewLogger(t))

	consumer.Close()

	assert.True(t, reader.isClosed())
	assert.Equal(t, "kafka_consumer", consumer.logger.Check(zap.InfoLevel, "").LoggerName)
}

func TestConsumer_CloseStopsRunningLoop(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	reader := newFakeReader()
	consumer := newConsumer(reader, zap.New(core))

	consumer.Start(context.Background())
	consumer.Close()

	select {
	case <-consumer.Done():
	default:
		t.Fatal("Close returned before the consume loop exited")
	}
	assert.True(t, reader.isClosed())
	assert.Zero(t, recorded.FilterMessage("Failed to fetch message").Len())
}

func TestConsumer_ReaderClosedEndsLoop(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	reader := newFakeReader()
	consumer := newConsumer(reader, zap.New(core))

	consumer.Start(context.Background())
	require.NoError(t, reader.Close())

	select {
	case <-consumer.Done():
	case <-time.After(time.Second):
		t.Fatal("consume loop kept running after the reader was closed")
	}
	assert.Zero(t, recorded.FilterMessage("Failed to fetch message").Len())
	assert.Equal(t, 1, recorded.FilterMessage("Kafka reader closed, stopping consumer").Len())
}
