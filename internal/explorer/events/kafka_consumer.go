package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const handlerRetries = 3

type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer listens for dataset refresh announcements from the ingestion
// process and hands them to a registered handler.
type Consumer struct {
	reader     KafkaReader
	logger     *zap.Logger
	handler    func(context.Context, Event) error
	newBackOff func() backoff.BackOff
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return newConsumer(kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
		Dialer:  kafka.DefaultDialer,
	}), logger)
}

func newConsumer(reader KafkaReader, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: reader,
		logger: logger.Named("kafka_consumer"),
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), handlerRetries)
		},
		done: make(chan struct{}),
	}
}

// Start runs the consume loop until ctx is cancelled, Close is called or
// the reader reports it has been closed.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go func() {
		defer close(c.done)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, io.EOF) {
					c.logger.Info("Kafka reader closed, stopping consumer")
					return
				}
				c.logger.Error("Failed to fetch message", zap.Error(err))
				continue
			}

			var event Event
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				c.logger.Error("Failed to parse event",
					zap.Error(err),
					zap.ByteString("value", msg.Value),
				)
				c.commit(ctx, msg, "")
				continue
			}

			if event.Type == DatasetRefreshed && c.handler != nil {
				if err := c.handle(ctx, event); err != nil {
					if ctx.Err() != nil {
						// left uncommitted so the group redelivers it
						return
					}
					c.logger.Error("Failed to handle event, dropping it",
						zap.Error(err),
						zap.String("event_type", string(event.Type)),
					)
				}
			}

			c.commit(ctx, msg, event.Type)
		}
	}()
}

// handle runs the handler, retrying failures with exponential backoff.
func (c *Consumer) handle(ctx context.Context, event Event) error {
	return backoff.RetryNotify(func() error {
		return c.handler(ctx, event)
	}, backoff.WithContext(c.newBackOff(), ctx), func(err error, wait time.Duration) {
		c.logger.Warn("Event handler failed, retrying",
			zap.Error(err),
			zap.Duration("wait", wait),
		)
	})
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message, eventType EventType) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to commit message",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
		)
	}
}

func (c *Consumer) RegisterHandler(fn func(context.Context, Event) error) {
	c.handler = fn
}

// Done is closed once the consume loop has exited.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Close stops the consume loop, waits for an in-flight handler to return
// and closes the reader.
func (c *Consumer) Close() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
}
