// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. Categorization runs publish one JSON event per food;
// the projector consumes them to keep downstream stores in step.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/resilience"
)

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, msg Message) error

// Message is the part of a Kafka message handlers see.
type Message struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Consumer reads a topic as part of the configured consumer group. A
// message's offset is committed only once its handler succeeded; a handler
// that still fails after retries stops the consumer, so the message is
// delivered again on the next start.
type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	handler MessageHandler
	retry   resilience.RetryConfig
}

// NewConsumer creates a Consumer for the given topic and handler. A new
// group starts from the oldest retained message.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", cfg.ConsumerGroup),
		handler: handler,
		retry:   resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second},
	}
}

// Start consumes until ctx is cancelled, which returns nil, or until a
// message cannot be handled.
func (c *Consumer) Start(ctx context.Context) error {
	defer c.reader.Close()
	c.logger.Info("consumer started")
	var handled int
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "handled", handled)
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err)
			if !sleep(ctx, time.Second) {
				return nil
			}
			continue
		}
		at := []any{"partition", msg.Partition, "offset", msg.Offset}
		c.logger.Debug("message received", append(at, "key", string(msg.Key), "value_size", len(msg.Value))...)

		m := Message{Key: msg.Key, Value: msg.Value, Headers: make(map[string]string, len(msg.Headers))}
		for _, h := range msg.Headers {
			m.Headers[h.Key] = string(h.Value)
		}
		err = resilience.Retry(ctx, "handle "+string(msg.Key), c.retry, func(ctx context.Context) error {
			return c.handler(ctx, m)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("giving up on message", append(at, "error", err)...)
			return fmt.Errorf("handling message at partition %d offset %d: %w", msg.Partition, msg.Offset, err)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message", append(at, "error", err)...)
		}
		handled++
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close closes the reader of a consumer that was never started.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
