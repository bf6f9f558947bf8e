package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/hykura1501/e-commerce/internal/logging"
)

// HandlerFunc processes a decoded event.
type HandlerFunc[T any] func(ctx context.Context, ev T) error

// Consumer consumes topics with a single typed handler.
type Consumer[T any] struct {
	Group  sarama.ConsumerGroup
	Topics []string
	Handle HandlerFunc[T]
	Logger *slog.Logger
}

func NewConsumer[T any](group sarama.ConsumerGroup, topics []string, h HandlerFunc[T]) *Consumer[T] {
	return &Consumer[T]{
		Group:  group,
		Topics: topics,
		Handle: h,
		Logger: logging.New("kafka"),
	}
}

// Start blocks until ctx is cancelled or the group is closed.
func (c *Consumer[T]) Start(ctx context.Context) error {
	go func() {
		for err := range c.Group.Errors() {
			c.Logger.Warn("consumer group error", "err", err)
		}
	}()
	handler := &groupHandler[T]{handle: c.Handle, log: c.Logger}
	for {
		if err := c.Group.Consume(ctx, c.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		// Consume returns on rebalance or when ctx is cancelled
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

type groupHandler[T any] struct {
	handle HandlerFunc[T]
	log    *slog.Logger
}

func (h *groupHandler[T]) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler[T]) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler[T]) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		log := h.log.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		var ev T
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Warn("kafka decode error", "err", err)
			// mark to avoid reprocessing poison
			sess.MarkMessage(msg, "decode-error")
			continue
		}
		if err := h.handle(logging.WithCtx(sess.Context(), log), ev); err != nil {
			// left unmarked: redelivered after the next rebalance
			log.Error("handler error", "key", string(msg.Key), "err", err)
			continue
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
