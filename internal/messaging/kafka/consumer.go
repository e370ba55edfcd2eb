package kafka

import (
	"context"
	"log"

	"github.com/segmentio/kafka-go"
)

// Handler processes one delivered message. Returning an error leaves the
// message uncommitted so it is redelivered; handlers must therefore be
// idempotent.
type Handler func(ctx context.Context, key, value []byte) error

// messageReader is the part of kafka.Reader the consumer drives, split
// out so the commit discipline is testable without a broker.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader messageReader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader}
}

// Consume reads messages until the context is canceled. An offset is
// committed only after its handler returns nil, so a failed apply stays
// uncommitted and the broker redelivers it on the next restart or group
// rebalance instead of dropping it.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[Consumer] Error fetching message: %v", err)
			continue
		}

		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			log.Printf("[Consumer] Error handling message at offset %d, leaving uncommitted: %v", msg.Offset, err)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			log.Printf("[Consumer] Error committing offset %d: %v", msg.Offset, err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
