package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves a fixed batch of messages and cancels the consumer's
// context once the batch is drained.
type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumeCommitsOnlyHandledMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte("poison")},
			{Offset: 2, Value: []byte("fine")},
		},
		cancel: cancel,
	}
	consumer := &Consumer{reader: reader}

	handlerErr := errors.New("store unavailable")
	err := consumer.Consume(ctx, func(_ context.Context, _, value []byte) error {
		if string(value) == "poison" {
			return handlerErr
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	// The failed message stays uncommitted for redelivery.
	require.Len(t, reader.committed, 1)
	assert.Equal(t, int64(2), reader.committed[0].Offset)
}

func TestConsumeCommitsEveryHandledMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{
		msgs: []kafka.Message{
			{Offset: 1}, {Offset: 2}, {Offset: 3},
		},
		cancel: cancel,
	}
	consumer := &Consumer{reader: reader}

	err := consumer.Consume(ctx, func(context.Context, []byte, []byte) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, reader.committed, 3)
}

func TestConsumeStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{cancel: cancel}
	consumer := &Consumer{reader: reader}

	err := consumer.Consume(ctx, func(context.Context, []byte, []byte) error {
		t.Fatal("handler must not run without a message")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, reader.committed)
}
