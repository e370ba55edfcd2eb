package messaging

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dedupKeyPrefix = "events:seen:"
	dedupKeyTTL    = 24 * time.Hour
)

// RedisDeduper stores envelope ids as idempotency keys shared across
// consumer instances. Keys expire after a day; a broker redelivering a
// message that late is outside the window this protects against, and
// the replica upsert is idempotent anyway.
type RedisDeduper struct {
	client *redis.Client
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) Seen(ctx context.Context, id string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupKeyPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDeduper) MarkSeen(ctx context.Context, id string) error {
	return d.client.Set(ctx, dedupKeyPrefix+id, 1, dedupKeyTTL).Err()
}
