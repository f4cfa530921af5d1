package replay

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// RedisGuard shares the replay set between several service replicas.
type RedisGuard struct {
	client *redis.Client
	prefix string
}

// NewRedisGuard uses keys "<prefix><nonce>". An empty prefix defaults to
// "oracle:nonce:".
func NewRedisGuard(client *redis.Client, prefix string) *RedisGuard {
	if prefix == "" {
		prefix = "oracle:nonce:"
	}
	return &RedisGuard{client: client, prefix: prefix}
}

func (g *RedisGuard) TryConsume(ctx context.Context, nonce uint64) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+strconv.FormatUint(nonce, 10), 1, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}
