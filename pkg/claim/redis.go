package claim

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClaimer implements leases with SET NX PX, shared by every worker on the instance.
type RedisClaimer struct {
	client redis.UniversalClient
}

func NewRedisClaimer(client redis.UniversalClient) *RedisClaimer {
	return &RedisClaimer{client: client}
}

// NewRedisClaimerFromURL parses a redis:// URL and connects.
func NewRedisClaimerFromURL(ctx context.Context, redisURL string) (*RedisClaimer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClaimer{client: client}, nil
}

func (c *RedisClaimer) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	token := newToken()

	ok, err := c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire claim %s: %w", key, err)
	}

	if !ok {
		return nil, ErrHeld
	}

	return &Lease{Key: key, Token: token, ExpiresAt: time.Now().Add(ttl)}, nil
}

func (c *RedisClaimer) Release(ctx context.Context, lease *Lease) error {
	if err := releaseScript.Run(ctx, c.client, []string{lease.Key}, lease.Token).Err(); err != nil {
		return fmt.Errorf("failed to release claim %s: %w", lease.Key, err)
	}

	return nil
}

func (c *RedisClaimer) Close() error {
	return c.client.Close()
}
