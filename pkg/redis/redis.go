package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MTES-MCT/mobilic-api-sub000/config"
	pkgerrors "github.com/MTES-MCT/mobilic-api-sub000/pkg/errors"
)

// Client wraps go-redis.
// Used for the certification run lock and public endpoint rate limiting.
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient connects and pings Redis
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("redis connected", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── Distributed lock ──

const lockPrefix = "lock:"

// releaseScript deletes the key only if it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireLock takes key for ttl and returns the token needed to release it.
// Returns pkgerrors.ErrLockNotAcquired when someone else holds it.
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	ok, err := c.rdb.SetNX(ctx, lockPrefix+key, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", pkgerrors.ErrLockNotAcquired
	}
	return token, nil
}

// ReleaseLock frees key if token still owns it
func (c *Client) ReleaseLock(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, c.rdb, []string{lockPrefix + key}, token).Err()
}

// ── Rate limiting ──

// CheckRateLimit sliding window counter backed by a sorted set.
// Returns false once limit requests were seen within window.
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	member := strconv.FormatInt(now.UnixNano(), 10)
	windowStart := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", windowStart)
	count := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return count.Val() < int64(limit), nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
