package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"

	"github.com/Jaguar1-alt/Gigconnect/internal/utils"
)

// RateLimiter throttles write-heavy routes per caller, falling back to the
// client IP for anonymous requests. A nil storage keeps counters in memory.
func RateLimiter(max int, window time.Duration, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if actor, err := CurrentActor(c); err == nil {
				return "user:" + actor.ID.String() + ":" + c.Route().Path
			}
			return "ip:" + c.IP() + ":" + c.Route().Path
		},
		LimitReached: func(c *fiber.Ctx) error {
			utils.LogEvent(c.UserContext(), "rate_limit_hit", map[string]interface{}{
				"endpoint":   c.Path(),
				"ip":         c.IP(),
				"user_agent": c.Get(fiber.HeaderUserAgent),
			})
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many requests. Please try again later.",
				"code":    "rate_limited",
			})
		},
		Storage: storage,
	})
}

// RedisStorage implements fiber.Storage on go-redis.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client, prefix: "gigconnect:ratelimit:"}
}

func (r *RedisStorage) Get(key string) ([]byte, error) {
	b, err := r.client.Get(context.Background(), r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return b, err
}

func (r *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	if len(key) == 0 || len(val) == 0 {
		return nil
	}
	return r.client.Set(context.Background(), r.prefix+key, val, exp).Err()
}

func (r *RedisStorage) Delete(key string) error {
	return r.client.Del(context.Background(), r.prefix+key).Err()
}

func (r *RedisStorage) Reset() error {
	ctx := context.Background()
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close leaves the shared client open.
func (r *RedisStorage) Close() error { return nil }
