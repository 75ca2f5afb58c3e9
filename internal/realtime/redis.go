package realtime

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Jaguar1-alt/Gigconnect/internal/config"
)

const roomChannelPrefix = "gigconnect:room:"

func NewRedis(cfg config.Redis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisBackplane relays room frames through Redis pub/sub.
type RedisBackplane struct {
	rdb *redis.Client
	log *logrus.Logger
}

func NewRedisBackplane(rdb *redis.Client, log *logrus.Logger) *RedisBackplane {
	return &RedisBackplane{rdb: rdb, log: log}
}

func (b *RedisBackplane) Publish(ctx context.Context, room uuid.UUID, payload []byte) error {
	return b.rdb.Publish(ctx, roomChannelPrefix+room.String(), payload).Err()
}

// Run feeds every room frame seen on Redis into deliver until ctx ends.
func (b *RedisBackplane) Run(ctx context.Context, deliver func(room uuid.UUID, payload []byte)) error {
	sub := b.rdb.PSubscribe(ctx, roomChannelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			room, err := uuid.Parse(strings.TrimPrefix(msg.Channel, roomChannelPrefix))
			if err != nil {
				b.log.WithField("channel", msg.Channel).Warn("backplane: unexpected channel")
				continue
			}
			deliver(room, []byte(msg.Payload))
		}
	}
}
