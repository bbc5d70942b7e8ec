package redis_client

import (
	"context"
	"time"

	"github.com/Strum355/log"
	"github.com/redis/go-redis/v9"
)

// New connects to redis at addr. An empty address disables caching and
// returns nil.
func New(ctx context.Context, addr string) *redis.Client {
	if addr == "" {
		log.Info("No redis address configured, resolution cache disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).Warn("Redis unreachable, continuing without cache")
		rdb.Close()
		return nil
	}

	log.WithFields(log.Fields{"address": addr}).Info("Connected to redis")
	return rdb
}
