package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/notarypros/booking-service/pkg/logging"
)

// NewRedisClient returns a connected Redis client, or nil when addr is empty
// or the server does not answer a ping. Callers treat nil as "no cache".
func NewRedisClient(ctx context.Context, addr, password string, db int, logger *logging.Logger) *redis.Client {
	if strings.TrimSpace(addr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not available, distance cache disabled", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}
