package geo

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/notarypros/booking-service/pkg/logging"
)

const distanceKeyPrefix = "geo:distance:"

// DistanceCache keeps driving distances in Redis. Redis errors are logged and
// treated as misses so a cache outage only costs an extra lookup. A nil
// *DistanceCache is a cache that never hits.
type DistanceCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewDistanceCache returns nil when client is nil.
func NewDistanceCache(client *redis.Client, ttl time.Duration, logger *logging.Logger) *DistanceCache {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &DistanceCache{client: client, ttl: ttl, logger: logger}
}

func (c *DistanceCache) Get(ctx context.Context, address string) (float64, bool) {
	if c == nil {
		return 0, false
	}
	val, err := c.client.Get(ctx, distanceKeyPrefix+address).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("distance cache read failed", "error", err)
		}
		return 0, false
	}
	miles, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return miles, true
}

func (c *DistanceCache) Set(ctx context.Context, address string, miles float64) {
	if c == nil {
		return
	}
	val := strconv.FormatFloat(miles, 'f', -1, 64)
	if err := c.client.Set(ctx, distanceKeyPrefix+address, val, c.ttl).Err(); err != nil {
		c.logger.Warn("distance cache write failed", "error", err)
	}
}
