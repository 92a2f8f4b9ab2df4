package controller

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NameCache is a read-through cache for resolved project and milestone
// names on the my-tasks page. Entries are short-lived; a rename shows up
// after expiry at the latest. A nil client disables caching entirely.
type NameCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewNameCache(rdb *redis.Client, logger *zap.Logger) *NameCache {
	return &NameCache{rdb: rdb, ttl: 5 * time.Minute, logger: logger}
}

func (c *NameCache) Get(ctx context.Context, kind, id string) (string, bool) {
	if c == nil || c.rdb == nil {
		return "", false
	}
	val, err := c.rdb.Get(ctx, "name:"+kind+":"+id).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *NameCache) Set(ctx context.Context, kind, id, name string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, "name:"+kind+":"+id, name, c.ttl).Err(); err != nil {
		c.logger.Debug("Name cache write failed",
			zap.String("kind", kind),
			zap.String("id", id),
			zap.Error(err),
		)
	}
}
