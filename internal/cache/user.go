package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/modelvault/modelvault/internal/model"
)

const (
	// userKeyPrefix is the Redis key prefix for cached user records.
	userKeyPrefix = "user:id:"
	// userTTL bounds staleness of cached user records. Users are only
	// mutated out-of-band, so a short TTL is enough.
	userTTL = 60 * time.Second
)

// GetUser returns a cached user record, or (nil, nil) on a miss.
func (c *Cache) GetUser(ctx context.Context, id string) (*model.User, error) {
	data, err := c.client.Get(ctx, userKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached user: %w", err)
	}

	var u model.User
	if err := json.Unmarshal(data, &u); err != nil {
		// Treat a corrupt entry as a miss.
		_ = c.client.Del(ctx, userKeyPrefix+id).Err()
		return nil, nil
	}
	return &u, nil
}

// SetUser caches a user record with a short TTL.
func (c *Cache) SetUser(ctx context.Context, u *model.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal cached user: %w", err)
	}
	if err := c.client.Set(ctx, userKeyPrefix+u.ID, data, userTTL).Err(); err != nil {
		return fmt.Errorf("set cached user: %w", err)
	}
	return nil
}
