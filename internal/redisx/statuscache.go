package redisx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StatusCache is the short-TTL read-through cache for order status. Entries
// are keyed by owner and order number; the owner scope keeps a cached status
// private to the identity that stored it.
type StatusCache struct{ R *redis.Client }

func (c *StatusCache) GetStatus(ctx context.Context, owner, number string) (json.RawMessage, bool) {
	s, err := c.R.Get(ctx, fmt.Sprintf(KeyOrderStatus, owner, number)).Result()
	if err != nil || s == "" {
		return nil, false
	}
	return json.RawMessage(s), true
}

func (c *StatusCache) SetStatus(ctx context.Context, owner, number, status string) {
	body, _ := json.Marshal(map[string]string{"status": status})
	_ = c.R.Set(ctx, fmt.Sprintf(KeyOrderStatus, owner, number), body, TTLStatusCache).Err()
}
