package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mk-dev-co/supplyline-api/models"
)

// CacheService is a read-through cache for order lookups, invalidated on
// every state transition. It degrades to a no-op when Redis is unreachable
// or unconfigured: a nil *CacheService is safe to call.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheService connects to Redis at addr. Returns nil (cache disabled)
// when addr is empty or the server does not answer a ping.
func NewCacheService(addr string, ttl time.Duration) *CacheService {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("redis unavailable at %s, order cache disabled: %v", addr, err)
		return nil
	}

	return &CacheService{client: client, ttl: ttl}
}

// GetOrder returns the cached order, or nil on a miss.
func (c *CacheService) GetOrder(ctx context.Context, orderID uint) *models.Order {
	if c == nil {
		return nil
	}

	data, err := c.client.Get(ctx, orderKey(orderID)).Bytes()
	if err != nil {
		return nil
	}

	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil
	}
	return &order
}

// SetOrder stores the order with the configured TTL.
func (c *CacheService) SetOrder(ctx context.Context, order *models.Order) {
	if c == nil || order == nil {
		return
	}

	data, err := json.Marshal(order)
	if err != nil {
		return
	}
	c.client.Set(ctx, orderKey(order.ID), data, c.ttl)
}

// InvalidateOrder drops the cached copy after a mutation.
func (c *CacheService) InvalidateOrder(ctx context.Context, orderID uint) {
	if c == nil {
		return
	}
	c.client.Del(ctx, orderKey(orderID))
}

// Client exposes the underlying Redis client for middleware that shares the
// connection, or nil when the cache is disabled.
func (c *CacheService) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

// Close releases the Redis connection.
func (c *CacheService) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func orderKey(orderID uint) string {
	return fmt.Sprintf("order:%d", orderID)
}
