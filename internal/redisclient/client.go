package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/CodeWithFin/warehouse-inventory/internal/models"

	"github.com/go-redis/redis/v8"
)

// Client wraps Redis for the two things the inventory service needs:
// a cross-instance per-product adjustment lock and a cached stock snapshot
// (quantity + derived status) that backs the product list fast path.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireProductLock acquires the cross-instance adjustment lock for a
// product. Returns false if another instance holds it.
func (c *Client) AcquireProductLock(ctx context.Context, productID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:product:%s", productID), "1", ttl).Result()
}

// ReleaseProductLock releases the adjustment lock for a product
func (c *Client) ReleaseProductLock(ctx context.Context, productID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:product:%s", productID)).Err()
}

// SetStockSnapshot caches a product's quantity and derived status after a
// committed adjustment.
func (c *Client) SetStockSnapshot(ctx context.Context, productID string, quantity int, status models.StockStatus) error {
	key := fmt.Sprintf("stock:%s", productID)

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, "quantity", quantity)
	pipe.HSet(ctx, key, "status", string(status))

	_, err := pipe.Exec(ctx)
	return err
}

// GetStockSnapshot retrieves the cached quantity and status for a product
func (c *Client) GetStockSnapshot(ctx context.Context, productID string) (int, models.StockStatus, error) {
	key := fmt.Sprintf("stock:%s", productID)

	result, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, "", err
	}
	if len(result) == 0 {
		return 0, "", fmt.Errorf("stock snapshot not found for product %s", productID)
	}

	quantity, err := strconv.Atoi(result["quantity"])
	if err != nil {
		return 0, "", fmt.Errorf("corrupt stock snapshot for product %s: %w", productID, err)
	}

	return quantity, models.StockStatus(result["status"]), nil
}

// DeleteStockSnapshot drops a product's cached snapshot
func (c *Client) DeleteStockSnapshot(ctx context.Context, productID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("stock:%s", productID)).Err()
}
