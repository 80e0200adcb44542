package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/tomoki33/ordo-backend/internal/domain/events"
	"github.com/tomoki33/ordo-backend/pkg/config"
	"github.com/tomoki33/ordo-backend/pkg/logger"
	"go.uber.org/zap"
)

var log = logger.NewLogger()

// Custom error types
var (
	ErrCacheNotFound   = errors.New("cache: key not found")
	ErrCacheConnection = errors.New("cache: connection error")
	ErrInvalidConfig   = errors.New("cache: invalid configuration")
)

const inventoryEventChannel = "ordo:inventory:events"

// Config holds the configuration for the Redis client
type Config struct {
	Addr             string
	Password         string
	DB               int
	PoolSize         int
	MinIdleConns     int
	MaxRetries       int
	ConnTimeout      time.Duration
	OperationTimeout time.Duration
	DefaultTTL       time.Duration
	KeyPrefix        string
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		PoolSize:         100,
		MinIdleConns:     10,
		MaxRetries:       3,
		ConnTimeout:      5 * time.Second,
		OperationTimeout: 2 * time.Second,
		DefaultTTL:       30 * time.Minute,
		KeyPrefix:        "ordo:",
	}
}

// NewConfigFromEnv creates a Redis config from project configuration
func NewConfigFromEnv(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.Addr = fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	c.Password = cfg.Redis.Password
	c.DB = cfg.Redis.DB
	if cfg.Server.Timeout > 0 {
		c.OperationTimeout = cfg.Server.Timeout
	}
	return c
}

// RedisClient wraps the go-redis client with prefixing and timeouts
type RedisClient struct {
	client *redis.Client
	config *Config
}

// NewRedisClient creates a new Redis client and verifies connectivity
func NewRedisClient(cfg *Config) (*RedisClient, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, ErrInvalidConfig
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.ConnTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	return &RedisClient{client: client, config: cfg}, nil
}

func (r *RedisClient) key(key string) string {
	return r.config.KeyPrefix + key
}

// Get retrieves a value by key
func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.OperationTimeout)
	defer cancel()

	val, err := r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return "", ErrCacheNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Set stores a value with the given TTL; ttl<=0 means the default TTL
func (r *RedisClient) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.OperationTimeout)
	defer cancel()

	if ttl <= 0 {
		ttl = r.config.DefaultTTL
	}
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

// SetPersistent stores a value with no expiration
func (r *RedisClient) SetPersistent(ctx context.Context, key string, value string) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.OperationTimeout)
	defer cancel()

	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

// Delete removes a key
func (r *RedisClient) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.OperationTimeout)
	defer cancel()

	return r.client.Del(ctx, r.key(key)).Err()
}

// ClearByPattern removes all keys matching the given pattern
func (r *RedisClient) ClearByPattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, r.key(pattern), 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			log.Error("Failed to delete cache key",
				zap.String("key", iter.Val()),
				zap.Error(err),
			)
		}
	}
	return iter.Err()
}

// PublishInventoryEvent publishes an inventory event for cache invalidation
// and live-dashboard consumers
func (r *RedisClient) PublishInventoryEvent(ctx context.Context, event *events.InventoryEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal inventory event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.OperationTimeout)
	defer cancel()

	return r.client.Publish(ctx, inventoryEventChannel, payload).Err()
}

// SubscribeInventoryEvents subscribes to inventory events; the caller owns the
// returned PubSub and must Close it
func (r *RedisClient) SubscribeInventoryEvents(ctx context.Context) *redis.PubSub {
	return r.client.Subscribe(ctx, inventoryEventChannel)
}

// Ping verifies the connection is alive
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying connection pool
func (r *RedisClient) Close() error {
	return r.client.Close()
}
