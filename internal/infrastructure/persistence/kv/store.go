// Package kv provides the key-value persistence layer used for analytics
// payloads: usage-event logs, computed patterns, settings and alert
// acknowledgments. Payloads are JSON blobs wrapped in a versioned envelope so
// that format changes have a migration path.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/tomoki33/ordo-backend/internal/infrastructure/cache"
)

var ErrNotFound = errors.New("kv: key not found")

// Store is the minimal key-value contract the analytics layer depends on.
type Store interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key string, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Envelope wraps a persisted payload with its schema version.
type Envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Migration upgrades a payload from the given version to version+1.
type Migration func(data json.RawMessage) (json.RawMessage, error)

// Codec reads and writes versioned JSON payloads through a Store. Payloads
// written before the envelope was introduced decode as version 0 and run
// through the registered migrations.
type Codec struct {
	store      Store
	version    int
	migrations map[int]Migration
}

func NewCodec(store Store, version int) *Codec {
	return &Codec{
		store:      store,
		version:    version,
		migrations: make(map[int]Migration),
	}
}

// RegisterMigration installs the upgrade step from `from` to `from+1`.
func (c *Codec) RegisterMigration(from int, m Migration) {
	c.migrations[from] = m
}

// Load decodes the payload stored under key into out. A missing key returns
// ErrNotFound; a corrupt payload is treated the same way so callers fall back
// to empty defaults.
func (c *Codec) Load(ctx context.Context, key string, out interface{}) error {
	raw, err := c.store.GetItem(ctx, key)
	if err != nil {
		return err
	}

	var envelope Envelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil || envelope.Data == nil {
		// Legacy payloads were bare JSON values without an envelope.
		envelope = Envelope{Version: 0, Data: json.RawMessage(raw)}
	}

	data := envelope.Data
	for v := envelope.Version; v < c.version; v++ {
		migrate, ok := c.migrations[v]
		if !ok {
			return ErrNotFound
		}
		data, err = migrate(data)
		if err != nil {
			return ErrNotFound
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return ErrNotFound
	}
	return nil
}

// Save encodes v under key at the codec's current version.
func (c *Codec) Save(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: failed to marshal payload for %s: %w", key, err)
	}
	payload, err := json.Marshal(Envelope{Version: c.version, Data: data})
	if err != nil {
		return fmt.Errorf("kv: failed to marshal envelope for %s: %w", key, err)
	}
	return c.store.SetItem(ctx, key, string(payload))
}

// Remove deletes the payload stored under key.
func (c *Codec) Remove(ctx context.Context, key string) error {
	return c.store.RemoveItem(ctx, key)
}

// redisStore backs a Store with the shared Redis client; values never expire.
type redisStore struct {
	client *cache.RedisClient
}

func NewRedisStore(client *cache.RedisClient) Store {
	return &redisStore{client: client}
}

func (s *redisStore) GetItem(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key)
	if errors.Is(err, cache.ErrCacheNotFound) {
		return "", ErrNotFound
	}
	return val, err
}

func (s *redisStore) SetItem(ctx context.Context, key string, value string) error {
	return s.client.SetPersistent(ctx, key, value)
}

func (s *redisStore) RemoveItem(ctx context.Context, key string) error {
	return s.client.Delete(ctx, key)
}

// memoryStore is an in-process Store used in tests and local development.
type memoryStore struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStore() Store {
	return &memoryStore{items: make(map[string]string)}
}

func (s *memoryStore) GetItem(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.items[key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (s *memoryStore) SetItem(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

func (s *memoryStore) RemoveItem(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}
