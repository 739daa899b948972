// Package redis provides a Redis-backed implementation of the external host
// client store: a lighter production alternative to the MongoDB backend,
// one JSON-encoded hash field per client under a single Redis hash key.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/archestra-ai/mcp-bridge/internal/hostconfig/store"
)

// hashKey is the single Redis hash holding every client record, keyed by
// client name within the hash.
const hashKey = "archestra:external_mcp_clients"

// Store is a Redis implementation of store.Store.
type Store struct {
	rdb *redis.Client
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New creates a new Redis store using the provided client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Save upserts a client record.
func (s *Store) Save(ctx context.Context, client *store.Client) error {
	data, err := json.Marshal(client)
	if err != nil {
		return fmt.Errorf("redis encode external mcp client %q: %w", client.ClientName, err)
	}
	if err := s.rdb.HSet(ctx, hashKey, client.ClientName, data).Err(); err != nil {
		return fmt.Errorf("redis save external mcp client %q: %w", client.ClientName, err)
	}
	return nil
}

// Get retrieves a client record by name.
func (s *Store) Get(ctx context.Context, clientName string) (*store.Client, error) {
	data, err := s.rdb.HGet(ctx, hashKey, clientName).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("redis get external mcp client %q: %w", clientName, err)
	}
	var client store.Client
	if err := json.Unmarshal(data, &client); err != nil {
		return nil, fmt.Errorf("redis decode external mcp client %q: %w", clientName, err)
	}
	return &client, nil
}

// Delete removes a client record by name.
func (s *Store) Delete(ctx context.Context, clientName string) error {
	n, err := s.rdb.HDel(ctx, hashKey, clientName).Result()
	if err != nil {
		return fmt.Errorf("redis delete external mcp client %q: %w", clientName, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListConnected returns every record with IsConnected == true.
func (s *Store) ListConnected(ctx context.Context) ([]*store.Client, error) {
	all, err := s.rdb.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list connected external mcp clients: %w", err)
	}
	result := make([]*store.Client, 0, len(all))
	for _, raw := range all {
		var client store.Client
		if err := json.Unmarshal([]byte(raw), &client); err != nil {
			continue
		}
		if client.IsConnected {
			copied := client
			result = append(result, &copied)
		}
	}
	return result, nil
}
