// Package memory provides an in-memory implementation of the external host
// client store, suitable for development, testing, and single-node
// deployments where persistence across restarts is not required.
package memory

import (
	"context"
	"sync"

	"github.com/archestra-ai/mcp-bridge/internal/hostconfig/store"
)

// Store is an in-memory implementation of store.Store. It is safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	clients map[string]*store.Client
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{clients: make(map[string]*store.Client)}
}

// Save inserts or updates a client record.
func (s *Store) Save(ctx context.Context, client *store.Client) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *client
	s.clients[client.ClientName] = &copied
	return nil
}

// Get retrieves a client record by name.
func (s *Store) Get(ctx context.Context, clientName string) (*store.Client, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[clientName]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *client
	return &copied, nil
}

// Delete removes a client record by name.
func (s *Store) Delete(ctx context.Context, clientName string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[clientName]; !ok {
		return store.ErrNotFound
	}
	delete(s.clients, clientName)
	return nil
}

// ListConnected returns every client record with IsConnected == true.
func (s *Store) ListConnected(ctx context.Context) ([]*store.Client, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*store.Client, 0)
	for _, client := range s.clients {
		if client.IsConnected {
			copied := *client
			result = append(result, &copied)
		}
	}
	return result, nil
}
