// Package mongo provides a MongoDB implementation of the external host
// client store, persisting client records for durability across restarts.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/archestra-ai/mcp-bridge/internal/hostconfig/store"
)

// Store is a MongoDB implementation of store.Store.
type Store struct {
	collection *mongo.Collection
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New creates a new MongoDB store using the provided collection. The
// collection should be from a connected mongo.Client.
func New(collection *mongo.Collection) *Store {
	return &Store{collection: collection}
}

type clientDocument struct {
	ClientName    string     `bson:"_id"`
	IsConnected   bool       `bson:"is_connected"`
	LastConnected *time.Time `bson:"last_connected,omitempty"`
	ConfigPath    *string    `bson:"config_path,omitempty"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
}

func toDocument(c *store.Client) clientDocument {
	return clientDocument{
		ClientName:    c.ClientName,
		IsConnected:   c.IsConnected,
		LastConnected: c.LastConnected,
		ConfigPath:    c.ConfigPath,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func fromDocument(d *clientDocument) *store.Client {
	return &store.Client{
		ClientName:    d.ClientName,
		IsConnected:   d.IsConnected,
		LastConnected: d.LastConnected,
		ConfigPath:    d.ConfigPath,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// Save upserts a client record by ClientName, matching
// save_external_mcp_client's on_conflict(...).update_columns(...) upsert.
func (s *Store) Save(ctx context.Context, client *store.Client) error {
	doc := toDocument(client)
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": client.ClientName}, doc, opts)
	if err != nil {
		return fmt.Errorf("mongodb save external mcp client %q: %w", client.ClientName, err)
	}
	return nil
}

// Get retrieves a client record by name.
func (s *Store) Get(ctx context.Context, clientName string) (*store.Client, error) {
	var doc clientDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": clientName}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("mongodb get external mcp client %q: %w", clientName, err)
	}
	return fromDocument(&doc), nil
}

// Delete removes a client record by name.
func (s *Store) Delete(ctx context.Context, clientName string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": clientName})
	if err != nil {
		return fmt.Errorf("mongodb delete external mcp client %q: %w", clientName, err)
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListConnected returns every record with is_connected == true.
func (s *Store) ListConnected(ctx context.Context) ([]*store.Client, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"is_connected": true})
	if err != nil {
		return nil, fmt.Errorf("mongodb list connected external mcp clients: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []clientDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb list connected external mcp clients decode: %w", err)
	}
	result := make([]*store.Client, len(docs))
	for i, doc := range docs {
		result[i] = fromDocument(&doc)
	}
	return result, nil
}
