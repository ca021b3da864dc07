// Package mongo stores site documents in a MongoDB collection, one BSON
// document per key with the key as _id.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/siriusexpedition/sirius/server/internal/store"
)

// Config locates the collection.
type Config struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// Store is a document store backed by one MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Open connects to cfg.URI and verifies the connection with a ping.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo: uri is required")
	}
	if cfg.Database == "" || cfg.Collection == "" {
		return nil, errors.New("mongo: database and collection are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.Timeout).
		SetServerSelectionTimeout(cfg.Timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	return &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// NewFromCollection wraps an existing collection. Close is a no-op for the
// returned Store; the caller owns the client.
func NewFromCollection(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// Close disconnects the client opened by Open.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Get returns the document stored under key, or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (store.Document, error) {
	var raw bson.M
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: get %q: %w", key, err)
	}
	return fromBSON(raw), nil
}

// Set writes fields under key. Merge writes become a single upserting
// UpdateOne with $inc for Increment fields and $set for the rest, so
// concurrent increments never lose updates. Non-merge writes replace the
// whole document.
func (s *Store) Set(ctx context.Context, key string, fields store.Document, opts store.SetOptions) error {
	filter := bson.M{"_id": key}

	if !opts.Merge {
		doc := bson.M{}
		for k, v := range fields {
			if inc, ok := v.(store.Increment); ok {
				v = int64(inc)
			}
			doc[k] = v
		}
		_, err := s.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("mongo: replace %q: %w", key, err)
		}
		return nil
	}

	_, err := s.coll.UpdateOne(ctx, filter, mergeUpdate(key, fields), options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: update %q: %w", key, err)
	}
	return nil
}

func mergeUpdate(key string, fields store.Document) bson.M {
	set, inc := bson.M{}, bson.M{}
	for k, v := range fields {
		if n, ok := v.(store.Increment); ok {
			inc[k] = int64(n)
			continue
		}
		set[k] = v
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	if len(update) == 0 {
		update["$setOnInsert"] = bson.M{"_id": key}
	}
	return update
}

// fromBSON strips _id and converts BSON-specific types to plain Go values.
func fromBSON(raw bson.M) store.Document {
	doc := make(store.Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		switch t := v.(type) {
		case primitive.DateTime:
			doc[k] = t.Time().UTC()
		case primitive.Timestamp:
			doc[k] = time.Unix(int64(t.T), 0).UTC()
		default:
			doc[k] = v
		}
	}
	return doc
}
