package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// Store bundles the Mongo-backed repositories sharing one client.
type Store struct {
	client   *mongo.Client
	Listings ListingStore
	Users    UserStore
}

// New connects to MongoDB and returns the repository bundle. The connection
// is verified with a ping before returning.
func New(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	log.Info().Str("database", database).Msg("connected to mongodb")

	return &Store{
		client:   client,
		Listings: &mongoListingStore{col: db.Collection("posts")},
		Users:    &mongoUserStore{col: db.Collection("users")},
	}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
