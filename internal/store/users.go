package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoUserStore struct {
	col *mongo.Collection
}

func (s *mongoUserStore) FindByID(ctx context.Context, id int64) (*User, error) {
	var u User
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *mongoUserStore) UpsertIfAbsent(ctx context.Context, u *User) error {
	if u.Roles == nil {
		u.Roles = []string{}
	}

	// $setOnInsert keeps an existing record (and its roles) untouched.
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": u.ID},
		bson.M{"$setOnInsert": u},
		options.Update().SetUpsert(true),
	)
	return err
}
