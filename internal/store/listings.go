package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoListingStore struct {
	col *mongo.Collection
}

func (s *mongoListingStore) Find(ctx context.Context, q FindQuery) ([]Listing, error) {
	order := -1
	if q.OldestFirst {
		order = 1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: order}}).
		SetSkip(q.Skip).
		SetLimit(q.Limit)

	cur, err := s.col.Find(ctx, bson.M{"verified": q.Verified}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var listings []Listing
	if err := cur.All(ctx, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

func (s *mongoListingStore) FindByID(ctx context.Context, id string) (*Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// A malformed id is indistinguishable from a missing listing as
		// far as the flows are concerned.
		return nil, ErrNotFound
	}

	var l Listing
	err = s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *mongoListingStore) Insert(ctx context.Context, l *Listing) (*Listing, error) {
	res, err := s.col.InsertOne(ctx, l)
	if err != nil {
		return nil, err
	}
	l.ID = res.InsertedID.(primitive.ObjectID)
	return l, nil
}

func (s *mongoListingStore) SetVerified(ctx context.Context, id string, verified bool) (*Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var l Listing
	after := options.After
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"verified": verified}},
		&options.FindOneAndUpdateOptions{ReturnDocument: &after},
	).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *mongoListingStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
