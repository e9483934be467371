package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned when a document does not exist or an id does not
// parse as a valid ObjectID.
var ErrNotFound = errors.New("not found")

// RoleAdmin marks a user as a moderator. Roles are additive flags set out
// of band; no flow in the bot grants or revokes them.
const RoleAdmin = "ADMIN"

// Listing is a classified ad. Pending listings (Verified=false) are visible
// only to the moderation flow; approved listings only to ordinary browse.
type Listing struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	// Price is free text, rendered verbatim.
	Price     string    `bson:"price"`
	Photo     string    `bson:"photo"`
	Owner     int64     `bson:"owner"`
	Contact   string    `bson:"contact,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	Verified  bool      `bson:"verified"`
}

// User mirrors the Telegram user object plus the bot's role flags.
// Created at most once per id; never deleted.
type User struct {
	ID           int64    `bson:"_id"`
	Username     string   `bson:"username,omitempty"`
	FirstName    string   `bson:"first_name,omitempty"`
	LastName     string   `bson:"last_name,omitempty"`
	Roles        []string `bson:"roles"`
	LanguageCode string   `bson:"language_code,omitempty"`
	IsBot        bool     `bson:"is_bot"`
}

// HasRole reports whether the user carries the given role flag.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// FindQuery selects a page of listings. Results are ordered most recent
// first unless OldestFirst is set, which the browse flow uses to address
// pages "before the logical start" with a negative session cursor.
type FindQuery struct {
	Verified    bool
	OldestFirst bool
	Skip        int64
	Limit       int64
}

// ListingStore is the persistence contract the flows depend on.
type ListingStore interface {
	Find(ctx context.Context, q FindQuery) ([]Listing, error)
	FindByID(ctx context.Context, id string) (*Listing, error)
	Insert(ctx context.Context, l *Listing) (*Listing, error)
	SetVerified(ctx context.Context, id string, verified bool) (*Listing, error)
	Delete(ctx context.Context, id string) error
}

// UserStore persists Telegram users seen by the bot.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	// UpsertIfAbsent creates the user record on first contact and is a
	// no-op for an already known id.
	UpsertIfAbsent(ctx context.Context, u *User) error
}
