package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CartStore empties a user's cart after an order materializes: every
// cartproducts line for the user is deleted and the shopping_cart
// reference on the user document is reset. Running it against an
// already-empty cart is a no-op.
type CartStore struct {
	db *mongo.Database
}

func NewCartStore(db *mongo.Database) *CartStore {
	return &CartStore{db: db}
}

func (s *CartStore) ClearCart(ctx context.Context, userID primitive.ObjectID) error {
	if _, err := s.db.Collection("cartproducts").DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
		return err
	}

	_, err := s.db.Collection("users").UpdateByID(ctx, userID, bson.M{
		"$set": bson.M{
			"shopping_cart": []primitive.ObjectID{},
			"updatedAt":     time.Now(),
		},
	})
	return err
}
