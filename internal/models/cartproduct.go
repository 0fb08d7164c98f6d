package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartProduct is one line of a user's cart. All of a user's lines are
// deleted together when an order materializes.
type CartProduct struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Quantity  int64              `bson:"quantity" json:"quantity"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
