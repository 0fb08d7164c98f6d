package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the customer account document. This service only reads the email
// (checkout receipts) and resets shopping_cart when an order materializes;
// account lifecycle is handled elsewhere.
type User struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name           string               `bson:"name" json:"name"`
	Email          string               `bson:"email" json:"email"`
	PasswordHash   string               `bson:"passwordHash" json:"-"`
	Mobile         string               `bson:"mobile,omitempty" json:"mobile,omitempty"`
	ShoppingCart   []primitive.ObjectID `bson:"shopping_cart" json:"shopping_cart"`
	AddressDetails []primitive.ObjectID `bson:"address_details" json:"address_details"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt" json:"updatedAt"`
}
