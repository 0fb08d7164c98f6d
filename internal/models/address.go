package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Address is a delivery address record. Addresses are soft-disabled instead
// of deleted so orders referencing them stay resolvable.
type Address struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	AddressLine string             `bson:"address_line" json:"address_line"`
	City        string             `bson:"city" json:"city"`
	State       string             `bson:"state" json:"state"`
	Pincode     string             `bson:"pincode" json:"pincode"`
	Country     string             `bson:"country" json:"country"`
	Mobile      string             `bson:"mobile" json:"mobile"`
	Status      bool               `bson:"status" json:"status"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
