package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductDetails is the product snapshot captured at purchase time. It is
// deliberately decoupled from the live catalog so past orders keep showing
// what the customer actually bought.
type ProductDetails struct {
	Name  string   `bson:"name" json:"name"`
	Image []string `bson:"image" json:"image"`
}

// Order is one persisted (purchase, product-line) record. Orders are
// append-only: no field is ever mutated after insert.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	OrderID         string             `bson:"orderId" json:"orderId"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	ProductID       primitive.ObjectID `bson:"productId" json:"productId"`
	ProductDetails  ProductDetails     `bson:"product_details" json:"product_details"`
	PaymentID       string             `bson:"paymentId" json:"paymentId"`
	PaymentStatus   string             `bson:"payment_status" json:"payment_status"`
	DeliveryAddress primitive.ObjectID `bson:"delivery_address" json:"delivery_address"`
	SubTotalAmt     float64            `bson:"subTotalAmt" json:"subTotalAmt"`
	TotalAmt        float64            `bson:"totalAmt" json:"totalAmt"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}
