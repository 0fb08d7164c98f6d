package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureOrderIndexes creates the order collection indexes. The partial
// unique index on paymentId is the concurrency guard for paid orders:
// client verification and the provider webhook can both try to insert the
// same order set, and whichever loses gets a duplicate key error instead
// of a second set. COD orders carry an empty paymentId and are excluded by
// the partial filter.
func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("orders").Indexes()

	paymentIDIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "paymentId", Value: 1}},
		Options: options.Index().
			SetName("paymentId_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{
				"paymentId": bson.M{"$gt": ""},
			}),
	}

	userCreatedIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
		Options: options.Index().SetName("userId_createdAt_index"),
	}

	log.Println("EnsureOrderIndexes: creating paymentId_unique and userId_createdAt_index")
	_, err := indexes.CreateMany(ctx, []mongo.IndexModel{paymentIDIndex, userCreatedIndex})
	if err != nil {
		log.Println("EnsureOrderIndexes: index error:", err)
		return err
	}
	log.Println("EnsureOrderIndexes: order indexes created")
	return nil
}

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("users").Indexes()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}

	log.Println("EnsureUserIndexes: creating email_unique index")
	_, err := indexes.CreateOne(ctx, emailIndex)
	if err != nil {
		log.Println("EnsureUserIndexes: email index error:", err)
		return err
	}
	log.Println("EnsureUserIndexes: email_unique index created")
	return nil
}

func EnsureAddressIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("addresses").Indexes()

	userIDIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetName("userId_index"),
	}

	log.Println("EnsureAddressIndexes: creating userId_index index")
	_, err := indexes.CreateOne(ctx, userIDIndex)
	if err != nil {
		log.Println("EnsureAddressIndexes: userId index error:", err)
		return err
	}
	log.Println("EnsureAddressIndexes: userId_index index created")
	return nil
}
