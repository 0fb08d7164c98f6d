package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"freshcart-backend/internal/checkout"
	"freshcart-backend/internal/models"
)

// OrderStore is the Mongo-backed order persistence. Batch inserts run in a
// transaction so a partial failure leaves no records, and the paymentId
// unique index surfaces a lost insert race as checkout.ErrDuplicatePayment.
type OrderStore struct {
	db *mongo.Database
}

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) collection() *mongo.Collection {
	return s.db.Collection("orders")
}

func (s *OrderStore) InsertOrders(ctx context.Context, orders []models.Order) ([]models.Order, error) {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	docs := make([]interface{}, 0, len(orders))
	for i := range orders {
		docs = append(docs, orders[i])
	}

	result, err := session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return s.collection().InsertMany(sessCtx, docs)
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, checkout.ErrDuplicatePayment
		}
		return nil, err
	}

	if res, ok := result.(*mongo.InsertManyResult); ok {
		for i, id := range res.InsertedIDs {
			if oid, ok := id.(primitive.ObjectID); ok && i < len(orders) {
				orders[i].ID = oid
			}
		}
	}

	return orders, nil
}

func (s *OrderStore) FindByPaymentID(ctx context.Context, paymentID string) ([]models.Order, error) {
	if paymentID == "" {
		return nil, nil
	}

	cursor, err := s.collection().Find(ctx, bson.M{"paymentId": paymentID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// listByUserOptions sorts a user's order listing newest first.
func listByUserOptions() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
}

// ListByUser returns a user's orders newest first.
func (s *OrderStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	cursor, err := s.collection().Find(ctx, bson.M{"userId": userID}, listByUserOptions())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
