package checkout

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"freshcart-backend/internal/models"
)

// OrderStore persists and looks up order records. InsertOrders must be
// all-or-nothing and must report ErrDuplicatePayment when the batch
// collides with an already materialized paymentId.
type OrderStore interface {
	InsertOrders(ctx context.Context, orders []models.Order) ([]models.Order, error)
	FindByPaymentID(ctx context.Context, paymentID string) ([]models.Order, error)
}

// Materializer converts cart snapshots into persisted order records. It
// never touches cart state, so both the cash-on-delivery path and the paid
// path can compose it with their own cart handling.
type Materializer struct {
	orders OrderStore
}

func NewMaterializer(orders OrderStore) *Materializer {
	return &Materializer{orders: orders}
}

func newOrderNumber() string {
	return "ORD-" + primitive.NewObjectID().Hex()
}

// MaterializeCart persists one order per client-submitted cart line. The
// caller-computed cart totals are recorded on every line; prices are never
// re-resolved from the live catalog.
func (m *Materializer) MaterializeCart(ctx context.Context, lines []CartLine, userID, addressID primitive.ObjectID, paymentID, paymentStatus string, subTotalAmt, totalAmt float64) ([]models.Order, error) {
	if len(lines) == 0 {
		return nil, InvalidCartError{Reason: "cart is empty"}
	}

	now := time.Now()
	orders := make([]models.Order, 0, len(lines))
	for i, line := range lines {
		if line.ProductID.IsZero() {
			return nil, InvalidCartError{Reason: fmt.Sprintf("line %d has no product id", i)}
		}
		orders = append(orders, models.Order{
			OrderID:   newOrderNumber(),
			UserID:    userID,
			ProductID: line.ProductID,
			ProductDetails: models.ProductDetails{
				Name:  line.Name,
				Image: line.Image,
			},
			PaymentID:       paymentID,
			PaymentStatus:   paymentStatus,
			DeliveryAddress: addressID,
			SubTotalAmt:     subTotalAmt,
			TotalAmt:        totalAmt,
			CreatedAt:       now,
		})
	}

	return m.orders.InsertOrders(ctx, orders)
}

// MaterializeSession persists one order per provider-reported line item of
// a completed session. Line amounts arrive in minor currency units.
func (m *Materializer) MaterializeSession(ctx context.Context, items []SessionLineItem, userID, addressID primitive.ObjectID, paymentID, paymentStatus string) ([]models.Order, error) {
	if len(items) == 0 {
		return nil, InvalidCartError{Reason: "session has no line items"}
	}

	now := time.Now()
	orders := make([]models.Order, 0, len(items))
	for _, item := range items {
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("line item carries invalid productId %q: %w", item.ProductID, err)
		}

		amount := float64(item.AmountTotal) / 100
		orders = append(orders, models.Order{
			OrderID:   newOrderNumber(),
			UserID:    userID,
			ProductID: productID,
			ProductDetails: models.ProductDetails{
				Name:  item.Name,
				Image: item.Image,
			},
			PaymentID:       paymentID,
			PaymentStatus:   paymentStatus,
			DeliveryAddress: addressID,
			SubTotalAmt:     amount,
			TotalAmt:        amount,
			CreatedAt:       now,
		})
	}

	return m.orders.InsertOrders(ctx, orders)
}
