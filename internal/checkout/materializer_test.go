package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"freshcart-backend/internal/models"
)

type recordingOrderStore struct {
	inserted [][]models.Order
	failWith error
}

func (s *recordingOrderStore) InsertOrders(_ context.Context, orders []models.Order) ([]models.Order, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.inserted = append(s.inserted, orders)
	return orders, nil
}

func (s *recordingOrderStore) FindByPaymentID(context.Context, string) ([]models.Order, error) {
	return nil, nil
}

func TestMaterializeCartCreatesOneOrderPerLine(t *testing.T) {
	store := &recordingOrderStore{}
	m := NewMaterializer(store)

	userID := primitive.NewObjectID()
	addressID := primitive.NewObjectID()
	lines := []CartLine{
		{ProductID: primitive.NewObjectID(), Name: "Bananas", Image: []string{"bananas.jpg"}, Price: 3, Quantity: 2},
		{ProductID: primitive.NewObjectID(), Name: "Oat Milk", Image: []string{"oatmilk.jpg"}, Price: 5, Quantity: 1},
	}

	orders, err := m.MaterializeCart(context.Background(), lines, userID, addressID, "", PaymentStatusCashOnDelivery, 11, 11)
	if err != nil {
		t.Fatalf("MaterializeCart returned error: %v", err)
	}
	if len(orders) != len(lines) {
		t.Fatalf("expected %d orders, got %d", len(lines), len(orders))
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected a single batch insert, got %d", len(store.inserted))
	}

	for i, order := range orders {
		if !strings.HasPrefix(order.OrderID, "ORD-") {
			t.Fatalf("order %d has unexpected orderId %q", i, order.OrderID)
		}
		if order.ProductID != lines[i].ProductID {
			t.Fatalf("order %d references wrong product", i)
		}
		if order.ProductDetails.Name != lines[i].Name {
			t.Fatalf("order %d lost product name snapshot", i)
		}
		if order.PaymentID != "" || order.PaymentStatus != PaymentStatusCashOnDelivery {
			t.Fatalf("order %d has wrong payment fields: %+v", i, order)
		}
		if order.SubTotalAmt != 11 || order.TotalAmt != 11 {
			t.Fatalf("order %d carries wrong amounts: %+v", i, order)
		}
		if order.DeliveryAddress != addressID {
			t.Fatalf("order %d references wrong address", i)
		}
	}

	if orders[0].OrderID == orders[1].OrderID {
		t.Fatal("orderIds must be unique within a batch")
	}
}

func TestMaterializeCartRejectsEmptyCart(t *testing.T) {
	m := NewMaterializer(&recordingOrderStore{})

	_, err := m.MaterializeCart(context.Background(), nil, primitive.NewObjectID(), primitive.NewObjectID(), "", PaymentStatusCashOnDelivery, 0, 0)

	var cartErr InvalidCartError
	if !errors.As(err, &cartErr) {
		t.Fatalf("expected InvalidCartError, got %v", err)
	}
}

func TestMaterializeCartRejectsMissingProductID(t *testing.T) {
	m := NewMaterializer(&recordingOrderStore{})
	lines := []CartLine{{Name: "Bananas", Price: 3, Quantity: 1}}

	_, err := m.MaterializeCart(context.Background(), lines, primitive.NewObjectID(), primitive.NewObjectID(), "", PaymentStatusCashOnDelivery, 3, 3)

	var cartErr InvalidCartError
	if !errors.As(err, &cartErr) {
		t.Fatalf("expected InvalidCartError, got %v", err)
	}
}

func TestMaterializeSessionConvertsMinorUnits(t *testing.T) {
	store := &recordingOrderStore{}
	m := NewMaterializer(store)

	productID := primitive.NewObjectID()
	items := []SessionLineItem{
		{ProductID: productID.Hex(), Name: "Bananas", Image: []string{"bananas.jpg"}, AmountTotal: 598, Quantity: 2},
	}

	orders, err := m.MaterializeSession(context.Background(), items, primitive.NewObjectID(), primitive.NewObjectID(), "pi_123", PaymentStatusPaid)
	if err != nil {
		t.Fatalf("MaterializeSession returned error: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}

	order := orders[0]
	if order.ProductID != productID {
		t.Fatal("productId did not round-trip through the line item metadata")
	}
	if order.SubTotalAmt != 5.98 || order.TotalAmt != 5.98 {
		t.Fatalf("expected amounts 5.98, got sub=%v total=%v", order.SubTotalAmt, order.TotalAmt)
	}
	if order.SubTotalAmt != order.TotalAmt {
		t.Fatal("subTotalAmt and totalAmt must match per line")
	}
	if order.PaymentID != "pi_123" || order.PaymentStatus != PaymentStatusPaid {
		t.Fatalf("wrong payment fields: %+v", order)
	}
}

func TestMaterializeSessionRejectsInvalidProductID(t *testing.T) {
	m := NewMaterializer(&recordingOrderStore{})
	items := []SessionLineItem{{ProductID: "not-an-object-id", AmountTotal: 100, Quantity: 1}}

	if _, err := m.MaterializeSession(context.Background(), items, primitive.NewObjectID(), primitive.NewObjectID(), "pi_123", PaymentStatusPaid); err == nil {
		t.Fatal("expected error for invalid productId metadata")
	}
}
