package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"

	"freshcart-backend/internal/checkout"
	"freshcart-backend/internal/checkout/mocks"
	"freshcart-backend/internal/models"
)

type fakeOrderStore struct {
	mu        sync.Mutex
	byPayment map[string][]models.Order
	inserts   int
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{byPayment: make(map[string][]models.Order)}
}

func (s *fakeOrderStore) InsertOrders(_ context.Context, orders []models.Order) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inserts++
	key := orders[0].PaymentID
	if key != "" {
		if _, exists := s.byPayment[key]; exists {
			return nil, checkout.ErrDuplicatePayment
		}
	}
	s.byPayment[key] = append(s.byPayment[key], orders...)
	return orders, nil
}

func (s *fakeOrderStore) FindByPaymentID(_ context.Context, paymentID string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if paymentID == "" {
		return nil, nil
	}
	return s.byPayment[paymentID], nil
}

type fakeCartStore struct {
	mu     sync.Mutex
	clears int
}

func (s *fakeCartStore) ClearCart(context.Context, primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	return nil
}

func (s *fakeCartStore) clearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

func paidSession(userID, addressID primitive.ObjectID) *checkout.SessionState {
	return &checkout.SessionState{
		ID:              "cs_test_1",
		PaymentIntentID: "pi_123",
		PaymentStatus:   checkout.PaymentStatusPaid,
		Status:          checkout.SessionStatusComplete,
		Metadata: map[string]string{
			checkout.MetadataUserID:    userID.Hex(),
			checkout.MetadataAddressID: addressID.Hex(),
		},
	}
}

func sessionLineItems() []checkout.SessionLineItem {
	return []checkout.SessionLineItem{
		{ProductID: primitive.NewObjectID().Hex(), Name: "Bananas", AmountTotal: 598, Quantity: 2},
	}
}

func TestVerifyCompletesSessionExactlyOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)
	orders := newFakeOrderStore()
	carts := &fakeCartStore{}
	co := checkout.NewCoordinator(gateway, orders, carts)

	userID := primitive.NewObjectID()
	addressID := primitive.NewObjectID()
	session := paidSession(userID, addressID)

	gateway.EXPECT().RetrieveSession(gomock.Any(), "cs_test_1").Return(session, nil).Times(2)
	gateway.EXPECT().ListLineItems(gomock.Any(), "cs_test_1").Return(sessionLineItems(), nil).Times(1)

	first, already, err := co.Verify(context.Background(), "cs_test_1", userID)
	if err != nil {
		t.Fatalf("first Verify returned error: %v", err)
	}
	if already {
		t.Fatal("first Verify must not report already processed")
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 order, got %d", len(first))
	}
	if carts.clearCount() != 1 {
		t.Fatalf("expected 1 cart clear, got %d", carts.clearCount())
	}

	second, already, err := co.Verify(context.Background(), "cs_test_1", userID)
	if err != nil {
		t.Fatalf("second Verify returned error: %v", err)
	}
	if !already {
		t.Fatal("second Verify must report already processed")
	}
	if len(second) != 1 || second[0].OrderID != first[0].OrderID {
		t.Fatal("second Verify must return the first call's records unchanged")
	}
	if orders.inserts != 1 {
		t.Fatalf("expected exactly 1 insert, got %d", orders.inserts)
	}
	if carts.clearCount() != 2 {
		t.Fatalf("cart clear must rerun idempotently, got %d clears", carts.clearCount())
	}
}

func TestVerifyRejectsUnpaidSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)
	orders := newFakeOrderStore()
	carts := &fakeCartStore{}
	co := checkout.NewCoordinator(gateway, orders, carts)

	userID := primitive.NewObjectID()
	session := paidSession(userID, primitive.NewObjectID())
	session.PaymentStatus = "unpaid"
	session.Status = "open"

	gateway.EXPECT().RetrieveSession(gomock.Any(), "cs_test_1").Return(session, nil)

	_, _, err := co.Verify(context.Background(), "cs_test_1", userID)

	var incompleteErr checkout.PaymentIncompleteError
	if !errors.As(err, &incompleteErr) {
		t.Fatalf("expected PaymentIncompleteError, got %v", err)
	}
	if orders.inserts != 0 {
		t.Fatal("unpaid session must not create orders")
	}
	if carts.clearCount() != 0 {
		t.Fatal("unpaid session must not clear the cart")
	}
}

func TestVerifyRejectsForeignSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)
	orders := newFakeOrderStore()
	carts := &fakeCartStore{}
	co := checkout.NewCoordinator(gateway, orders, carts)

	sessionOwner := primitive.NewObjectID()
	caller := primitive.NewObjectID()
	session := paidSession(sessionOwner, primitive.NewObjectID())

	gateway.EXPECT().RetrieveSession(gomock.Any(), "cs_test_1").Return(session, nil)

	_, _, err := co.Verify(context.Background(), "cs_test_1", caller)

	var authErr checkout.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
	if orders.inserts != 0 {
		t.Fatal("foreign session must not create orders")
	}
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)
	orders := newFakeOrderStore()
	carts := &fakeCartStore{}
	co := checkout.NewCoordinator(gateway, orders, carts)

	gateway.EXPECT().ParseWebhookEvent(gomock.Any(), gomock.Any()).
		Return(&checkout.WebhookEvent{Type: "payment_intent.succeeded"}, nil)

	if err := co.HandleWebhookEvent(context.Background(), []byte("{}"), ""); err != nil {
		t.Fatalf("HandleWebhookEvent returned error: %v", err)
	}
	if orders.inserts != 0 {
		t.Fatal("non-completed events must not create orders")
	}
}

func TestWebhookCompletesSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)
	orders := newFakeOrderStore()
	carts := &fakeCartStore{}
	co := checkout.NewCoordinator(gateway, orders, carts)

	session := paidSession(primitive.NewObjectID(), primitive.NewObjectID())
	gateway.EXPECT().ParseWebhookEvent(gomock.Any(), gomock.Any()).
		Return(&checkout.WebhookEvent{Type: checkout.EventCheckoutSessionCompleted, Session: session}, nil)
	gateway.EXPECT().ListLineItems(gomock.Any(), "cs_test_1").Return(sessionLineItems(), nil)

	if err := co.HandleWebhookEvent(context.Background(), []byte("{}"), ""); err != nil {
		t.Fatalf("HandleWebhookEvent returned error: %v", err)
	}
	if orders.inserts != 1 {
		t.Fatalf("expected 1 insert, got %d", orders.inserts)
	}
	if carts.clearCount() != 1 {
		t.Fatalf("expected 1 cart clear, got %d", carts.clearCount())
	}
}

func TestWebhookAcknowledgesDownstreamFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)
	orders := newFakeOrderStore()
	carts := &fakeCartStore{}
	co := checkout.NewCoordinator(gateway, orders, carts)

	session := paidSession(primitive.NewObjectID(), primitive.NewObjectID())
	gateway.EXPECT().ParseWebhookEvent(gomock.Any(), gomock.Any()).
		Return(&checkout.WebhookEvent{Type: checkout.EventCheckoutSessionCompleted, Session: session}, nil)
	gateway.EXPECT().ListLineItems(gomock.Any(), "cs_test_1").
		Return(nil, checkout.GatewayError{Op: "list line items", Err: errors.New("boom")})

	// Once the event is parsed, downstream failures must not bubble up or
	// the provider will retry-storm.
	if err := co.HandleWebhookEvent(context.Background(), []byte("{}"), ""); err != nil {
		t.Fatalf("expected acknowledged delivery, got error: %v", err)
	}
}

func TestWebhookSignatureFailureSurfaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)
	co := checkout.NewCoordinator(gateway, newFakeOrderStore(), &fakeCartStore{})

	gateway.EXPECT().ParseWebhookEvent(gomock.Any(), gomock.Any()).
		Return(nil, checkout.SignatureError{Err: errors.New("bad signature")})

	err := co.HandleWebhookEvent(context.Background(), []byte("{}"), "t=1,v1=bad")

	var sigErr checkout.SignatureError
	if !errors.As(err, &sigErr) {
		t.Fatalf("expected SignatureError, got %v", err)
	}
}

// racingOrderStore simulates losing the insert race to the other trigger:
// the existence check sees nothing, the insert hits the unique index, and
// a re-read returns the winner's records.
type racingOrderStore struct {
	mu      sync.Mutex
	lookups int
	winner  []models.Order
}

func (s *racingOrderStore) InsertOrders(context.Context, []models.Order) ([]models.Order, error) {
	return nil, checkout.ErrDuplicatePayment
}

func (s *racingOrderStore) FindByPaymentID(context.Context, string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lookups++
	if s.lookups == 1 {
		return nil, nil
	}
	return s.winner, nil
}

func TestVerifySurvivesLostInsertRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)

	userID := primitive.NewObjectID()
	addressID := primitive.NewObjectID()
	session := paidSession(userID, addressID)

	winner := []models.Order{{OrderID: "ORD-winner", PaymentID: "pi_123", UserID: userID}}
	orders := &racingOrderStore{winner: winner}
	carts := &fakeCartStore{}
	co := checkout.NewCoordinator(gateway, orders, carts)

	gateway.EXPECT().RetrieveSession(gomock.Any(), "cs_test_1").Return(session, nil)
	gateway.EXPECT().ListLineItems(gomock.Any(), "cs_test_1").Return(sessionLineItems(), nil)

	got, already, err := co.Verify(context.Background(), "cs_test_1", userID)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !already {
		t.Fatal("losing the insert race must report already processed")
	}
	if len(got) != 1 || got[0].OrderID != "ORD-winner" {
		t.Fatalf("expected the winner's records, got %+v", got)
	}
	if carts.clearCount() != 1 {
		t.Fatalf("expected cart clear after lost race, got %d", carts.clearCount())
	}
}

func TestPlaceCashOnDeliveryMaterializesAndClearsCart(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)
	orders := newFakeOrderStore()
	carts := &fakeCartStore{}
	co := checkout.NewCoordinator(gateway, orders, carts)

	userID := primitive.NewObjectID()
	lines := []checkout.CartLine{
		{ProductID: primitive.NewObjectID(), Name: "Bananas", Price: 3, Quantity: 2},
	}

	got, err := co.PlaceCashOnDelivery(context.Background(), lines, userID, primitive.NewObjectID(), 6, 6)
	if err != nil {
		t.Fatalf("PlaceCashOnDelivery returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 order, got %d", len(got))
	}
	if got[0].PaymentID != "" || got[0].PaymentStatus != checkout.PaymentStatusCashOnDelivery {
		t.Fatalf("wrong payment fields: %+v", got[0])
	}
	if carts.clearCount() != 1 {
		t.Fatalf("expected 1 cart clear, got %d", carts.clearCount())
	}
}
