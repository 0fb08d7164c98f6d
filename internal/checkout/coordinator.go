package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"freshcart-backend/internal/models"
)

// CartStore clears a user's cart after an order materializes. Clearing an
// already-empty cart must be a no-op so the operation can run again when
// two completion triggers race.
type CartStore interface {
	ClearCart(ctx context.Context, userID primitive.ObjectID) error
}

// Coordinator drives order completion for both payment paths. A paid
// session can be completed twice concurrently (the client verifying after
// redirect while the provider webhook is still in flight); the paymentId
// lookup is only the fast path — the storage layer's unique paymentId
// index is what makes the outcome single-shot.
type Coordinator struct {
	gateway      Gateway
	materializer *Materializer
	orders       OrderStore
	carts        CartStore
}

func NewCoordinator(gateway Gateway, orders OrderStore, carts CartStore) *Coordinator {
	return &Coordinator{
		gateway:      gateway,
		materializer: NewMaterializer(orders),
		orders:       orders,
		carts:        carts,
	}
}

// StartCheckout creates a hosted checkout session for the cart snapshot.
func (co *Coordinator) StartCheckout(ctx context.Context, lines []CartLine, userEmail string, userID, addressID primitive.ObjectID) (*SessionHandle, error) {
	return co.gateway.CreateCheckoutSession(ctx, CreateSessionInput{
		Lines:     lines,
		UserEmail: userEmail,
		UserID:    userID.Hex(),
		AddressID: addressID.Hex(),
	})
}

// PlaceCashOnDelivery materializes a client-submitted cart directly and
// clears the cart. Every call creates a new order set; there is no
// idempotency key on this path.
func (co *Coordinator) PlaceCashOnDelivery(ctx context.Context, lines []CartLine, userID, addressID primitive.ObjectID, subTotalAmt, totalAmt float64) ([]models.Order, error) {
	orders, err := co.materializer.MaterializeCart(ctx, lines, userID, addressID, "", PaymentStatusCashOnDelivery, subTotalAmt, totalAmt)
	if err != nil {
		return nil, err
	}

	if err := co.carts.ClearCart(ctx, userID); err != nil {
		log.Println("[ORDER] [ERROR] cart clear after COD order failed:", err)
	}
	return orders, nil
}

// Verify completes a checkout session on behalf of the client redirected
// back from the provider. alreadyProcessed reports that a previous
// completion (either trigger) materialized the orders first.
func (co *Coordinator) Verify(ctx context.Context, sessionID string, userID primitive.ObjectID) (orders []models.Order, alreadyProcessed bool, err error) {
	session, err := co.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}

	if session.PaymentStatus != PaymentStatusPaid || session.Status != SessionStatusComplete {
		return nil, false, PaymentIncompleteError{
			PaymentStatus: session.PaymentStatus,
			Status:        session.Status,
		}
	}
	if session.Metadata[MetadataUserID] != userID.Hex() {
		return nil, false, AuthorizationError{SessionID: sessionID}
	}

	return co.complete(ctx, session)
}

// HandleWebhookEvent processes a raw provider webhook delivery. Only
// signature and payload decode failures are returned; once an event is
// parsed the caller must acknowledge the delivery, so completion failures
// are logged instead of surfaced and the provider does not retry-storm.
func (co *Coordinator) HandleWebhookEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := co.gateway.ParseWebhookEvent(payload, signature)
	if err != nil {
		return err
	}

	if event.Type != EventCheckoutSessionCompleted || event.Session == nil {
		log.Printf("[WEBHOOK] [INFO] ignoring event type %q", event.Type)
		return nil
	}

	orders, already, err := co.complete(ctx, event.Session)
	switch {
	case err != nil:
		log.Println("[WEBHOOK] [ERROR] completing session", event.Session.ID, "failed:", err)
	case already:
		log.Println("[WEBHOOK] [INFO] session already processed:", event.Session.ID)
	default:
		log.Println("[WEBHOOK] [INFO] orders created:", len(orders), "for session:", event.Session.ID)
	}
	return nil
}

// complete is the check-then-act sequence both triggers converge on, keyed
// on the session's payment intent.
func (co *Coordinator) complete(ctx context.Context, session *SessionState) ([]models.Order, bool, error) {
	if session.PaymentIntentID == "" {
		return nil, false, fmt.Errorf("session %s has no payment intent", session.ID)
	}

	userID, err := primitive.ObjectIDFromHex(session.Metadata[MetadataUserID])
	if err != nil {
		return nil, false, fmt.Errorf("session %s carries invalid userId metadata: %w", session.ID, err)
	}
	addressID, err := primitive.ObjectIDFromHex(session.Metadata[MetadataAddressID])
	if err != nil {
		return nil, false, fmt.Errorf("session %s carries invalid addressId metadata: %w", session.ID, err)
	}

	existing, err := co.orders.FindByPaymentID(ctx, session.PaymentIntentID)
	if err != nil {
		return nil, false, err
	}
	if len(existing) > 0 {
		co.clearCart(ctx, userID)
		return existing, true, nil
	}

	items, err := co.gateway.ListLineItems(ctx, session.ID)
	if err != nil {
		return nil, false, err
	}

	orders, err := co.materializer.MaterializeSession(ctx, items, userID, addressID, session.PaymentIntentID, session.PaymentStatus)
	if errors.Is(err, ErrDuplicatePayment) {
		// The other trigger won the insert race between our lookup and the
		// batch insert; return its records.
		existing, findErr := co.orders.FindByPaymentID(ctx, session.PaymentIntentID)
		if findErr != nil {
			return nil, false, findErr
		}
		co.clearCart(ctx, userID)
		return existing, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	co.clearCart(ctx, userID)
	return orders, false, nil
}

// clearCart runs after a successful (or already-won) materialization. A
// failure here leaves the orders in place and the cart clearable by the
// other trigger, so it is logged rather than propagated.
func (co *Coordinator) clearCart(ctx context.Context, userID primitive.ObjectID) {
	if err := co.carts.ClearCart(ctx, userID); err != nil {
		log.Printf("[ORDER] [ERROR] cart clear failed for user %s: %v", userID.Hex(), err)
	}
}
