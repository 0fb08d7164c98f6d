package checkout

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment status values recorded on orders.
const (
	PaymentStatusCashOnDelivery = "CASH ON DELIVERY"
	PaymentStatusPaid           = "paid"
)

// Checkout session state values reported by the provider.
const (
	SessionStatusComplete = "complete"
)

// EventCheckoutSessionCompleted is the only webhook event type that drives
// order materialization; every other type is acknowledged and ignored.
const EventCheckoutSessionCompleted = "checkout.session.completed"

// Metadata keys attached to a checkout session at creation and read back
// during reconciliation.
const (
	MetadataUserID    = "userId"
	MetadataAddressID = "addressId"
)

// CartLine is one product+quantity entry of a cart snapshot, carrying the
// denormalized product fields needed to build a checkout line item or an
// order record.
type CartLine struct {
	ProductID primitive.ObjectID
	Name      string
	Image     []string
	Price     float64
	Discount  float64
	Quantity  int64
}

// CreateSessionInput is everything a hosted checkout session is built from.
type CreateSessionInput struct {
	Lines     []CartLine
	UserEmail string
	UserID    string
	AddressID string
}

// SessionHandle identifies a freshly created hosted checkout session; URL
// is the redirect target for the client.
type SessionHandle struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SessionState is the provider-reported state of a checkout session.
type SessionState struct {
	ID              string
	PaymentIntentID string
	PaymentStatus   string
	Status          string
	Metadata        map[string]string
}

// SessionLineItem is one purchased line of a completed session. ProductID
// round-trips through the line item's product metadata; the provider is a
// pass-through store for it, not the catalog.
type SessionLineItem struct {
	ProductID   string
	Name        string
	Image       []string
	AmountTotal int64 // minor currency units for the whole line
	Quantity    int64
}

// WebhookEvent is a parsed provider webhook delivery. Session is populated
// only for checkout.session.completed events.
type WebhookEvent struct {
	Type    string
	Session *SessionState
}

//go:generate mockgen -source=gateway.go -destination=mocks/gateway.go -package=mocks

// Gateway wraps the external payment provider. It is injected into the
// Coordinator so tests can substitute a fake.
type Gateway interface {
	// CreateCheckoutSession builds one line item per cart line at the
	// discounted unit price and attaches user/address attribution metadata.
	CreateCheckoutSession(ctx context.Context, in CreateSessionInput) (*SessionHandle, error)
	// RetrieveSession fetches current session state by id.
	RetrieveSession(ctx context.Context, sessionID string) (*SessionState, error)
	// ListLineItems enumerates the purchased items of a session.
	ListLineItems(ctx context.Context, sessionID string) ([]SessionLineItem, error)
	// ParseWebhookEvent verifies and decodes a raw webhook delivery.
	ParseWebhookEvent(payload []byte, signature string) (*WebhookEvent, error)
}
