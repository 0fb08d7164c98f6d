package checkout

import (
	"errors"
	"fmt"
)

// ErrDuplicatePayment is reported by OrderStore.InsertOrders when another
// writer already materialized orders for the same paymentId.
var ErrDuplicatePayment = errors.New("orders already exist for payment id")

// InvalidCartError marks a cart snapshot the user can correct: empty, or a
// line without a resolvable product id or price.
type InvalidCartError struct {
	Reason string
}

func (e InvalidCartError) Error() string {
	return "invalid cart: " + e.Reason
}

// GatewayError wraps a payment provider failure. Operations failing with it
// are safe to retry on the paid path.
type GatewayError struct {
	Op  string
	Err error
}

func (e GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %v", e.Op, e.Err)
}

func (e GatewayError) Unwrap() error {
	return e.Err
}

// NotFoundError means the provider does not know the session.
type NotFoundError struct {
	SessionID string
}

func (e NotFoundError) Error() string {
	return "checkout session not found: " + e.SessionID
}

// PaymentIncompleteError means the session exists but has not been paid
// yet; the client should re-poll or abandon.
type PaymentIncompleteError struct {
	PaymentStatus string
	Status        string
}

func (e PaymentIncompleteError) Error() string {
	return fmt.Sprintf("payment not completed (payment_status=%s, status=%s)", e.PaymentStatus, e.Status)
}

// AuthorizationError means the session belongs to a different user than the
// caller.
type AuthorizationError struct {
	SessionID string
}

func (e AuthorizationError) Error() string {
	return "session does not belong to the requesting user: " + e.SessionID
}

// SignatureError means a webhook payload failed authenticity verification.
type SignatureError struct {
	Err error
}

func (e SignatureError) Error() string {
	return fmt.Sprintf("webhook signature verification failed: %v", e.Err)
}

func (e SignatureError) Unwrap() error {
	return e.Err
}
