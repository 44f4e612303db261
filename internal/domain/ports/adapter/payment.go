package adapter

import "context"

// CheckoutRequest describes one checkout intent for the payment provider.
type CheckoutRequest struct {
	CustomerID  string
	Amount      int64 // minor units
	Currency    string
	Description string
	// Metadata travels to the provider and comes back on settlement events.
	Metadata map[string]string
}

// CheckoutSession is the provider's answer: a session id (our idempotency
// key) and a hosted payment page URL.
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentGateway is the opaque "create a checkout intent, get notified when
// it settles" interface. Settlement arrives through the webhook, not here.
type PaymentGateway interface {
	EnsureCustomer(ctx context.Context, tgID int64, existingID string) (string, error)
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	Name() string
}
