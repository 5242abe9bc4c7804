// Package billing talks to the external payment processor: customer records,
// hosted checkout sessions and signed webhook events.
package billing

import "context"

// Customer is a processor-side customer record.
type Customer struct {
	ID string `json:"id"`
}

// CheckoutSession is a processor-hosted payment page.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// LineItem is one purchasable entry on a checkout session. Either PriceID or
// the ad hoc product fields are set, never both.
type LineItem struct {
	PriceID     string
	ProductName string
	Currency    string
	UnitAmount  int64
	Quantity    int64
}

// CheckoutParams describes a checkout session to create.
type CheckoutParams struct {
	Mode              string // "subscription" or "payment"
	CustomerID        string
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	LineItems         []LineItem
	Metadata          map[string]string
}

// Checkout modes.
const (
	ModeSubscription = "subscription"
	ModePayment      = "payment"
)

// Gateway is the injected processor client. Implementations must be safe for
// concurrent use.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (Customer, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (CheckoutSession, error)
}

// Event is a verified webhook payload from the processor.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object EventObject `json:"object"`
	} `json:"data"`
}

// EventObject is the checkout session or subscription carried by an event.
type EventObject struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id,omitempty"`
	Subscription      string            `json:"subscription,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// Webhook event types this core reacts to.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionCreated = "customer.subscription.created"
)
