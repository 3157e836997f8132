package billing

import (
	"context"
	"errors"

	stripe "github.com/stripe/stripe-go/v76"
)

var (
	ErrNotConfigured        = errors.New("billing: stripe secret key is not set")
	ErrWebhookNotConfigured = errors.New("billing: webhook signing secret is not set")
	ErrInvalidSignature     = errors.New("billing: invalid webhook signature")
)

const (
	MetadataType      = "type"
	TypeSubscription  = "subscription"
	TypeDonation      = "donation"
	MetadataUserID    = "user_id"
	MetadataUserEmail = "user_email"
	MetadataAmount    = "amount"
)

type Customer struct {
	ID    string
	Email string
}

// SubscriptionCheckout describes the recurring membership line item.
type SubscriptionCheckout struct {
	CustomerID string
	Email      string
	PriceCents int64
	Interval   string
	Currency   string
	SuccessURL string
	CancelURL  string
}

// DonationCheckout describes a one-off payment. Embedded sessions use
// ReturnURL; hosted sessions use SuccessURL and CancelURL.
type DonationCheckout struct {
	AmountCents int64
	AmountLabel string
	Currency    string
	Embedded    bool
	SuccessURL  string
	CancelURL   string
	ReturnURL   string
}

type CheckoutSession struct {
	ID           string
	URL          string
	ClientSecret string
}

type PaymentMethod struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int64  `json:"expMonth"`
	ExpYear  int64  `json:"expYear"`
}

// Gateway is the card payment collaborator.
type Gateway interface {
	// FindCustomer returns nil without error when no customer has the email.
	FindCustomer(ctx context.Context, email string) (*Customer, error)
	CreateCustomer(ctx context.Context, email, userID string) (*Customer, error)
	CustomerEmail(ctx context.Context, customerID string) (string, error)
	CreateSubscriptionCheckout(ctx context.Context, in SubscriptionCheckout) (*CheckoutSession, error)
	CreateDonationCheckout(ctx context.Context, in DonationCheckout) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	// SubscriptionPaymentMethod returns nil when the default method is not a card.
	SubscriptionPaymentMethod(ctx context.Context, subscriptionID string) (*PaymentMethod, error)
}

// EventVerifier checks a webhook signature and decodes the envelope.
type EventVerifier interface {
	Verify(payload []byte, signature string) (stripe.Event, error)
}
