package billing

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

const (
	membershipName        = "Keystone Membership"
	membershipDescription = "Monthly gym membership with unlimited training sessions"
	donationName          = "Keystone Gym Donation"
	donationDescription   = "Support the next generation of martial artists"
)

type StripeGateway struct {
	api *client.API
}

// NewStripeGateway returns a gateway whose calls fail with ErrNotConfigured
// when secretKey is empty. backends may be nil.
func NewStripeGateway(secretKey string, backends *stripe.Backends) *StripeGateway {
	if secretKey == "" {
		return &StripeGateway{}
	}
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) ready() error {
	if g.api == nil {
		return ErrNotConfigured
	}
	return nil
}

func (g *StripeGateway) FindCustomer(ctx context.Context, email string) (*Customer, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := g.api.Customers.List(params)
	if iter.Next() {
		c := iter.Customer()
		return &Customer{ID: c.ID, Email: c.Email}, nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return nil, nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, userID string) (*Customer, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.AddMetadata(MetadataUserID, userID)

	c, err := g.api.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &Customer{ID: c.ID, Email: c.Email}, nil
}

func (g *StripeGateway) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}

	params := &stripe.CustomerParams{}
	params.Context = ctx

	c, err := g.api.Customers.Get(customerID, params)
	if err != nil {
		return "", fmt.Errorf("get customer %s: %w", customerID, err)
	}
	return c.Email, nil
}

func (g *StripeGateway) CreateSubscriptionCheckout(ctx context.Context, in SubscriptionCheckout) (*CheckoutSession, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(in.CustomerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(in.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(membershipName),
						Description: stripe.String(membershipDescription),
					},
					UnitAmount: stripe.Int64(in.PriceCents),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(in.Interval),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata(MetadataType, TypeSubscription)
	params.AddMetadata(MetadataUserEmail, in.Email)

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create subscription checkout: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL, ClientSecret: s.ClientSecret}, nil
}

func (g *StripeGateway) CreateDonationCheckout(ctx context.Context, in DonationCheckout) (*CheckoutSession, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(in.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(donationName),
						Description: stripe.String(donationDescription),
					},
					UnitAmount: stripe.Int64(in.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if in.Embedded {
		params.UIMode = stripe.String("embedded")
		params.ReturnURL = stripe.String(in.ReturnURL)
	} else {
		params.SuccessURL = stripe.String(in.SuccessURL)
		params.CancelURL = stripe.String(in.CancelURL)
	}
	params.Context = ctx
	params.AddMetadata(MetadataType, TypeDonation)
	params.AddMetadata(MetadataAmount, in.AmountLabel)

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create donation checkout: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL, ClientSecret: s.ClientSecret}, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return s.URL, nil
}

func (g *StripeGateway) SubscriptionPaymentMethod(ctx context.Context, subscriptionID string) (*PaymentMethod, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	params.AddExpand("default_payment_method")

	sub, err := g.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", subscriptionID, err)
	}

	pm := sub.DefaultPaymentMethod
	if pm == nil || pm.Type != stripe.PaymentMethodTypeCard || pm.Card == nil {
		return nil, nil
	}

	return &PaymentMethod{
		Brand:    string(pm.Card.Brand),
		Last4:    pm.Card.Last4,
		ExpMonth: pm.Card.ExpMonth,
		ExpYear:  pm.Card.ExpYear,
	}, nil
}
