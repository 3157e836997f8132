package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"keystone/internal/billing"

	stripe "github.com/stripe/stripe-go/v76"
)

const (
	typeCheckoutCompleted   = "checkout.session.completed"
	typeSubscriptionCreated = "customer.subscription.created"
	typeSubscriptionUpdated = "customer.subscription.updated"
	typeSubscriptionDeleted = "customer.subscription.deleted"
)

// Event is one of DonationCompleted, CheckoutCompleted, SubscriptionChanged,
// SubscriptionDeleted or Unhandled.
type Event interface {
	eventType() string
}

type DonationCompleted struct {
	SessionID   string
	AmountCents int64
	Email       string
}

// CheckoutCompleted is a finished checkout that is not a donation. Nothing
// is written for it; the subscription events carry the state.
type CheckoutCompleted struct {
	SessionID string
}

type SubscriptionChanged struct {
	Type           string
	SubscriptionID string
	CustomerID     string
	Status         string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	UnitAmount     int64
}

type SubscriptionDeleted struct {
	SubscriptionID string
}

type Unhandled struct {
	Type string
}

func (DonationCompleted) eventType() string     { return typeCheckoutCompleted }
func (CheckoutCompleted) eventType() string     { return typeCheckoutCompleted }
func (e SubscriptionChanged) eventType() string { return e.Type }
func (SubscriptionDeleted) eventType() string   { return typeSubscriptionDeleted }
func (e Unhandled) eventType() string           { return e.Type }

// Decode maps a verified envelope onto its variant. The type string must
// match exactly.
func Decode(evt stripe.Event) (Event, error) {
	eventType := string(evt.Type)
	if evt.Data == nil {
		return Unhandled{Type: eventType}, nil
	}

	switch eventType {
	case typeCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		if s.Metadata[billing.MetadataType] != billing.TypeDonation {
			return CheckoutCompleted{SessionID: s.ID}, nil
		}
		email := s.CustomerEmail
		if email == "" && s.CustomerDetails != nil {
			email = s.CustomerDetails.Email
		}
		return DonationCompleted{SessionID: s.ID, AmountCents: s.AmountTotal, Email: email}, nil

	case typeSubscriptionCreated, typeSubscriptionUpdated:
		var s stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		changed := SubscriptionChanged{
			Type:           eventType,
			SubscriptionID: s.ID,
			Status:         string(s.Status),
			PeriodStart:    time.Unix(s.CurrentPeriodStart, 0).UTC(),
			PeriodEnd:      time.Unix(s.CurrentPeriodEnd, 0).UTC(),
		}
		if s.Customer != nil {
			changed.CustomerID = s.Customer.ID
		}
		if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
			changed.UnitAmount = s.Items.Data[0].Price.UnitAmount
		}
		return changed, nil

	case typeSubscriptionDeleted:
		var s stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return SubscriptionDeleted{SubscriptionID: s.ID}, nil
	}

	return Unhandled{Type: eventType}, nil
}
