package webhook

import (
	"context"
	"fmt"

	"keystone/internal/donation"
	"keystone/internal/events"
	"keystone/internal/logger"
	"keystone/internal/member"
	"keystone/internal/subscription"
)

type CustomerEmails interface {
	CustomerEmail(ctx context.Context, customerID string) (string, error)
}

type Members interface {
	IDByEmail(ctx context.Context, email string) (string, error)
	SetSubscriptionStatus(ctx context.Context, email, status string) error
}

type Subscriptions interface {
	Upsert(ctx context.Context, s *subscription.Subscription) error
	MarkCancelled(ctx context.Context, stripeSubscriptionID string) error
}

type Donations interface {
	Record(ctx context.Context, d *donation.Donation) error
}

// Synchronizer applies verified billing events to the local rows.
// Deliveries are not serialized; the last write wins.
type Synchronizer struct {
	customers     CustomerEmails
	members       Members
	subscriptions Subscriptions
	donations     Donations
	publisher     events.Publisher
}

func NewSynchronizer(customers CustomerEmails, members Members, subscriptions Subscriptions, donations Donations, publisher events.Publisher) *Synchronizer {
	return &Synchronizer{
		customers:     customers,
		members:       members,
		subscriptions: subscriptions,
		donations:     donations,
		publisher:     publisher,
	}
}

// Apply reports whether anything was written.
func (s *Synchronizer) Apply(ctx context.Context, evt Event) (bool, error) {
	switch e := evt.(type) {
	case DonationCompleted:
		return true, s.recordDonation(ctx, e)
	case SubscriptionChanged:
		return s.syncSubscription(ctx, e)
	case SubscriptionDeleted:
		return true, s.cancelSubscription(ctx, e)
	case CheckoutCompleted, Unhandled:
		return false, nil
	}
	return false, fmt.Errorf("unknown event variant %T", evt)
}

func (s *Synchronizer) recordDonation(ctx context.Context, e DonationCompleted) error {
	d := &donation.Donation{
		Amount:          e.AmountCents,
		PaymentProvider: donation.ProviderStripe,
		PaymentID:       e.SessionID,
		Status:          donation.StatusCompleted,
	}
	if e.Email != "" {
		d.Email = &e.Email
	}
	return s.donations.Record(ctx, d)
}

func (s *Synchronizer) syncSubscription(ctx context.Context, e SubscriptionChanged) (bool, error) {
	email, err := s.customers.CustomerEmail(ctx, e.CustomerID)
	if err != nil {
		return false, fmt.Errorf("customer %s: %w", e.CustomerID, err)
	}
	if email == "" {
		logger.Warn("subscription customer has no email", "customer_id", e.CustomerID, "subscription_id", e.SubscriptionID)
		return false, nil
	}

	memberID, err := s.members.IDByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("member lookup: %w", err)
	}

	status := member.StatusInactive
	if e.Status == subscription.StatusActive {
		status = member.StatusActive
	}
	if err := s.members.SetSubscriptionStatus(ctx, email, status); err != nil {
		return false, fmt.Errorf("member status: %w", err)
	}

	row := &subscription.Subscription{
		StripeSubscriptionID: e.SubscriptionID,
		StripeCustomerID:     e.CustomerID,
		Status:               e.Status,
		CurrentPeriodStart:   &e.PeriodStart,
		CurrentPeriodEnd:     &e.PeriodEnd,
		PriceAmount:          e.UnitAmount,
	}
	if memberID != "" {
		row.MemberID = &memberID
	}
	if err := s.subscriptions.Upsert(ctx, row); err != nil {
		return false, fmt.Errorf("upsert subscription %s: %w", e.SubscriptionID, err)
	}

	events.Emit(ctx, s.publisher, events.SubscriptionSynced, map[string]any{
		"subscriptionId": e.SubscriptionID,
		"memberId":       memberID,
		"status":         e.Status,
	})
	return true, nil
}

// cancelSubscription leaves the member row alone; the status flip arrives
// with the preceding subscription update.
func (s *Synchronizer) cancelSubscription(ctx context.Context, e SubscriptionDeleted) error {
	if err := s.subscriptions.MarkCancelled(ctx, e.SubscriptionID); err != nil {
		return fmt.Errorf("cancel subscription %s: %w", e.SubscriptionID, err)
	}
	events.Emit(ctx, s.publisher, events.SubscriptionCancelled, map[string]any{
		"subscriptionId": e.SubscriptionID,
	})
	return nil
}
