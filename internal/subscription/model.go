package subscription

import (
	"time"

	"keystone/internal/billing"

	"github.com/lib/pq"
)

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"

	DefaultPlanName = "Keystone Membership"
)

var DefaultPlanFeatures = []string{
	"Unlimited training sessions",
	"Access to all disciplines",
	"Train with real coaches",
	"Part of the brotherhood",
}

// Subscription mirrors the billing provider's subscription. MemberID is nil
// when no member matched the customer email at sync time.
type Subscription struct {
	ID                   int            `db:"id" json:"id"`
	MemberID             *string        `db:"member_id" json:"memberId,omitempty"`
	StripeSubscriptionID string         `db:"stripe_subscription_id" json:"stripeSubscriptionId"`
	StripeCustomerID     string         `db:"stripe_customer_id" json:"stripeCustomerId"`
	Status               string         `db:"status" json:"status"`
	CurrentPeriodStart   *time.Time     `db:"current_period_start" json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd     *time.Time     `db:"current_period_end" json:"currentPeriodEnd,omitempty"`
	PriceAmount          int64          `db:"price_amount" json:"priceAmount"`
	PlanName             *string        `db:"plan_name" json:"planName,omitempty"`
	PlanFeatures         pq.StringArray `db:"plan_features" json:"planFeatures,omitempty"`
	CreatedAt            time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updatedAt"`
}

// View is what the member area renders: the member's status plus the plan,
// with defaults filled in when no subscription row carries them.
type View struct {
	Status             string     `json:"status" example:"active"`
	IsActive           bool       `json:"isActive"`
	HasSubscription    bool       `json:"hasSubscription"`
	PlanName           string     `json:"planName" example:"Keystone Membership"`
	PriceAmount        int64      `json:"priceAmount" example:"10000"`
	Currency           string     `json:"currency" example:"cad"`
	Interval           string     `json:"interval" example:"month"`
	Features           []string   `json:"features"`
	CurrentPeriodStart *time.Time `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"currentPeriodEnd,omitempty"`
}

type PaymentMethodResponse struct {
	PaymentMethod *billing.PaymentMethod `json:"paymentMethod"`
}
