package subscription

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Upsert is keyed on stripe_subscription_id. Plan name and features are
// kept when the incoming row carries none.
func (r *repository) Upsert(ctx context.Context, s *Subscription) error {
	query := `
		INSERT INTO subscriptions (
			member_id, stripe_subscription_id, stripe_customer_id, status,
			current_period_start, current_period_end, price_amount, plan_name, plan_features
		)
		VALUES (
			:member_id, :stripe_subscription_id, :stripe_customer_id, :status,
			:current_period_start, :current_period_end, :price_amount, :plan_name, :plan_features
		)
		ON CONFLICT (stripe_subscription_id) DO UPDATE SET
			member_id = EXCLUDED.member_id,
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			status = EXCLUDED.status,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			price_amount = EXCLUDED.price_amount,
			plan_name = COALESCE(EXCLUDED.plan_name, subscriptions.plan_name),
			plan_features = COALESCE(EXCLUDED.plan_features, subscriptions.plan_features),
			updated_at = NOW()
	`

	_, err := r.db.NamedExecContext(ctx, query, s)
	return err
}

func (r *repository) MarkCancelled(ctx context.Context, stripeSubscriptionID string) error {
	query := `
		UPDATE subscriptions
		SET status = 'cancelled', updated_at = NOW()
		WHERE stripe_subscription_id = $1
	`

	_, err := r.db.ExecContext(ctx, query, stripeSubscriptionID)
	return err
}

// LatestForMember returns nil without error when the member has no row.
func (r *repository) LatestForMember(ctx context.Context, memberID string) (*Subscription, error) {
	query := `
		SELECT id, member_id, stripe_subscription_id, stripe_customer_id, status,
		       current_period_start, current_period_end, price_amount, plan_name, plan_features,
		       created_at, updated_at
		FROM subscriptions
		WHERE member_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var s Subscription
	if err := r.db.GetContext(ctx, &s, query, memberID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
