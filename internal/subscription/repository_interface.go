package subscription

import "context"

type Repository interface {
	Upsert(ctx context.Context, s *Subscription) error
	MarkCancelled(ctx context.Context, stripeSubscriptionID string) error
	LatestForMember(ctx context.Context, memberID string) (*Subscription, error)
}
