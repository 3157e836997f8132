package events

import (
	"context"
	"time"

	"keystone/internal/logger"
	"keystone/internal/metrics"
)

const (
	SubscriptionSynced    = "subscription.synced"
	SubscriptionCancelled = "subscription.cancelled"
	DonationRecorded      = "donation.recorded"
	TrialRequested        = "trial.requested"
)

// Event is the envelope written to the broker.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

// Emit publishes without letting a broker failure reach the caller.
func Emit(ctx context.Context, p Publisher, routingKey string, data any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, routingKey, data); err != nil {
		metrics.RecordEventPublished(routingKey, "failed")
		logger.WithError(err).Warn("event publish failed", "routing_key", routingKey)
		return
	}
	metrics.RecordEventPublished(routingKey, "published")
}
