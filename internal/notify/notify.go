package notify

import (
	"context"
	"errors"
	"fmt"

	"keystone/internal/logger"
	"keystone/internal/metrics"
)

var ErrNotConfigured = errors.New("notify: channel is not configured")

// Channel delivers a text message to the gym owner.
type Channel interface {
	Name() string
	Send(ctx context.Context, message string) error
}

// Notifier tries each channel in order and stops at the first delivery.
type Notifier struct {
	channels []Channel
}

func New(channels ...Channel) *Notifier {
	var usable []Channel
	for _, ch := range channels {
		if ch != nil {
			usable = append(usable, ch)
		}
	}
	return &Notifier{channels: usable}
}

func (n *Notifier) NotifyOwner(ctx context.Context, message string) error {
	if len(n.channels) == 0 {
		return ErrNotConfigured
	}

	var errs []error
	for _, ch := range n.channels {
		if err := ch.Send(ctx, message); err != nil {
			metrics.RecordNotification(ch.Name(), "failed")
			logger.WithError(err).Warn("owner notification failed", "channel", ch.Name())
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		metrics.RecordNotification(ch.Name(), "sent")
		return nil
	}
	return errors.Join(errs...)
}
