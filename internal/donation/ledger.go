package donation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"keystone/internal/events"
	"keystone/internal/logger"
	"keystone/internal/metrics"
)

// Ledger records completed donations from either provider.
type Ledger struct {
	repo      Repository
	publisher events.Publisher
}

func NewLedger(repo Repository, publisher events.Publisher) *Ledger {
	return &Ledger{repo: repo, publisher: publisher}
}

// Record inserts the donation once per payment id. Replays are a no-op and
// do not count or publish again.
func (l *Ledger) Record(ctx context.Context, d *Donation) error {
	if d.Status == "" {
		d.Status = StatusCompleted
	}
	if d.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*d.Email))
		if email == "" {
			d.Email = nil
		} else {
			d.Email = &email
		}
	}

	inserted, err := l.repo.Insert(ctx, d)
	if err != nil {
		return fmt.Errorf("insert donation %s/%s: %w", d.PaymentProvider, d.PaymentID, err)
	}
	if !inserted {
		logger.Debug("donation already recorded", "provider", d.PaymentProvider, "payment_id", d.PaymentID)
		return nil
	}

	metrics.RecordDonation(d.PaymentProvider, d.Amount)
	events.Emit(ctx, l.publisher, events.DonationRecorded, d)
	logger.Info("donation recorded", "provider", d.PaymentProvider, "payment_id", d.PaymentID, "amount", d.Amount)
	return nil
}

// Cents converts a whole-unit amount, rounding half away from zero.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
