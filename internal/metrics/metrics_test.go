package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("GET", "/api/bookings", "200", 0.5)

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/bookings", "200"))
	assert.Equal(t, float64(1), count)
	assert.Equal(t, 1, testutil.CollectAndCount(HTTPRequestDuration))
}

func TestRecordHTTPRequestMultiple(t *testing.T) {
	HTTPRequestsTotal.Reset()

	RecordHTTPRequest("POST", "/api/auth/login", "200", 0.1)
	RecordHTTPRequest("POST", "/api/auth/login", "200", 0.2)
	RecordHTTPRequest("POST", "/api/auth/login", "401", 0.05)

	assert.Equal(t, float64(2), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/auth/login", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/auth/login", "401")))
}

func TestRecordWebhookEvent(t *testing.T) {
	WebhookEventsTotal.Reset()

	RecordWebhookEvent("customer.subscription.updated", "applied")
	RecordWebhookEvent("customer.subscription.updated", "applied")
	RecordWebhookEvent("invoice.paid", "ignored")

	assert.Equal(t, float64(2), testutil.ToFloat64(WebhookEventsTotal.WithLabelValues("customer.subscription.updated", "applied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(WebhookEventsTotal.WithLabelValues("invoice.paid", "ignored")))
}

func TestRecordDonation(t *testing.T) {
	DonationsTotal.Reset()
	DonationAmountCents.Reset()

	RecordDonation("stripe", 2500)
	RecordDonation("stripe", 1000)
	RecordDonation("paypal", 500)

	assert.Equal(t, float64(2), testutil.ToFloat64(DonationsTotal.WithLabelValues("stripe")))
	assert.Equal(t, float64(3500), testutil.ToFloat64(DonationAmountCents.WithLabelValues("stripe")))
	assert.Equal(t, float64(500), testutil.ToFloat64(DonationAmountCents.WithLabelValues("paypal")))
}

func TestRecordNotification(t *testing.T) {
	NotificationsTotal.Reset()

	RecordNotification("whatsapp", "failed")
	RecordNotification("sms", "sent")

	assert.Equal(t, float64(1), testutil.ToFloat64(NotificationsTotal.WithLabelValues("whatsapp", "failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(NotificationsTotal.WithLabelValues("sms", "sent")))
}

func TestRecordCountersSimple(t *testing.T) {
	CheckoutSessionsTotal.Reset()
	TrialRequestsTotal.Reset()
	GatekeeperRedirectsTotal.Reset()
	BookingsTotal.Reset()
	RateLimitedTotal.Reset()
	EventsPublishedTotal.Reset()

	RecordCheckoutSession("subscription", "created")
	RecordTrialRequest("received")
	RecordRedirect("login_required")
	RecordBooking("booked")
	RecordRateLimited("redis")
	RecordEventPublished("donation.recorded", "ok")

	assert.Equal(t, float64(1), testutil.ToFloat64(CheckoutSessionsTotal.WithLabelValues("subscription", "created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(TrialRequestsTotal.WithLabelValues("received")))
	assert.Equal(t, float64(1), testutil.ToFloat64(GatekeeperRedirectsTotal.WithLabelValues("login_required")))
	assert.Equal(t, float64(1), testutil.ToFloat64(BookingsTotal.WithLabelValues("booked")))
	assert.Equal(t, float64(1), testutil.ToFloat64(RateLimitedTotal.WithLabelValues("redis")))
	assert.Equal(t, float64(1), testutil.ToFloat64(EventsPublishedTotal.WithLabelValues("donation.recorded", "ok")))
}
