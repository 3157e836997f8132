package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keystone_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keystone_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keystone_webhook_events_total",
			Help: "Billing webhook deliveries by event kind and outcome",
		},
		[]string{"type", "outcome"},
	)

	CheckoutSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keystone_checkout_sessions_total",
			Help: "Checkout and portal sessions created",
		},
		[]string{"kind", "status"},
	)

	DonationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keystone_donations_total",
			Help: "Donations recorded in the ledger",
		},
		[]string{"provider"},
	)

	DonationAmountCents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keystone_donation_amount_cents_total",
			Help: "Sum of recorded donation amounts in cents",
		},
		[]string{"provider"},
	)

	TrialRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keystone_trial_requests_total",
			Help: "Trial requests received",
		},
		[]string{"status"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keystone_notifications_total",
			Help: "Owner notifications by channel and status",
		},
		[]string{"channel", "status"},
	)

	GatekeeperRedirectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keystone_gatekeeper_redirects_total",
			Help: "Redirects issued by the page gatekeeper",
		},
		[]string{"reason"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keystone_bookings_total",
			Help: "Total number of bookings",
		},
		[]string{"status"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keystone_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"backend"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keystone_events_published_total",
			Help: "Domain events handed to the broker",
		},
		[]string{"routing_key", "status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordWebhookEvent(eventType, outcome string) {
	WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func RecordCheckoutSession(kind, status string) {
	CheckoutSessionsTotal.WithLabelValues(kind, status).Inc()
}

func RecordDonation(provider string, amountCents int64) {
	DonationsTotal.WithLabelValues(provider).Inc()
	DonationAmountCents.WithLabelValues(provider).Add(float64(amountCents))
}

func RecordTrialRequest(status string) {
	TrialRequestsTotal.WithLabelValues(status).Inc()
}

func RecordNotification(channel, status string) {
	NotificationsTotal.WithLabelValues(channel, status).Inc()
}

func RecordRedirect(reason string) {
	GatekeeperRedirectsTotal.WithLabelValues(reason).Inc()
}

func RecordBooking(status string) {
	BookingsTotal.WithLabelValues(status).Inc()
}

func RecordRateLimited(backend string) {
	RateLimitedTotal.WithLabelValues(backend).Inc()
}

func RecordEventPublished(routingKey, status string) {
	EventsPublishedTotal.WithLabelValues(routingKey, status).Inc()
}
