package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func sign(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeVerifier(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"customer.subscription.deleted","api_version":"2020-08-27","data":{"object":{"id":"sub_1"}}}`)

	t.Run("valid signature", func(t *testing.T) {
		event, err := NewStripeVerifier(testSecret).Verify(payload, sign(payload, testSecret, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, "customer.subscription.deleted", string(event.Type))
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewStripeVerifier(testSecret).Verify(payload, sign(payload, "whsec_other", time.Now()))
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		_, err := NewStripeVerifier(testSecret).Verify(payload, sign(payload, testSecret, time.Now().Add(-time.Hour)))
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("no secret", func(t *testing.T) {
		_, err := NewStripeVerifier("").Verify(payload, sign(payload, testSecret, time.Now()))
		assert.ErrorIs(t, err, ErrWebhookNotConfigured)
	})
}

func TestStripeGateway_NotConfigured(t *testing.T) {
	g := NewStripeGateway("", nil)
	ctx := context.Background()

	_, err := g.FindCustomer(ctx, "jo@example.com")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = g.CreateDonationCheckout(ctx, DonationCheckout{AmountCents: 500})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = g.CreatePortalSession(ctx, "cus_1", "http://localhost/dashboard/subscription")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func newTestGateway(t *testing.T, handler http.HandlerFunc) *StripeGateway {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	return NewStripeGateway("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
}

func TestStripeGateway_FindCustomer(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/customers", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("email") == "jo@example.com" {
			fmt.Fprint(w, `{"object":"list","url":"/v1/customers","has_more":false,"data":[{"id":"cus_1","object":"customer","email":"jo@example.com"}]}`)
			return
		}
		fmt.Fprint(w, `{"object":"list","url":"/v1/customers","has_more":false,"data":[]}`)
	})

	c, err := g.FindCustomer(context.Background(), "jo@example.com")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "cus_1", c.ID)

	c, err = g.FindCustomer(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestStripeGateway_CreateSubscriptionCheckout(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "subscription", r.PostForm.Get("mode"))
		assert.Equal(t, "cus_1", r.PostForm.Get("customer"))
		assert.Equal(t, "10000", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "month", r.PostForm.Get("line_items[0][price_data][recurring][interval]"))
		assert.Equal(t, "subscription", r.PostForm.Get("metadata[type]"))
		assert.Equal(t, "jo@example.com", r.PostForm.Get("metadata[user_email]"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_1"}`)
	})

	s, err := g.CreateSubscriptionCheckout(context.Background(), SubscriptionCheckout{
		CustomerID: "cus_1",
		Email:      "jo@example.com",
		PriceCents: 10000,
		Interval:   "month",
		Currency:   "cad",
		SuccessURL: "http://localhost/dashboard/subscription?success=true",
		CancelURL:  "http://localhost/dashboard/subscription?cancelled=true",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_1", s.URL)
}

func TestStripeGateway_EmbeddedDonation(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "embedded", r.PostForm.Get("ui_mode"))
		assert.Equal(t, "2550", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "donation", r.PostForm.Get("metadata[type]"))
		assert.Empty(t, r.PostForm.Get("success_url"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_2","object":"checkout.session","client_secret":"cs_2_secret"}`)
	})

	s, err := g.CreateDonationCheckout(context.Background(), DonationCheckout{
		AmountCents: 2550,
		AmountLabel: "25.5",
		Currency:    "cad",
		Embedded:    true,
		ReturnURL:   "http://localhost/?donation=success",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_2_secret", s.ClientSecret)
}

func TestStripeGateway_SubscriptionPaymentMethod(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *PaymentMethod
	}{
		{
			name: "card",
			body: `{"id":"sub_1","object":"subscription","default_payment_method":{"id":"pm_1","object":"payment_method","type":"card","card":{"brand":"visa","last4":"4242","exp_month":12,"exp_year":2030}}}`,
			want: &PaymentMethod{Brand: "visa", Last4: "4242", ExpMonth: 12, ExpYear: 2030},
		},
		{
			name: "non-card method",
			body: `{"id":"sub_1","object":"subscription","default_payment_method":{"id":"pm_2","object":"payment_method","type":"acss_debit"}}`,
		},
		{
			name: "no default method",
			body: `{"id":"sub_1","object":"subscription","default_payment_method":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/subscriptions/sub_1", r.URL.Path)
				assert.Contains(t, r.URL.RawQuery, "default_payment_method")
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, tt.body)
			})

			pm, err := g.SubscriptionPaymentMethod(context.Background(), "sub_1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, pm)
		})
	}
}
