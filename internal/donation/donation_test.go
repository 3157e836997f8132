package donation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"keystone/internal/billing"
	"keystone/internal/events"
	"keystone/internal/metrics"
	"keystone/internal/paypal"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCheckout struct{ mock.Mock }

func (m *MockCheckout) CreateDonationCheckout(ctx context.Context, in billing.DonationCheckout) (*billing.CheckoutSession, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutSession), args.Error(1)
}

type MockOrders struct{ mock.Mock }

func (m *MockOrders) CreateOrder(ctx context.Context, value, currency, description string) (*paypal.Order, error) {
	args := m.Called(ctx, value, currency, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Order), args.Error(1)
}

func (m *MockOrders) CaptureOrder(ctx context.Context, orderID string) (*paypal.Capture, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Capture), args.Error(1)
}

type MockRecorder struct{ mock.Mock }

func (m *MockRecorder) Record(ctx context.Context, d *Donation) error {
	return m.Called(ctx, d).Error(0)
}

type MockRepo struct{ mock.Mock }

func (m *MockRepo) Insert(ctx context.Context, d *Donation) (bool, error) {
	args := m.Called(ctx, d)
	return args.Bool(0), args.Error(1)
}

type recordingPublisher struct{ keys []string }

func (p *recordingPublisher) Publish(_ context.Context, key string, _ any) error {
	p.keys = append(p.keys, key)
	return nil
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/donations/stripe", h.Stripe)
	r.POST("/api/donations/paypal", h.PayPalOrder)
	r.POST("/api/donations/paypal/capture", h.PayPalCapture)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Host = "keystone.test"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStripe_RejectsInvalidAmounts(t *testing.T) {
	for _, body := range []string{`{}`, `{"amount":0}`, `{"amount":0.5}`, `{"amount":-3}`, `{"amount":1000000}`, `{"amount":1e17}`, `not json`} {
		t.Run(body, func(t *testing.T) {
			gw := new(MockCheckout)
			w := post(newRouter(NewHandler(new(MockRecorder), gw, new(MockOrders), "cad", "")), "/api/donations/stripe", body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"Invalid amount"}`, w.Body.String())
			gw.AssertNotCalled(t, "CreateDonationCheckout", mock.Anything, mock.Anything)
		})
	}
}

func TestStripe_Hosted(t *testing.T) {
	gw := new(MockCheckout)
	gw.On("CreateDonationCheckout", mock.Anything, billing.DonationCheckout{
		AmountCents: 2550,
		AmountLabel: "25.5",
		Currency:    "cad",
		SuccessURL:  "http://keystone.test/?donation=success",
		CancelURL:   "http://keystone.test/?donation=cancelled",
		ReturnURL:   "http://keystone.test/?donation=success&session_id={CHECKOUT_SESSION_ID}",
	}).Return(&billing.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/pay/cs_1"}, nil)

	w := post(newRouter(NewHandler(new(MockRecorder), gw, new(MockOrders), "CAD", "")), "/api/donations/stripe", `{"amount":25.5}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url":"https://checkout.stripe.com/c/pay/cs_1"}`, w.Body.String())
	gw.AssertExpectations(t)
}

func TestStripe_Embedded(t *testing.T) {
	gw := new(MockCheckout)
	gw.On("CreateDonationCheckout", mock.Anything, mock.MatchedBy(func(in billing.DonationCheckout) bool {
		return in.Embedded && in.AmountCents == 1000
	})).Return(&billing.CheckoutSession{ID: "cs_2", ClientSecret: "cs_2_secret"}, nil)

	w := post(newRouter(NewHandler(new(MockRecorder), gw, new(MockOrders), "cad", "")), "/api/donations/stripe", `{"amount":10,"embedded":true}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"clientSecret":"cs_2_secret"}`, w.Body.String())
}

func TestStripe_GatewayFailure(t *testing.T) {
	gw := new(MockCheckout)
	gw.On("CreateDonationCheckout", mock.Anything, mock.Anything).Return(nil, billing.ErrNotConfigured)

	before := testutil.ToFloat64(metrics.CheckoutSessionsTotal.WithLabelValues(billing.TypeDonation, "failed"))
	w := post(newRouter(NewHandler(new(MockRecorder), gw, new(MockOrders), "cad", "")), "/api/donations/stripe", `{"amount":10}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to create checkout session"}`, w.Body.String())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.CheckoutSessionsTotal.WithLabelValues(billing.TypeDonation, "failed")))
}

func TestPayPalOrder(t *testing.T) {
	t.Run("invalid amount", func(t *testing.T) {
		for _, body := range []string{`{"amount":0}`, `{"amount":1e17}`} {
			orders := new(MockOrders)
			w := post(newRouter(NewHandler(new(MockRecorder), new(MockCheckout), orders, "cad", "")), "/api/donations/paypal", body)

			assert.Equal(t, http.StatusBadRequest, w.Code, body)
			orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		}
	})

	t.Run("created", func(t *testing.T) {
		orders := new(MockOrders)
		orders.On("CreateOrder", mock.Anything, "25.00", "CAD", "Keystone Gym Donation").
			Return(&paypal.Order{ID: "ORDER1", Status: "CREATED"}, nil)

		w := post(newRouter(NewHandler(new(MockRecorder), new(MockCheckout), orders, "cad", "")), "/api/donations/paypal", `{"amount":25}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"orderId":"ORDER1"}`, w.Body.String())
	})

	t.Run("provider rejection keeps status", func(t *testing.T) {
		orders := new(MockOrders)
		orders.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &paypal.APIError{Status: http.StatusUnprocessableEntity, Message: "Amount is invalid"})

		w := post(newRouter(NewHandler(new(MockRecorder), new(MockCheckout), orders, "cad", "")), "/api/donations/paypal", `{"amount":25}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.JSONEq(t, `{"error":"Amount is invalid"}`, w.Body.String())
	})

	t.Run("not configured", func(t *testing.T) {
		orders := new(MockOrders)
		orders.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, paypal.ErrNotConfigured)

		w := post(newRouter(NewHandler(new(MockRecorder), new(MockCheckout), orders, "cad", "")), "/api/donations/paypal", `{"amount":25}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Failed to create PayPal order"}`, w.Body.String())
	})
}

func completedCapture(t *testing.T) *paypal.Capture {
	raw := []byte(`{"id":"ORDER1","status":"COMPLETED","payer":{"email_address":"Donor@Example.com"},
		"purchase_units":[{"payments":{"captures":[{"amount":{"currency_code":"CAD","value":"25.50"}}]}}]}`)
	var c paypal.Capture
	require.NoError(t, json.Unmarshal(raw, &c))
	c.Raw = raw
	return &c
}

func TestPayPalCapture(t *testing.T) {
	t.Run("order id required", func(t *testing.T) {
		orders := new(MockOrders)
		w := post(newRouter(NewHandler(new(MockRecorder), new(MockCheckout), orders, "cad", "")), "/api/donations/paypal/capture", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Order ID required"}`, w.Body.String())
		orders.AssertNotCalled(t, "CaptureOrder", mock.Anything, mock.Anything)
	})

	t.Run("completed is recorded", func(t *testing.T) {
		orders := new(MockOrders)
		orders.On("CaptureOrder", mock.Anything, "ORDER1").Return(completedCapture(t), nil)
		ledger := new(MockRecorder)
		ledger.On("Record", mock.Anything, mock.MatchedBy(func(d *Donation) bool {
			return d.Amount == 2550 && d.PaymentProvider == ProviderPayPal && d.PaymentID == "ORDER1" &&
				d.Email != nil && *d.Email == "Donor@Example.com"
		})).Return(nil)

		w := post(newRouter(NewHandler(ledger, new(MockCheckout), orders, "cad", "")), "/api/donations/paypal/capture", `{"orderId":"ORDER1"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Success bool           `json:"success"`
			Data    map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "COMPLETED", resp.Data["status"])
		ledger.AssertExpectations(t)
	})

	t.Run("ledger failure still succeeds", func(t *testing.T) {
		orders := new(MockOrders)
		orders.On("CaptureOrder", mock.Anything, "ORDER1").Return(completedCapture(t), nil)
		ledger := new(MockRecorder)
		ledger.On("Record", mock.Anything, mock.Anything).Return(errors.New("db down"))

		w := post(newRouter(NewHandler(ledger, new(MockCheckout), orders, "cad", "")), "/api/donations/paypal/capture", `{"orderId":"ORDER1"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"success":true`)
	})

	t.Run("pending capture is not recorded", func(t *testing.T) {
		orders := new(MockOrders)
		orders.On("CaptureOrder", mock.Anything, "ORDER2").
			Return(&paypal.Capture{ID: "ORDER2", Status: "PENDING", Raw: []byte(`{"status":"PENDING"}`)}, nil)
		ledger := new(MockRecorder)

		w := post(newRouter(NewHandler(ledger, new(MockCheckout), orders, "cad", "")), "/api/donations/paypal/capture", `{"orderId":"ORDER2"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		ledger.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})
}

func TestLedger_Record(t *testing.T) {
	email := "  Donor@Example.com "
	repo := new(MockRepo)
	repo.On("Insert", mock.Anything, mock.MatchedBy(func(d *Donation) bool {
		return d.Status == StatusCompleted && *d.Email == "donor@example.com"
	})).Return(true, nil).Once()

	pub := &recordingPublisher{}
	before := testutil.ToFloat64(metrics.DonationsTotal.WithLabelValues(ProviderStripe))

	err := NewLedger(repo, pub).Record(context.Background(), &Donation{Amount: 1000, PaymentProvider: ProviderStripe, PaymentID: "cs_1", Email: &email})

	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.DonationsTotal.WithLabelValues(ProviderStripe)))
	assert.Equal(t, []string{events.DonationRecorded}, pub.keys)
}

func TestLedger_ReplayIsQuiet(t *testing.T) {
	repo := new(MockRepo)
	repo.On("Insert", mock.Anything, mock.Anything).Return(false, nil)
	pub := &recordingPublisher{}

	before := testutil.ToFloat64(metrics.DonationsTotal.WithLabelValues(ProviderStripe))
	err := NewLedger(repo, pub).Record(context.Background(), &Donation{Amount: 1000, PaymentProvider: ProviderStripe, PaymentID: "cs_1"})

	require.NoError(t, err)
	assert.Equal(t, before, testutil.ToFloat64(metrics.DonationsTotal.WithLabelValues(ProviderStripe)))
	assert.Empty(t, pub.keys)
}

func TestLedger_InsertError(t *testing.T) {
	repo := new(MockRepo)
	repo.On("Insert", mock.Anything, mock.Anything).Return(false, errors.New("db down"))

	err := NewLedger(repo, events.Nop{}).Record(context.Background(), &Donation{PaymentProvider: ProviderPayPal, PaymentID: "O1"})
	assert.ErrorContains(t, err, "paypal/O1")
}

func TestRepository_Insert(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(sqlx.NewDb(db, "sqlmock"))

	sqlMock.ExpectExec(`INSERT INTO donations .* ON CONFLICT \(payment_id\) DO NOTHING`).
		WithArgs(int64(2500), "stripe", "cs_1", "completed", "a@b.co").
		WillReturnResult(sqlmock.NewResult(1, 1))
	sqlMock.ExpectExec(`INSERT INTO donations`).
		WithArgs(int64(2500), "stripe", "cs_1", "completed", nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	email := "a@b.co"
	inserted, err := repo.Insert(context.Background(), &Donation{Amount: 2500, PaymentProvider: "stripe", PaymentID: "cs_1", Status: "completed", Email: &email})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(context.Background(), &Donation{Amount: 2500, PaymentProvider: "stripe", PaymentID: "cs_1", Status: "completed"})
	require.NoError(t, err)
	assert.False(t, inserted)

	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestValidAmount_Bounds(t *testing.T) {
	ok := func(v float64) bool {
		_, valid := validAmount(&v)
		return valid
	}

	assert.True(t, ok(1))
	assert.True(t, ok(MaxAmount))
	assert.False(t, ok(MaxAmount+0.01))
	assert.False(t, ok(math.NaN()))
	assert.False(t, ok(math.Inf(1)))
	assert.Equal(t, int64(99999999), Cents(MaxAmount))
}

func TestCents(t *testing.T) {
	assert.Equal(t, int64(2550), Cents(25.5))
	assert.Equal(t, int64(1999), Cents(19.99))
	assert.Equal(t, int64(100), Cents(1))
}
