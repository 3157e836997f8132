package donation

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"keystone/internal/api"
	"keystone/internal/billing"
	"keystone/internal/logger"
	"keystone/internal/metrics"
	"keystone/internal/paypal"

	"github.com/gin-gonic/gin"
)

const orderDescription = "Keystone Gym Donation"

// Orders is the wallet payment collaborator.
type Orders interface {
	CreateOrder(ctx context.Context, value, currency, description string) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*paypal.Capture, error)
}

// CheckoutCreator is the card payment collaborator.
type CheckoutCreator interface {
	CreateDonationCheckout(ctx context.Context, in billing.DonationCheckout) (*billing.CheckoutSession, error)
}

// Recorder persists completed donations.
type Recorder interface {
	Record(ctx context.Context, d *Donation) error
}

type Handler struct {
	ledger    Recorder
	gateway   CheckoutCreator
	orders    Orders
	currency  string
	publicURL string
}

func NewHandler(ledger Recorder, gateway CheckoutCreator, orders Orders, currency, publicURL string) *Handler {
	return &Handler{
		ledger:    ledger,
		gateway:   gateway,
		orders:    orders,
		currency:  strings.ToLower(currency),
		publicURL: publicURL,
	}
}

// MaxAmount is the largest single charge the card and PayPal checkouts
// accept, in whole currency units.
const MaxAmount = 999999.99

func validAmount(amount *float64) (float64, bool) {
	if amount == nil || math.IsNaN(*amount) || *amount < 1 || *amount > MaxAmount {
		return 0, false
	}
	return *amount, true
}

// Stripe godoc
// @Summary      Start a card donation
// @Description  Opens a one-off checkout session. Hosted mode returns a redirect URL, embedded mode a client secret.
// @Tags         donations
// @Accept       json
// @Produce      json
// @Param        request  body      StripeDonationRequest  true  "Donation"
// @Success      200      {object}  api.URLResponse
// @Success      200      {object}  api.ClientSecretResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /api/donations/stripe [post]
func (h *Handler) Stripe(c *gin.Context) {
	var req StripeDonationRequest
	_ = c.ShouldBindJSON(&req)

	amount, ok := validAmount(req.Amount)
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid amount"})
		return
	}

	origin := api.Origin(c, h.publicURL)
	session, err := h.gateway.CreateDonationCheckout(c.Request.Context(), billing.DonationCheckout{
		AmountCents: Cents(amount),
		AmountLabel: strconv.FormatFloat(amount, 'f', -1, 64),
		Currency:    h.currency,
		Embedded:    req.Embedded,
		SuccessURL:  origin + "/?donation=success",
		CancelURL:   origin + "/?donation=cancelled",
		ReturnURL:   origin + "/?donation=success&session_id={CHECKOUT_SESSION_ID}",
	})
	if err != nil {
		metrics.RecordCheckoutSession(billing.TypeDonation, "failed")
		logger.WithError(err).Error("failed to create donation checkout", "amount", amount)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create checkout session"})
		return
	}

	metrics.RecordCheckoutSession(billing.TypeDonation, "created")
	if req.Embedded {
		c.JSON(http.StatusOK, api.ClientSecretResponse{ClientSecret: session.ClientSecret})
		return
	}
	c.JSON(http.StatusOK, api.URLResponse{URL: session.URL})
}

// PayPalOrder godoc
// @Summary      Create a PayPal donation order
// @Tags         donations
// @Accept       json
// @Produce      json
// @Param        request  body      PayPalOrderRequest  true  "Donation"
// @Success      200      {object}  OrderResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /api/donations/paypal [post]
func (h *Handler) PayPalOrder(c *gin.Context) {
	var req PayPalOrderRequest
	_ = c.ShouldBindJSON(&req)

	amount, ok := validAmount(req.Amount)
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid amount"})
		return
	}

	value := strconv.FormatFloat(amount, 'f', 2, 64)
	order, err := h.orders.CreateOrder(c.Request.Context(), value, strings.ToUpper(h.currency), orderDescription)
	if err != nil {
		logger.WithError(err).Error("failed to create paypal order", "amount", value)
		h.providerError(c, err, "Failed to create PayPal order")
		return
	}

	c.JSON(http.StatusOK, OrderResponse{OrderID: order.ID})
}

// PayPalCapture godoc
// @Summary      Capture a PayPal donation
// @Description  Captures an approved order and records the donation when it completes.
// @Tags         donations
// @Accept       json
// @Produce      json
// @Param        request  body      CaptureRequest  true  "Order"
// @Success      200      {object}  CaptureResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /api/donations/paypal/capture [post]
func (h *Handler) PayPalCapture(c *gin.Context) {
	var req CaptureRequest
	_ = c.ShouldBindJSON(&req)

	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Order ID required"})
		return
	}

	ctx := c.Request.Context()
	capture, err := h.orders.CaptureOrder(ctx, orderID)
	if err != nil {
		logger.WithError(err).Error("failed to capture paypal order", "order_id", orderID)
		h.providerError(c, err, "Failed to capture PayPal order")
		return
	}

	if capture.Status == paypal.StatusCompleted {
		h.recordCapture(ctx, orderID, capture)
	}

	c.JSON(http.StatusOK, CaptureResponse{Success: true, Data: capture.Raw})
}

// recordCapture never fails the request: the payment already went through.
func (h *Handler) recordCapture(ctx context.Context, orderID string, capture *paypal.Capture) {
	value, err := strconv.ParseFloat(capture.CapturedAmount(), 64)
	if err != nil {
		logger.WithError(err).Error("paypal capture without amount", "order_id", orderID)
		return
	}

	d := &Donation{
		Amount:          Cents(value),
		PaymentProvider: ProviderPayPal,
		PaymentID:       orderID,
		Status:          StatusCompleted,
	}
	if email := capture.PayerEmail(); email != "" {
		d.Email = &email
	}

	if err := h.ledger.Record(ctx, d); err != nil {
		logger.WithError(err).Error("failed to record paypal donation", "order_id", orderID)
	}
}

func (h *Handler) providerError(c *gin.Context, err error, fallback string) {
	var apiErr *paypal.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 {
		c.JSON(apiErr.Status, api.ErrorResponse{Error: apiErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: fallback})
}
