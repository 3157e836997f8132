package subscription

import (
	"context"
	"errors"
	"net/http"

	"keystone/internal/api"
	"keystone/internal/auth"
	"keystone/internal/billing"
	"keystone/internal/logger"
	"keystone/internal/member"
	"keystone/internal/metrics"

	"github.com/gin-gonic/gin"
)

// MemberLookup resolves the signed-in member by session email.
type MemberLookup interface {
	GetByEmail(ctx context.Context, email string) (*member.Member, error)
}

// Plan is the recurring price offered at checkout.
type Plan struct {
	PriceCents int64
	Interval   string
	Currency   string
}

type Handler struct {
	repo      Repository
	members   MemberLookup
	gateway   billing.Gateway
	plan      Plan
	publicURL string
}

func NewHandler(repo Repository, members MemberLookup, gateway billing.Gateway, plan Plan, publicURL string) *Handler {
	return &Handler{
		repo:      repo,
		members:   members,
		gateway:   gateway,
		plan:      plan,
		publicURL: publicURL,
	}
}

func (h *Handler) currentMember(c *gin.Context) (*member.Member, bool) {
	email, ok := auth.GetUserEmail(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized"})
		return nil, false
	}

	m, err := h.members.GetByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, member.ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Member not found"})
			return nil, false
		}
		logger.WithError(err).Error("failed to load member")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch member"})
		return nil, false
	}
	return m, true
}

// Get godoc
// @Summary      Current subscription
// @Description  Returns the member's subscription status and plan, with plan defaults when none is stored.
// @Tags         subscription
// @Produce      json
// @Success      200  {object}  View
// @Failure      401  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /api/subscription [get]
func (h *Handler) Get(c *gin.Context) {
	m, ok := h.currentMember(c)
	if !ok {
		return
	}

	sub, err := h.repo.LatestForMember(c.Request.Context(), m.ID)
	if err != nil {
		logger.WithError(err).Error("failed to load subscription", "member_id", m.ID)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch subscription"})
		return
	}

	c.JSON(http.StatusOK, h.view(m, sub))
}

func (h *Handler) view(m *member.Member, sub *Subscription) View {
	status := m.SubscriptionStatus
	if status == "" {
		status = member.StatusInactive
	}

	v := View{
		Status:      status,
		IsActive:    status == member.StatusActive,
		PlanName:    DefaultPlanName,
		PriceAmount: h.plan.PriceCents,
		Currency:    h.plan.Currency,
		Interval:    h.plan.Interval,
		Features:    DefaultPlanFeatures,
	}
	if sub == nil {
		return v
	}

	v.HasSubscription = true
	v.CurrentPeriodStart = sub.CurrentPeriodStart
	v.CurrentPeriodEnd = sub.CurrentPeriodEnd
	if sub.PriceAmount > 0 {
		v.PriceAmount = sub.PriceAmount
	}
	if sub.PlanName != nil && *sub.PlanName != "" {
		v.PlanName = *sub.PlanName
	}
	if len(sub.PlanFeatures) > 0 {
		v.Features = sub.PlanFeatures
	}
	return v
}

// Checkout godoc
// @Summary      Start membership checkout
// @Description  Finds or creates the billing customer and opens a subscription checkout session.
// @Tags         subscription
// @Produce      json
// @Success      200  {object}  api.URLResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /api/subscription/checkout [post]
func (h *Handler) Checkout(c *gin.Context) {
	email, ok := auth.GetUserEmail(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized"})
		return
	}
	userID, _ := auth.GetUserID(c)

	ctx := c.Request.Context()
	origin := api.Origin(c, h.publicURL)

	session, err := h.checkout(ctx, email, userID, origin)
	if err != nil {
		metrics.RecordCheckoutSession(billing.TypeSubscription, "failed")
		logger.WithError(err).Error("failed to create subscription checkout", "email", email)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create checkout session"})
		return
	}

	metrics.RecordCheckoutSession(billing.TypeSubscription, "created")
	c.JSON(http.StatusOK, api.URLResponse{URL: session.URL})
}

func (h *Handler) checkout(ctx context.Context, email, userID, origin string) (*billing.CheckoutSession, error) {
	customer, err := h.gateway.FindCustomer(ctx, email)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		customer, err = h.gateway.CreateCustomer(ctx, email, userID)
		if err != nil {
			return nil, err
		}
	}

	return h.gateway.CreateSubscriptionCheckout(ctx, billing.SubscriptionCheckout{
		CustomerID: customer.ID,
		Email:      email,
		PriceCents: h.plan.PriceCents,
		Interval:   h.plan.Interval,
		Currency:   h.plan.Currency,
		SuccessURL: origin + "/dashboard/subscription?success=true",
		CancelURL:  origin + "/dashboard/subscription?cancelled=true",
	})
}

// Portal godoc
// @Summary      Open billing portal
// @Description  Opens a self-service billing portal session for an existing customer.
// @Tags         subscription
// @Produce      json
// @Success      200  {object}  api.URLResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /api/subscription/portal [post]
func (h *Handler) Portal(c *gin.Context) {
	email, ok := auth.GetUserEmail(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized"})
		return
	}

	ctx := c.Request.Context()
	customer, err := h.gateway.FindCustomer(ctx, email)
	if err != nil {
		logger.WithError(err).Error("failed to look up customer", "email", email)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create portal session"})
		return
	}
	if customer == nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "No customer found"})
		return
	}

	url, err := h.gateway.CreatePortalSession(ctx, customer.ID, api.Origin(c, h.publicURL)+"/dashboard/subscription")
	if err != nil {
		logger.WithError(err).Error("failed to create portal session", "customer_id", customer.ID)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create portal session"})
		return
	}

	c.JSON(http.StatusOK, api.URLResponse{URL: url})
}

// PaymentMethod godoc
// @Summary      Subscription payment method
// @Description  Returns the card on the member's subscription, or null.
// @Tags         subscription
// @Produce      json
// @Success      200  {object}  PaymentMethodResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /api/stripe/payment-method [get]
func (h *Handler) PaymentMethod(c *gin.Context) {
	m, ok := h.currentMember(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	sub, err := h.repo.LatestForMember(ctx, m.ID)
	if err != nil {
		logger.WithError(err).Error("failed to load subscription", "member_id", m.ID)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch payment method"})
		return
	}
	if sub == nil || sub.StripeSubscriptionID == "" {
		c.JSON(http.StatusOK, PaymentMethodResponse{})
		return
	}

	pm, err := h.gateway.SubscriptionPaymentMethod(ctx, sub.StripeSubscriptionID)
	if err != nil {
		logger.WithError(err).Error("failed to fetch payment method", "subscription_id", sub.StripeSubscriptionID)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch payment method"})
		return
	}
	if pm == nil {
		c.JSON(http.StatusOK, PaymentMethodResponse{})
		return
	}

	c.JSON(http.StatusOK, PaymentMethodResponse{PaymentMethod: pm})
}
