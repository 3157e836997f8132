package trial

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"keystone/internal/api"
	"keystone/internal/events"
	"keystone/internal/logger"
	"keystone/internal/metrics"

	"github.com/gin-gonic/gin"
)

// OwnerNotifier reaches the gym owner on whatever channel is configured.
type OwnerNotifier interface {
	NotifyOwner(ctx context.Context, message string) error
}

type Handler struct {
	repo      Repository
	notifier  OwnerNotifier
	publisher events.Publisher
}

func NewHandler(repo Repository, notifier OwnerNotifier, publisher events.Publisher) *Handler {
	return &Handler{repo: repo, notifier: notifier, publisher: publisher}
}

// Create godoc
// @Summary      Request a free trial class
// @Description  Stores the request and notifies the owner. Both steps are best effort; a valid request always succeeds.
// @Tags         trial
// @Accept       json
// @Produce      json
// @Param        request  body      CreateRequest  true  "Trial request"
// @Success      200      {object}  api.SuccessResponse
// @Failure      400      {object}  api.ValidationErrorResponse
// @Router       /api/trial-requests [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if !api.BindAndValidate(c, &req) {
		metrics.RecordTrialRequest("invalid")
		return
	}

	ctx := c.Request.Context()
	tr := &Request{
		FullName: req.FullName,
		Phone:    req.Phone,
		Email:    req.Email,
		Status:   StatusPending,
	}
	if msg := req.Message; msg != "" {
		tr.Message = &msg
	}

	status := "stored"
	if err := h.repo.Create(ctx, tr); err != nil {
		status = "unstored"
		logger.WithError(err).Error("failed to store trial request", "email", tr.Email)
	}
	metrics.RecordTrialRequest(status)

	if err := h.notifier.NotifyOwner(ctx, ownerMessage(tr)); err != nil {
		logger.WithError(err).Warn("trial request notification not delivered", "email", tr.Email)
	}

	events.Emit(ctx, h.publisher, events.TrialRequested, tr)

	c.JSON(http.StatusOK, api.SuccessResponse{Success: true})
}

func ownerMessage(r *Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🥊 New Trial Request!\n\nName: %s\nPhone: %s\nEmail: %s", r.FullName, r.Phone, r.Email)
	if r.Message != nil {
		fmt.Fprintf(&b, "\n\nMessage: %s", *r.Message)
	}
	return b.String()
}
