package webhook

import (
	"errors"
	"io"
	"net/http"

	"keystone/internal/api"
	"keystone/internal/billing"
	"keystone/internal/logger"
	"keystone/internal/metrics"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 64 << 10

type Handler struct {
	verifier billing.EventVerifier
	sync     *Synchronizer
}

func NewHandler(verifier billing.EventVerifier, sync *Synchronizer) *Handler {
	return &Handler{verifier: verifier, sync: sync}
}

// Stripe godoc
// @Summary      Billing webhook
// @Description  Verifies the Stripe-Signature header and applies the event. Verified events are always acknowledged.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header    string  true  "Webhook signature"
// @Success      200               {object}  api.ReceivedResponse
// @Failure      400               {object}  api.ErrorResponse
// @Failure      500               {object}  api.ErrorResponse
// @Router       /api/webhooks/stripe [post]
func (h *Handler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid payload"})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		metrics.RecordWebhookEvent("unknown", "missing_signature")
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Missing signature"})
		return
	}

	evt, err := h.verifier.Verify(payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrWebhookNotConfigured) {
			logger.Error("webhook received but signing secret is not set")
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Webhook not configured"})
			return
		}
		metrics.RecordWebhookEvent("unknown", "invalid_signature")
		logger.WithError(err).Warn("webhook signature verification failed")
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid signature"})
		return
	}

	eventType := string(evt.Type)
	decoded, err := Decode(evt)
	if err != nil {
		metrics.RecordWebhookEvent(eventType, "decode_failed")
		logger.WithError(err).Error("failed to decode webhook event", "event_id", evt.ID, "type", eventType)
		c.JSON(http.StatusOK, api.ReceivedResponse{Received: true})
		return
	}

	applied, err := h.sync.Apply(c.Request.Context(), decoded)
	switch {
	case err != nil:
		metrics.RecordWebhookEvent(eventType, "failed")
		logger.WithError(err).Error("failed to apply webhook event", "event_id", evt.ID, "type", eventType)
	case applied:
		metrics.RecordWebhookEvent(eventType, "applied")
		logger.Info("webhook event applied", "event_id", evt.ID, "type", eventType)
	default:
		metrics.RecordWebhookEvent(eventType, "ignored")
		logger.Debug("webhook event ignored", "event_id", evt.ID, "type", eventType)
	}

	c.JSON(http.StatusOK, api.ReceivedResponse{Received: true})
}
