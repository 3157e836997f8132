package payment

import (
	"context"
	"net/http"
	"strconv"

	"keystone/internal/api"
	"keystone/internal/auth"
	"keystone/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type MemberResolver interface {
	IDByEmail(ctx context.Context, email string) (string, error)
}

type Handler struct {
	repo    Repository
	members MemberResolver
}

func NewHandler(repo Repository, members MemberResolver) *Handler {
	return &Handler{repo: repo, members: members}
}

// List godoc
// @Summary      Payment history
// @Description  Returns the member's payments, newest first. Defaults to the last 20.
// @Tags         payments
// @Produce      json
// @Param        limit   query     int  false  "Page size (max 100)"
// @Param        offset  query     int  false  "Rows to skip"
// @Success      200     {array}   Payment
// @Failure      401     {object}  api.ErrorResponse
// @Failure      500     {object}  api.ErrorResponse
// @Router       /api/payments [get]
func (h *Handler) List(c *gin.Context) {
	email, ok := auth.GetUserEmail(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized"})
		return
	}

	limit := defaultLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = min(v, maxLimit)
	}
	offset := 0
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		offset = v
	}

	ctx := c.Request.Context()
	memberID, err := h.members.IDByEmail(ctx, email)
	if err != nil {
		logger.WithError(err).Error("failed to resolve member")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch payments"})
		return
	}
	if memberID == "" {
		c.JSON(http.StatusOK, []Payment{})
		return
	}

	payments, err := h.repo.ListForMember(ctx, memberID, limit, offset)
	if err != nil {
		logger.WithError(err).Error("failed to list payments", "member_id", memberID)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}
