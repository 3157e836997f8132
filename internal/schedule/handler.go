package schedule

import (
	"net/http"

	"keystone/internal/api"
	"keystone/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// List godoc
// @Summary      Weekly class schedule
// @Description  Returns the active recurring class slots ordered by weekday and start time.
// @Tags         schedule
// @Produce      json
// @Success      200  {array}   Schedule
// @Failure      500  {object}  api.ErrorResponse
// @Router       /api/schedule [get]
func (h *Handler) List(c *gin.Context) {
	schedules, err := h.repo.ListActive(c.Request.Context())
	if err != nil {
		logger.WithError(err).Error("failed to list schedules")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch schedule"})
		return
	}

	c.JSON(http.StatusOK, schedules)
}
