package booking

import (
	"errors"
	"net/http"
	"time"

	"keystone/internal/api"
	"keystone/internal/auth"
	"keystone/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// BookClass godoc
// @Summary      Book a class
// @Description  Reserves a place in a weekly class on a given date.
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        request  body      CreateBookingRequest  true  "Class and date (YYYY-MM-DD)"
// @Success      201      {object}  Booking
// @Failure      400      {object}  api.ErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /api/bookings [post]
func (h *Handler) BookClass(c *gin.Context) {
	email, ok := auth.GetUserEmail(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req CreateBookingRequest
	if !api.BindAndValidate(c, &req) {
		return
	}

	date, err := time.Parse(DateLayout, req.BookingDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "bookingDate must be YYYY-MM-DD"})
		return
	}

	booking, err := h.service.BookClass(c.Request.Context(), email, req.ScheduleID, date)
	if err != nil {
		switch {
		case errors.Is(err, ErrMemberNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Member not found"})
		case errors.Is(err, ErrScheduleNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Class not found"})
		case errors.Is(err, ErrScheduleInactive), errors.Is(err, ErrWrongWeekday), errors.Is(err, ErrDateInPast):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		case errors.Is(err, ErrClassFull), errors.Is(err, ErrAlreadyBooked):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error()})
		default:
			logger.WithError(err).Error("failed to create booking", "schedule_id", req.ScheduleID)
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create booking"})
		}
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// ListMyBookings godoc
// @Summary      List my bookings
// @Description  Returns the member's bookings split into upcoming and past.
// @Tags         bookings
// @Produce      json
// @Success      200  {object}  ListBookingsResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /api/bookings [get]
func (h *Handler) ListMyBookings(c *gin.Context) {
	email, ok := auth.GetUserEmail(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.service.ListForMember(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Member not found"})
			return
		}
		logger.WithError(err).Error("failed to list bookings")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch bookings"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
