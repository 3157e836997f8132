package member

import (
	"context"
	"errors"
	"net/http"

	"keystone/internal/api"
	"keystone/internal/auth"
	"keystone/internal/booking"
	"keystone/internal/logger"

	"github.com/gin-gonic/gin"
)

const dashboardUpcomingLimit = 3

// CredentialUpdater writes profile metadata back to the credential store.
type CredentialUpdater interface {
	UpdateUser(ctx context.Context, accessToken string, u auth.UserUpdate) (*auth.User, error)
}

// UpcomingBookings lists a member's next bookings from today on.
type UpcomingBookings interface {
	Upcoming(ctx context.Context, memberID string, limit int) ([]booking.BookingWithSchedule, error)
}

type DashboardResponse struct {
	Member           *Member                       `json:"member"`
	UpcomingBookings []booking.BookingWithSchedule `json:"upcomingBookings"`
}

type Handler struct {
	repo        Repository
	credentials CredentialUpdater
	bookings    UpcomingBookings
}

func NewHandler(repo Repository, credentials CredentialUpdater, bookings UpcomingBookings) *Handler {
	return &Handler{repo: repo, credentials: credentials, bookings: bookings}
}

func (h *Handler) currentMember(c *gin.Context) (*Member, bool) {
	email, ok := auth.GetUserEmail(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized"})
		return nil, false
	}

	m, err := h.repo.GetByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Member not found"})
			return nil, false
		}
		logger.WithError(err).Error("failed to load member")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch member"})
		return nil, false
	}
	return m, true
}

// GetMe godoc
// @Summary      Get current member
// @Description  Returns the profile of the signed-in member.
// @Tags         members
// @Produce      json
// @Success      200  {object}  Member
// @Failure      401  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /api/me [get]
func (h *Handler) GetMe(c *gin.Context) {
	m, ok := h.currentMember(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, m)
}

// UpdateMe godoc
// @Summary      Update current member
// @Description  Updates name and phone on both the credential record and the member row.
// @Tags         members
// @Accept       json
// @Produce      json
// @Param        request  body      UpdateProfileRequest  true  "Profile fields"
// @Success      200      {object}  Member
// @Failure      400      {object}  api.ValidationErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /api/me [put]
func (h *Handler) UpdateMe(c *gin.Context) {
	email, ok := auth.GetUserEmail(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized"})
		return
	}
	token, _ := auth.GetAccessToken(c)

	var req UpdateProfileRequest
	if !api.BindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.credentials.UpdateUser(ctx, token, auth.UserUpdate{
		FullName: &req.FullName,
		Phone:    &req.Phone,
	}); err != nil {
		logger.WithError(err).Error("failed to update credential metadata")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to update profile"})
		return
	}

	if err := h.repo.UpdateProfile(ctx, email, req.FullName, req.Phone); err != nil {
		logger.WithError(err).Error("failed to update member row")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to update profile"})
		return
	}

	h.GetMe(c)
}

// Dashboard godoc
// @Summary      Member dashboard
// @Description  Returns the member and the next three upcoming bookings.
// @Tags         members
// @Produce      json
// @Success      200  {object}  DashboardResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /api/dashboard [get]
func (h *Handler) Dashboard(c *gin.Context) {
	m, ok := h.currentMember(c)
	if !ok {
		return
	}

	upcoming, err := h.bookings.Upcoming(c.Request.Context(), m.ID, dashboardUpcomingLimit)
	if err != nil {
		logger.WithError(err).Error("failed to load upcoming bookings", "member_id", m.ID)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch bookings"})
		return
	}

	c.JSON(http.StatusOK, DashboardResponse{Member: m, UpcomingBookings: upcoming})
}

// ListMembers godoc
// @Summary      List members
// @Description  Admin only. Returns every member, newest first.
// @Tags         admin
// @Produce      json
// @Success      200  {array}   Member
// @Failure      401  {object}  api.ErrorResponse
// @Failure      403  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /api/admin/members [get]
func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.repo.List(c.Request.Context())
	if err != nil {
		logger.WithError(err).Error("failed to list members")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch members"})
		return
	}
	c.JSON(http.StatusOK, members)
}
