// Package account serves the sign-up, sign-in and password recovery
// endpoints on top of the configured auth.Provider.
package account

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"keystone/internal/api"
	"keystone/internal/auth"
	"keystone/internal/gatekeeper"
	"keystone/internal/logger"
	"keystone/internal/member"

	"github.com/gin-gonic/gin"
)

// MemberCreator writes the member row that accompanies a new credential.
type MemberCreator interface {
	Create(ctx context.Context, m *member.Member) error
}

type Handler struct {
	resolver  *auth.Resolver
	members   MemberCreator
	locales   gatekeeper.Locales
	publicURL string
}

func NewHandler(resolver *auth.Resolver, members MemberCreator, locales gatekeeper.Locales, publicURL string) *Handler {
	return &Handler{
		resolver:  resolver,
		members:   members,
		locales:   locales,
		publicURL: publicURL,
	}
}

func (h *Handler) provider() auth.Provider {
	return h.resolver.Provider()
}

func (h *Handler) locale(requested string) string {
	if h.locales.Supported(requested) {
		return requested
	}
	return h.locales.Default()
}

// Signup godoc
// @Summary      Create an account
// @Description  Registers the credential and the member row. A session is set when the provider issues one right away.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      SignupRequest  true  "Sign-up form"
// @Success      201      {object}  SignupResponse
// @Failure      400      {object}  api.ValidationErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /api/auth/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if !api.BindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	locale := h.locale(req.Locale)

	user, sess, err := h.provider().SignUp(ctx, auth.SignUpParams{
		Email:      email,
		Password:   req.Password,
		FullName:   strings.TrimSpace(req.FullName),
		Phone:      strings.TrimSpace(req.Phone),
		RedirectTo: api.Origin(c, h.publicURL) + "/" + locale + "/auth/callback",
	})
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Email already registered"})
			return
		}
		logger.WithError(err).Error("sign-up failed", "email", email)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create account"})
		return
	}

	err = h.members.Create(ctx, &member.Member{
		ID:       user.ID,
		FullName: strings.TrimSpace(req.FullName),
		Email:    email,
		Phone:    strings.TrimSpace(req.Phone),
	})
	if err != nil {
		logger.WithError(err).Error("failed to create member row", "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create account"})
		return
	}

	if sess != nil {
		h.resolver.SetSession(c, sess)
	}

	logger.Info("account created", "user_id", user.ID)
	c.JSON(http.StatusCreated, SignupResponse{UserID: user.ID, ConfirmationRequired: sess == nil})
}

// Login godoc
// @Summary      Sign in
// @Description  Checks the credentials, sets the session cookies and returns where the client should go next.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      LoginRequest  true  "Credentials"
// @Success      200      {object}  LoginResponse
// @Failure      400      {object}  api.ValidationErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /api/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !api.BindAndValidate(c, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	sess, err := h.provider().SignIn(c.Request.Context(), email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Invalid email or password"})
			return
		}
		logger.WithError(err).Error("sign-in failed", "email", email)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to sign in"})
		return
	}

	h.resolver.SetSession(c, sess)
	c.JSON(http.StatusOK, LoginResponse{
		Redirect: SafeRedirect(req.Redirect, "/"+h.locale(req.Locale)+"/dashboard"),
	})
}

// Logout godoc
// @Summary      Sign out
// @Tags         auth
// @Produce      json
// @Success      200  {object}  api.SuccessResponse
// @Router       /api/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	if token := h.resolver.AccessToken(c); token != "" {
		if err := h.provider().SignOut(c.Request.Context(), token); err != nil {
			logger.WithError(err).Warn("provider sign-out failed")
		}
	}

	h.resolver.ClearSession(c)
	c.JSON(http.StatusOK, api.SuccessResponse{Success: true})
}

// ForgotPassword godoc
// @Summary      Request a password reset link
// @Description  Always succeeds for a well-formed address so it never reveals which accounts exist.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      ForgotPasswordRequest  true  "Email"
// @Success      200      {object}  api.SuccessResponse
// @Failure      400      {object}  api.ValidationErrorResponse
// @Router       /api/auth/forgot-password [post]
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !api.BindAndValidate(c, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	locale := h.locale(req.Locale)

	verifier, challenge := auth.NewCodeVerifier()
	h.resolver.SetVerifier(c, verifier)

	next := "/" + locale + "/auth/reset-password"
	redirectTo := api.Origin(c, h.publicURL) + "/" + locale + "/auth/callback?next=" + url.QueryEscape(next)

	if err := h.provider().SendPasswordReset(c.Request.Context(), email, redirectTo, challenge); err != nil {
		logger.WithError(err).Error("password reset request failed", "email", email)
	}

	c.JSON(http.StatusOK, api.SuccessResponse{Success: true})
}

// ResetPassword godoc
// @Summary      Set a new password
// @Description  Requires the session established by the recovery link.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      ResetPasswordRequest  true  "New password"
// @Success      200      {object}  api.SuccessResponse
// @Failure      400      {object}  api.ValidationErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /api/auth/reset-password [post]
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !api.BindAndValidate(c, &req) {
		return
	}

	token, ok := auth.GetAccessToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized"})
		return
	}

	_, err := h.provider().UpdateUser(c.Request.Context(), token, auth.UserUpdate{Password: &req.Password})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidSession) {
			c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized"})
			return
		}
		logger.WithError(err).Error("password update failed")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, api.SuccessResponse{Success: true})
}

// Callback exchanges the emailed code for a session and sends the browser on
// to next, or back to the login page with error=auth.
func (h *Handler) Callback(c *gin.Context) {
	locale := gatekeeper.Locale(c, h.locales.Default())
	origin := api.Origin(c, h.publicURL)
	failure := origin + "/" + locale + "/auth/login?error=auth"

	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusFound, failure)
		return
	}

	sess, err := h.provider().ExchangeCode(c.Request.Context(), code, h.resolver.TakeVerifier(c))
	if err != nil {
		logger.WithError(err).Warn("auth code exchange failed")
		c.Redirect(http.StatusFound, failure)
		return
	}

	h.resolver.SetSession(c, sess)
	next := SafeRedirect(c.Query("next"), "/"+locale+"/dashboard")
	c.Redirect(http.StatusFound, origin+next)
}

// SafeRedirect keeps redirects on this site: only absolute paths are
// accepted, protocol-relative ones are not. Browsers strip tab and newline
// from URLs, so any control character rejects the target.
func SafeRedirect(target, fallback string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	if strings.IndexFunc(target, func(r rune) bool { return r < 0x20 || r == 0x7f }) >= 0 {
		return fallback
	}
	return target
}
