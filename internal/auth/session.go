package auth

import (
	"errors"
	"net/http"

	"keystone/internal/logger"

	"github.com/gin-gonic/gin"
)

const verifierCookieSuffix = "-code-verifier"

type CookieConfig struct {
	AccessName  string
	RefreshName string
	Secure      bool
}

func (cc CookieConfig) verifierName() string {
	return cc.AccessName + verifierCookieSuffix
}

// Resolver turns the session cookies of a request into a User, refreshing
// the access token once when it has been rejected.
type Resolver struct {
	provider Provider
	cookies  CookieConfig
}

func NewResolver(provider Provider, cookies CookieConfig) *Resolver {
	return &Resolver{provider: provider, cookies: cookies}
}

func (r *Resolver) Provider() Provider {
	return r.provider
}

// Resolve returns (nil, nil) when the request carries no usable session.
// Errors are reserved for an unreachable or failing provider.
func (r *Resolver) Resolve(c *gin.Context) (*User, error) {
	access, _ := c.Cookie(r.cookies.AccessName)
	refresh, _ := c.Cookie(r.cookies.RefreshName)
	if access == "" && refresh == "" {
		return nil, nil
	}

	ctx := c.Request.Context()

	if access != "" {
		user, err := r.provider.GetUser(ctx, access)
		if err == nil {
			c.Set(ContextAccessToken, access)
			return user, nil
		}
		if !errors.Is(err, ErrInvalidSession) {
			return nil, err
		}
	}

	if refresh == "" {
		return nil, nil
	}

	sess, err := r.provider.Refresh(ctx, refresh)
	if err != nil {
		if errors.Is(err, ErrInvalidSession) {
			r.ClearSession(c)
			return nil, nil
		}
		return nil, err
	}

	logger.Debug("session refreshed", "user_id", sess.User.ID)
	r.SetSession(c, sess)
	c.Set(ContextAccessToken, sess.AccessToken)
	return &sess.User, nil
}

func (r *Resolver) SetSession(c *gin.Context, sess *Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(r.cookies.AccessName, sess.AccessToken, int(RefreshTokenTTL.Seconds()), "/", "", r.cookies.Secure, true)
	c.SetCookie(r.cookies.RefreshName, sess.RefreshToken, int(RefreshTokenTTL.Seconds()), "/", "", r.cookies.Secure, true)
}

func (r *Resolver) ClearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(r.cookies.AccessName, "", -1, "/", "", r.cookies.Secure, true)
	c.SetCookie(r.cookies.RefreshName, "", -1, "/", "", r.cookies.Secure, true)
}

// SetVerifier stores the PKCE verifier for the callback that follows a
// password reset email.
func (r *Resolver) SetVerifier(c *gin.Context, verifier string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(r.cookies.verifierName(), verifier, int(RecoveryTokenTTL.Seconds()), "/", "", r.cookies.Secure, true)
}

// TakeVerifier reads and clears the PKCE verifier cookie.
func (r *Resolver) TakeVerifier(c *gin.Context) string {
	v, _ := c.Cookie(r.cookies.verifierName())
	if v != "" {
		c.SetCookie(r.cookies.verifierName(), "", -1, "/", "", r.cookies.Secure, true)
	}
	return v
}

// AccessToken returns the raw access-token cookie, or "".
func (r *Resolver) AccessToken(c *gin.Context) string {
	v, _ := c.Cookie(r.cookies.AccessName)
	return v
}
