// Package gatekeeper decides, for every navigable request, whether to send
// the visitor to login, away from the auth pages, or on to the page itself.
package gatekeeper

import (
	"net/http"
	"net/url"
	"strings"

	"keystone/internal/auth"
	"keystone/internal/logger"
	"keystone/internal/metrics"

	"github.com/gin-gonic/gin"
)

const ContextLocale = "locale"

type Class int

const (
	Public Class = iota
	AuthPage
	Protected
)

func (c Class) String() string {
	switch c {
	case Protected:
		return "protected"
	case AuthPage:
		return "auth"
	default:
		return "public"
	}
}

var skippedPrefixes = []string{"/api", "/swagger", "/metrics", "/health", "/static"}

// SessionResolver is satisfied by *auth.Resolver.
type SessionResolver interface {
	Resolve(c *gin.Context) (*auth.User, error)
}

type Gatekeeper struct {
	resolver SessionResolver
	locales  Locales
}

func New(resolver SessionResolver, locales Locales) *Gatekeeper {
	return &Gatekeeper{resolver: resolver, locales: locales}
}

// Skipped reports whether path bypasses the gatekeeper entirely: API routes,
// operational endpoints and anything that looks like a static asset.
func Skipped(path string) bool {
	for _, p := range skippedPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return strings.Contains(path, ".")
}

// Classify expects a path with the locale prefix already stripped.
func Classify(path string) Class {
	switch {
	case hasSegmentPrefix(path, "/dashboard"):
		return Protected
	case hasSegmentPrefix(path, "/auth"):
		return AuthPage
	default:
		return Public
	}
}

func hasSegmentPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func (g *Gatekeeper) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if Skipped(path) {
			c.Next()
			return
		}

		locale, rest := g.locales.Split(path)
		c.Set(ContextLocale, locale)
		c.Header("Content-Language", locale)

		class := Classify(rest)
		if class == Public {
			c.Next()
			return
		}

		user, err := g.resolver.Resolve(c)
		if err != nil {
			logger.WithError(err).Warn("session check failed, treating as signed out", "path", path)
			user = nil
		}

		switch {
		case class == Protected && user == nil:
			metrics.RecordRedirect("login_required")
			target := "/" + locale + "/auth/login?redirect=" + url.QueryEscape(path)
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		case class == AuthPage && user != nil && !passThroughAuthPage(rest):
			metrics.RecordRedirect("already_signed_in")
			c.Redirect(http.StatusFound, "/"+locale+"/dashboard")
			c.Abort()
			return
		}

		if user != nil {
			auth.SetUser(c, user)
		}
		c.Next()
	}
}

// A signed-in visitor still needs the callback and the reset form that
// follows a recovery link.
func passThroughAuthPage(rest string) bool {
	return hasSegmentPrefix(rest, "/auth/callback") || hasSegmentPrefix(rest, "/auth/reset-password")
}

// Locale returns the locale chosen for the request, or def when the
// gatekeeper did not run.
func Locale(c *gin.Context, def string) string {
	if v, ok := c.Get(ContextLocale); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}
