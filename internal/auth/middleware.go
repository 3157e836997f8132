package auth

import (
	"context"
	"net/http"

	"keystone/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID      = "user_id"
	ContextUserEmail   = "user_email"
	ContextUserRole    = "user_role"
	ContextAccessToken = "access_token"
)

// RoleLookup resolves the member role for a session email.
type RoleLookup interface {
	RoleOf(ctx context.Context, email string) (string, error)
}

// RequireSession rejects API requests that carry no valid session cookie.
func RequireSession(resolver *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := resolver.Resolve(c)
		if err != nil {
			logger.WithError(err).Warn("session resolution failed", "path", c.Request.URL.Path)
		}
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		SetUser(c, user)
		c.Next()
	}
}

func SetUser(c *gin.Context, user *User) {
	c.Set(ContextUserID, user.ID)
	c.Set(ContextUserEmail, user.Email)
}

// LoadRole puts the member role into the context for RequireRole.
func LoadRole(lookup RoleLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := GetUserEmail(c)
		if !ok {
			c.Next()
			return
		}

		role, err := lookup.RoleOf(c.Request.Context(), email)
		if err != nil {
			logger.WithError(err).Warn("role lookup failed", "email", email)
			c.Next()
			return
		}

		c.Set(ContextUserRole, role)
		c.Next()
	}
}

func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextUserRole)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User role not found"})
			c.Abort()
			return
		}

		roleStr, ok := role.(string)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid role type"})
			c.Abort()
			return
		}

		if roleStr != requiredRole {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func GetUserID(c *gin.Context) (string, bool) {
	return getString(c, ContextUserID)
}

func GetUserEmail(c *gin.Context) (string, bool) {
	return getString(c, ContextUserEmail)
}

func GetAccessToken(c *gin.Context) (string, bool) {
	return getString(c, ContextAccessToken)
}

func getString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
