package api

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Origin returns scheme://host for building absolute return URLs. Proxy
// headers win over the connection; fallback is used when the host is unknown.
func Origin(c *gin.Context, fallback string) string {
	host := c.GetHeader("X-Forwarded-Host")
	if host == "" {
		host = c.Request.Host
	}
	if host == "" {
		return strings.TrimRight(fallback, "/")
	}

	scheme := c.GetHeader("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
	}
	return scheme + "://" + host
}
