// Package pages serves the front-end for every route the API does not own.
package pages

import (
	"html/template"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"keystone/internal/api"
	"keystone/internal/gatekeeper"

	"github.com/gin-gonic/gin"
)

var shell = template.Must(template.New("shell").Parse(`<!doctype html>
<html lang="{{.Locale}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body>
<div id="root" data-locale="{{.Locale}}" data-path="{{.Path}}"></div>
</body>
</html>
`))

type shellData struct {
	Title  string
	Locale string
	Path   string
}

type Handler struct {
	staticDir     string
	defaultLocale string
	title         string
}

// NewHandler serves files from staticDir when it is set and falls back to a
// bare HTML shell otherwise.
func NewHandler(staticDir, defaultLocale string) *Handler {
	return &Handler{staticDir: staticDir, defaultLocale: defaultLocale, title: "Keystone Gym"}
}

// NotFound is installed as the engine's NoRoute handler, so it runs after
// the gatekeeper has let the request through.
func (h *Handler) NotFound(c *gin.Context) {
	p := c.Request.URL.Path
	if strings.HasPrefix(p, "/api/") || p == "/api" {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Not found"})
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusMethodNotAllowed, api.ErrorResponse{Error: "Method not allowed"})
		return
	}

	if h.staticDir != "" {
		if file, ok := h.resolve(p); ok {
			c.File(file)
			return
		}
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = shell.Execute(c.Writer, shellData{
		Title:  h.title,
		Locale: gatekeeper.Locale(c, h.defaultLocale),
		Path:   p,
	})
}

// resolve maps a URL path onto a file under staticDir, trying the exported
// page forms before the root index.
func (h *Handler) resolve(urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	base := filepath.Join(h.staticDir, filepath.FromSlash(clean))

	candidates := []string{
		base,
		filepath.Join(base, "index.html"),
		base + ".html",
		filepath.Join(h.staticDir, "index.html"),
	}
	for _, f := range candidates {
		if info, err := os.Stat(f); err == nil && !info.IsDir() {
			return f, true
		}
	}
	return "", false
}
