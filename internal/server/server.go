package server

import (
	"context"
	"net/http"
	"time"

	"keystone/internal/account"
	"keystone/internal/auth"
	"keystone/internal/booking"
	"keystone/internal/config"
	"keystone/internal/donation"
	"keystone/internal/gatekeeper"
	"keystone/internal/member"
	"keystone/internal/pages"
	"keystone/internal/payment"
	"keystone/internal/schedule"
	"keystone/internal/subscription"
	"keystone/internal/trial"
	"keystone/internal/webhook"

	"github.com/gin-gonic/gin"
)

// Handlers groups the per-domain HTTP handlers mounted by the server.
type Handlers struct {
	Account      *account.Handler
	Member       *member.Handler
	Subscription *subscription.Handler
	Booking      *booking.Handler
	Schedule     *schedule.Handler
	Payment      *payment.Handler
	Donation     *donation.Handler
	Trial        *trial.Handler
	Webhook      *webhook.Handler
	Pages        *pages.Handler
}

type Deps struct {
	Resolver   *auth.Resolver
	Roles      auth.RoleLookup
	Gatekeeper *gatekeeper.Gatekeeper
	Locales    []string
	DB         Pinger
	// RateLimit guards the public POST endpoints. Nil disables it.
	RateLimit gin.HandlerFunc
	Handlers  Handlers
}

type Server struct {
	router *gin.Engine
	http   *http.Server
}

func New(cfg *config.Config, deps Deps) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware(cfg.PublicURL))
	router.Use(deps.Gatekeeper.Middleware())

	registerRoutes(router, deps)

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func registerRoutes(router *gin.Engine, deps Deps) {
	h := deps.Handlers
	limit := deps.RateLimit
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}

	router.GET("/health", Health(deps.DB))
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	router.GET("/auth/callback", h.Account.Callback)
	for _, locale := range deps.Locales {
		router.GET("/"+locale+"/auth/callback", h.Account.Callback)
	}

	apiGroup := router.Group("/api")

	authGroup := apiGroup.Group("/auth")
	{
		authGroup.POST("/signup", limit, h.Account.Signup)
		authGroup.POST("/login", limit, h.Account.Login)
		authGroup.POST("/logout", limit, h.Account.Logout)
		authGroup.POST("/forgot-password", limit, h.Account.ForgotPassword)
		authGroup.POST("/reset-password", limit, auth.RequireSession(deps.Resolver), h.Account.ResetPassword)
	}

	apiGroup.GET("/schedule", h.Schedule.List)
	apiGroup.POST("/trial-requests", limit, h.Trial.Create)

	donations := apiGroup.Group("/donations")
	donations.Use(limit)
	{
		donations.POST("/stripe", h.Donation.Stripe)
		donations.POST("/paypal", h.Donation.PayPalOrder)
		donations.POST("/paypal/capture", h.Donation.PayPalCapture)
	}

	apiGroup.POST("/webhooks/stripe", h.Webhook.Stripe)

	protected := apiGroup.Group("")
	protected.Use(auth.RequireSession(deps.Resolver))
	{
		protected.GET("/me", h.Member.GetMe)
		protected.PUT("/me", h.Member.UpdateMe)
		protected.GET("/dashboard", h.Member.Dashboard)

		protected.GET("/subscription", h.Subscription.Get)
		protected.POST("/subscription/checkout", h.Subscription.Checkout)
		protected.POST("/subscription/portal", h.Subscription.Portal)
		protected.GET("/stripe/payment-method", h.Subscription.PaymentMethod)

		protected.GET("/bookings", h.Booking.ListMyBookings)
		protected.POST("/bookings", h.Booking.BookClass)

		protected.GET("/payments", h.Payment.List)
	}

	admin := protected.Group("/admin")
	admin.Use(auth.LoadRole(deps.Roles), auth.RequireRole(member.RoleAdmin))
	{
		admin.GET("/members", h.Member.ListMembers)
	}

	router.NoRoute(h.Pages.NotFound)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// corsMiddleware echoes the site origin only. Credentials are allowed so the
// session cookies travel with API calls made from the front-end.
func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && origin == allowedOrigin {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, Stripe-Signature")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
			c.Writer.Header().Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
