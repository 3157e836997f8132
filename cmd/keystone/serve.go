package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "keystone/docs"
	"keystone/internal/account"
	"keystone/internal/auth"
	"keystone/internal/billing"
	"keystone/internal/booking"
	"keystone/internal/config"
	"keystone/internal/db"
	"keystone/internal/donation"
	"keystone/internal/events"
	"keystone/internal/gatekeeper"
	"keystone/internal/logger"
	"keystone/internal/member"
	"keystone/internal/notify"
	"keystone/internal/pages"
	"keystone/internal/payment"
	"keystone/internal/paypal"
	"keystone/internal/schedule"
	"keystone/internal/server"
	"keystone/internal/subscription"
	"keystone/internal/trial"
	"keystone/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start")

	return cmd
}

func serve(skipMigrations bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init()
	logger.Info("Starting Keystone", "version", Version)

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	logger.Info("Database connected")

	if !skipMigrations {
		if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
			return err
		}
		logger.Info("Migrations completed")
	}

	mailer := notify.NewMailer(cfg.EmailFrom, cfg.EmailFromName, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)

	provider, err := newAuthProvider(cfg, database, mailer)
	if err != nil {
		return err
	}
	resolver := auth.NewResolver(provider, auth.CookieConfig{
		AccessName:  cfg.SessionCookie,
		RefreshName: cfg.RefreshCookie,
		Secure:      cfg.CookieSecure,
	})
	locales := gatekeeper.NewLocales(cfg.Locales, cfg.DefaultLocale)

	publisher := newPublisher(cfg)
	twilioAPI := notify.NewTwilioAPI(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
	notifier := notify.New(
		notify.NewWhatsApp(twilioAPI, cfg.TwilioWhatsAppNumber, cfg.OwnerPhoneNumber),
		notify.NewSMS(twilioAPI, cfg.TwilioPhoneNumber, cfg.OwnerPhoneNumber),
		notify.NewEmail(mailer, cfg.OwnerEmail),
	)

	gateway := billing.NewStripeGateway(cfg.StripeSecretKey, nil)
	verifier := billing.NewStripeVerifier(cfg.StripeWebhookSecret)
	orders := paypal.NewClient(cfg.PayPalBaseURL(), cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.HTTPClientTimeout)

	memberRepo := member.NewRepository(database)
	scheduleRepo := schedule.NewRepository(database)
	subscriptionRepo := subscription.NewRepository(database)
	ledger := donation.NewLedger(donation.NewRepository(database), publisher)
	bookingService := booking.NewService(booking.NewRepository(database), scheduleRepo, memberRepo, cfg.Location)

	synchronizer := webhook.NewSynchronizer(gateway, memberRepo, subscriptionRepo, ledger, publisher)

	plan := subscription.Plan{
		PriceCents: cfg.SubscriptionPriceCents,
		Interval:   cfg.SubscriptionInterval,
		Currency:   cfg.Currency,
	}

	rateLimit, closeLimiter := newRateLimit(cfg)
	defer closeLimiter()

	srv := server.New(cfg, server.Deps{
		Resolver:   resolver,
		Roles:      memberRepo,
		Gatekeeper: gatekeeper.New(resolver, locales),
		Locales:    cfg.Locales,
		DB:         database,
		RateLimit:  rateLimit,
		Handlers: server.Handlers{
			Account:      account.NewHandler(resolver, memberRepo, locales, cfg.PublicURL),
			Member:       member.NewHandler(memberRepo, provider, bookingService),
			Subscription: subscription.NewHandler(subscriptionRepo, memberRepo, gateway, plan, cfg.PublicURL),
			Booking:      booking.NewHandler(bookingService),
			Schedule:     schedule.NewHandler(scheduleRepo),
			Payment:      payment.NewHandler(payment.NewRepository(database), memberRepo),
			Donation:     donation.NewHandler(ledger, gateway, orders, cfg.Currency, cfg.PublicURL),
			Trial:        trial.NewHandler(trial.NewRepository(database), notifier, publisher),
			Webhook:      webhook.NewHandler(verifier, synchronizer),
			Pages:        pages.NewHandler(cfg.StaticDir, cfg.DefaultLocale),
		},
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
	return nil
}

func newAuthProvider(cfg *config.Config, database *sqlx.DB, mailer *notify.Mailer) (auth.Provider, error) {
	if cfg.AuthProvider == "gotrue" {
		logger.Info("Using hosted auth provider", "url", cfg.SupabaseURL)
		return auth.NewGoTrueProvider(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.HTTPClientTimeout)
	}
	logger.Info("Using local auth provider")
	return auth.NewLocalProvider(database, cfg.JWTSecret, mailer.SendPasswordReset)
}

func newPublisher(cfg *config.Config) events.Publisher {
	if cfg.RabbitMQURL == "" {
		logger.Info("No broker configured, domain events are discarded")
		return events.Nop{}
	}
	return events.NewAMQPPublisher(cfg.RabbitMQURL)
}

// newRateLimit prefers the shared Redis bucket and keeps a per-process
// limiter as the fallback for when Redis is absent or failing.
func newRateLimit(cfg *config.Config) (gin.HandlerFunc, func()) {
	local := server.NewLocalLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	if cfg.RedisAddr == "" {
		return server.RateLimitMiddleware(nil, local), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unreachable, rate limiting per process", "addr", cfg.RedisAddr)
		_ = client.Close()
		return server.RateLimitMiddleware(nil, local), func() {}
	}

	logger.Info("Rate limiting through Redis", "addr", cfg.RedisAddr)
	limiter := server.NewRedisLimiter(client, cfg.RateLimitRPS, cfg.RateLimitBurst)
	return server.RateLimitMiddleware(limiter, local), func() { _ = client.Close() }
}
