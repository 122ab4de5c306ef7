// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/config"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/database"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/events"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/i18n"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/repository"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/router"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/services"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/templates"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

const (
	expirySweepInterval = time.Minute
	expirySweepBatch    = 500
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := utils.NewLogger(cfg.LogLevel, cfg.Environment)

	// Initialize database
	db, err := database.Initialize(cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db, logger)

	// Run database migrations
	if err := database.RunMigrations(db, logger); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	// Initialize i18n
	if err := i18n.Initialize(); err != nil {
		logger.WithError(err).Fatal("Failed to initialize i18n")
	}

	registry, err := templates.Load(cfg.Licensing.TemplatesPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load license templates")
	}

	documents, err := services.NewContractDocumentStore(cfg.AWS)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize contract document store")
	}

	store := repository.NewGormStore(db)
	opts := services.Options{
		Store:     store,
		Templates: registry,
		Licensing: cfg.Licensing,
		Documents: documents,
		Logger:    logger,
	}
	if cfg.Payment.StripeSecretKey != "" {
		opts.Gateway = services.NewStripeSettlementGateway(cfg.Payment.StripeSecretKey)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set; settlement confirmation is disabled")
	}
	svc := services.New(opts)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Outbox relay
	var publisher events.Publisher = events.NewLogPublisher(logger)
	if cfg.NATS.URL != "" {
		natsPublisher, err := events.NewNATSPublisher(ctx, cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect event publisher")
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}
	relay := events.NewRelay(store, publisher, utils.SystemClock{}, cfg.NATS.RelayBatch, logger)
	go relay.Run(ctx, time.Duration(cfg.NATS.RelayInterval)*time.Second)

	go sweepExpiredNegotiations(ctx, svc.Negotiations, logger)

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(ctx, cfg, svc, registry, store, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")
	stop()

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func sweepExpiredNegotiations(ctx context.Context, negotiations *services.NegotiationService, logger *logrus.Logger) {
	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := negotiations.ExpireStale(ctx, expirySweepBatch)
			if err != nil && ctx.Err() == nil {
				logger.WithError(err).Error("Negotiation expiry sweep failed")
				continue
			}
			if expired > 0 {
				logger.WithField("expired", expired).Info("Expired stale negotiations")
			}
		}
	}
}
