package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"physician_credential_tracker/internal/app"
	domainDelivery "physician_credential_tracker/internal/domain/delivery"
	"physician_credential_tracker/internal/infra/config"
	idb "physician_credential_tracker/internal/infra/database"
	"physician_credential_tracker/internal/infra/delivery"
	"physician_credential_tracker/internal/infra/logger"
	"physician_credential_tracker/internal/infra/scheduler"

	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.Infof("Credential tracker starting. Environment: %s, transport: %s", cfg.Environment, cfg.NotifyTransport)

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	// Initialize Repositories
	physicianRepo := idb.NewPostgresPhysicianRepository(db)
	credentialRepo := idb.NewPostgresCredentialRepository(db)
	notificationRepo := idb.NewPostgresNotificationRepository(db)
	renewalRepo := idb.NewPostgresRenewalRepository(db)

	// Initialize the delivery transport behind the send hook.
	sender, err := buildSender(cfg)
	if err != nil {
		log.Fatalf("FATAL: could not initialize %s transport: %v", cfg.NotifyTransport, err)
	}

	notificationService := app.NewNotificationService(physicianRepo, credentialRepo, notificationRepo, sender, log)
	renewalService := app.NewRenewalService(physicianRepo, credentialRepo, renewalRepo, log)
	log.Info("Services initialized")

	// Register the recurring jobs, each on its own cadence.
	sched := scheduler.New(log)
	registerJobs(sched, cfg, notificationService, renewalService)

	if err := sched.Start(); err != nil {
		log.Fatalf("FATAL: could not start scheduler: %v", err)
	}
	log.Info("Scheduler started. Tracker is running.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	sched.Stop()
	log.Info("Tracker shut down gracefully")
}

func buildSender(cfg *config.AppConfig) (domainDelivery.Sender, error) {
	switch cfg.NotifyTransport {
	case config.TransportEmail:
		return delivery.NewResendSender(cfg.ResendAPIKey, cfg.ResendAPIURL, cfg.FromEmail), nil
	case config.TransportTelegram:
		bot, err := telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		})
		if err != nil {
			return nil, err
		}
		return delivery.NewTelegramSender(bot, cfg.AlertChatID), nil
	default:
		return delivery.NewConsoleSender(logger.Get()), nil
	}
}

func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.AppConfig,
	notifications *app.NotificationService,
	renewals *app.RenewalService,
) {
	// Registration cannot fail here: names are unique and intervals validated
	// by config, so errors indicate a programming mistake.
	must := func(err error) {
		if err != nil {
			logger.Get().Fatalf("FATAL: job registration failed: %v", err)
		}
	}

	must(sched.Register("expiration-check", cfg.ExpirationCheckInterval, func(ctx context.Context) error {
		if err := notifications.CheckUpcomingExpirations(ctx); err != nil {
			return err
		}
		if err := notifications.CheckCertificationExpirations(ctx); err != nil {
			return err
		}
		return renewals.CheckAndExpireWorkflows(ctx)
	}))
	must(sched.Register("queue-processing", cfg.QueueProcessInterval, notifications.ProcessNotificationQueue))
	must(sched.Register("retry-failed", cfg.RetryFailedInterval, notifications.RetryFailedNotifications))
	must(sched.Register("cleanup-old", cfg.CleanupInterval, func(ctx context.Context) error {
		return notifications.CleanupOldNotifications(ctx, cfg.NotificationRetentionDays)
	}))
	must(sched.Register("auto-create-renewal-workflows", cfg.AutoRenewalInterval, renewals.AutoCreateRenewalWorkflows))
}
