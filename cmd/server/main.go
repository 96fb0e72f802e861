package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"raccoon/internal/api"
	"raccoon/internal/config"
	"raccoon/internal/logger"
	"raccoon/internal/repository"
	"raccoon/internal/service"
	"raccoon/internal/token"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFile)
	if err := cfg.Validate(); err != nil {
		logger.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.DBConfig{
		URL:        cfg.DatabaseURL,
		Retries:    cfg.DBConnectRetries,
		RetryDelay: cfg.DBConnectDelay,
	})
	if err != nil {
		logger.ErrorLogger.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()
	if err := repository.EnsureSchema(ctx, db); err != nil {
		logger.ErrorLogger.Fatalf("Failed to prepare schema: %v", err)
	}

	codec, err := token.NewCodec([]byte(cfg.EmailSecret))
	if err != nil {
		logger.ErrorLogger.Fatalf("Failed to create token codec: %v", err)
	}

	var mailer service.Mailer
	if cfg.SendGridAPIKey != "" {
		mailer = service.NewSendGridMailer(cfg.SendGridAPIKey, cfg.SMTP.Sender, cfg.SendGridFromName)
		logger.InfoLogger.Info("Email transport: SendGrid")
	} else {
		mailer = service.NewSMTPMailer(cfg.SMTP)
		logger.InfoLogger.Infof("Email transport: SMTP %s:%d", cfg.SMTP.Host, cfg.SMTP.Port)
	}

	var chat service.ChatNotifier = service.NopNotifier{}
	if cfg.Twilio.Enabled() {
		chat = service.NewTwilioNotifier(cfg.Twilio)
		logger.InfoLogger.Info("Chat notifications: Twilio")
	}

	sender := service.NewSenderService(mailer, chat, codec, cfg.PublicBaseURL, cfg.ContactReceiver)
	reservationRepo := repository.NewReservationRepository(db)
	svc := service.NewReservationService(reservationRepo, codec, cfg.NotifyTimeout, service.NotificationHooks(sender)...)

	if cfg.JobCompleteSchedule != "" {
		jobs := service.NewJobService(repository.NewJobRepository(db))
		scheduler, err := jobs.Start(cfg.JobCompleteSchedule)
		if err != nil {
			logger.ErrorLogger.Fatalf("Failed to start completion job: %v", err)
		}
		defer func() { <-scheduler.Stop().Done() }()
	}

	limiter, err := api.NewRateLimiter(cfg.RateLimit, cfg.RedisURL)
	if err != nil {
		logger.ErrorLogger.Fatalf("Failed to create rate limiter: %v", err)
	}

	router := api.NewRouter(api.Handlers{
		Reservations: api.NewUserReservationHandler(svc),
		Admin:        api.NewAdminHandler(svc),
		Contact:      api.NewContactHandler(sender),
		Health:       api.HealthHandler(db),
	}, api.RouterOptions{
		Prefix:         cfg.APIPrefix,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		PublicLimiter:  limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoLogger.Infof("Server running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorLogger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.InfoLogger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorLogger.Errorf("Graceful shutdown failed: %v", err)
	}
}
