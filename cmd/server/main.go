package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/divecrm/divecrm/internal/auth"
	"github.com/divecrm/divecrm/internal/config"
	"github.com/divecrm/divecrm/internal/database"
	"github.com/divecrm/divecrm/internal/email"
	"github.com/divecrm/divecrm/internal/handler"
	"github.com/divecrm/divecrm/internal/logger"
	"github.com/divecrm/divecrm/internal/middleware"
	"github.com/divecrm/divecrm/internal/model"
	"github.com/divecrm/divecrm/internal/renderer"
	"github.com/divecrm/divecrm/internal/repository"
	"github.com/divecrm/divecrm/internal/router"
	"github.com/divecrm/divecrm/internal/scheduler"
	"github.com/divecrm/divecrm/internal/service"
)

func main() {
	// Load .env if present (local development)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", "0.1.0").Msg("starting DiveCRM server")

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to PostgreSQL")

	// Connect to Redis
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("connected to Redis")

	// Initialize repositories
	customerRepo := repository.NewCustomerRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	deliveryRepo := repository.NewDeliveryLogRepository(db)

	// Initialize token service
	tokenSvc, err := auth.NewTokenService(cfg.Security.Tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token service")
	}

	// Initialize email sender
	sender, err := newSender(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize email sender")
	}
	log.Info().Str("provider", cfg.Email.Provider).Msg("email sender initialized")

	// Initialize renderer and services
	rend := renderer.New(templateRepo, model.Language(cfg.Scheduler.DefaultLanguage), cfg.Email.AppName)
	authSvc := service.NewAuthService(staffRepo, tokenSvc, cfg.Security.Password)
	dispatchSvc := service.NewDispatchService(customerRepo, deliveryRepo, rend, sender, log)

	// Initialize scheduler with a leader lease so one replica ticks
	lease := scheduler.NewLease(rdb, cfg.Scheduler.LeaderTTL, log)
	sched, err := scheduler.New(dispatchSvc, lease, cfg.Scheduler, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize scheduler")
	}

	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	if cfg.Scheduler.Enabled {
		sched.Start(schedCtx)
	} else {
		log.Info().Msg("scheduler disabled")
	}

	// Initialize handlers
	h := handler.New(db, rdb, log, cfg, authSvc, dispatchSvc, customerRepo, templateRepo, deliveryRepo, rend, sched)

	// Initialize middleware
	mw := middleware.New(rdb, log, cfg)

	// Set up router
	r := router.New(h, mw, log, tokenSvc)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.Scheduler.Enabled {
		sched.Stop(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func newSender(cfg *config.Config, log *logger.Logger) (email.Sender, error) {
	switch cfg.Email.Provider {
	case "gmail":
		return email.NewGmailSender(context.Background(), cfg.Email.Gmail)
	case "smtp", "":
		return email.NewSMTPSender(cfg.Email.SMTP, cfg.Email.FromAddress, cfg.Email.FromName)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Email.Provider)
	}
}
