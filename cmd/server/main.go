package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"compliance-calendar/internal/ai"
	"compliance-calendar/internal/app"
	"compliance-calendar/internal/config"
	"compliance-calendar/internal/logging"
	"compliance-calendar/internal/server"
)

func main() {
	config.LoadEnvFiles()
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.NewPGStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	if cfg.MigrateOnStart {
		if err := store.Migrate(ctx); err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
	}

	appInstance := &app.App{
		Store:    store,
		Google:   app.NewGoogleCalendar(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
		Logger:   logger,
		TimeZone: cfg.TimeZone,
	}
	if cfg.OpenAIKey != "" {
		appInstance.AI = ai.NewOpenAI(ai.Config{
			APIKey:  cfg.OpenAIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.OpenAITimeout,
		}, logger)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware(logger))
	appInstance.Routes(router, app.AuthMiddleware(cfg.JWTSecret, cfg.StaticTokens))

	if cfg.EnableReminders {
		dispatcher := app.NewDispatcher(store, app.LogNotifier{Logger: logger}, logger)
		if err := dispatcher.Start(cfg.ReminderSpec); err != nil {
			logger.Error("reminders disabled", "error", err)
		} else {
			defer dispatcher.Stop()
		}
	}

	logger.Info("compliance calendar starting",
		"port", cfg.Port,
		"calendar_tz", cfg.TimeZone,
		"google", cfg.GoogleConfigured(),
		"assistant", appInstance.AI != nil,
		"reminders", cfg.EnableReminders,
	)
	if err := server.Run(ctx, cfg.Addr(), router, logger, cfg.ShutdownTimeout); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
