package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shiftpulse/backend/internal/config"
	"github.com/shiftpulse/backend/internal/db"
	httpapi "github.com/shiftpulse/backend/internal/http"
	"github.com/shiftpulse/backend/internal/models"
	"github.com/shiftpulse/backend/internal/patterns"
	"github.com/shiftpulse/backend/internal/publish"
	"github.com/shiftpulse/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "shiftpulse-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	var dailyStorage patterns.Storage[models.DailyPattern]
	var slotStorage patterns.Storage[models.TimeslotPattern]
	if cfg.Learning.PersistPatterns {
		dailyStorage = db.NewDailyPatternStore(store.Pool)
		slotStorage = db.NewTimeslotPatternStore(store.Pool)
	} else {
		dailyStorage = patterns.NewMemoryStore[models.DailyPattern]()
		slotStorage = patterns.NewMemoryStore[models.TimeslotPattern]()
		logger.Info().Msg("pattern persistence disabled, using in-memory stores")
	}

	var publisher publish.Publisher
	if cfg.DashboardURL == "" {
		publisher = publish.MockPublisher{}
		logger.Info().Msg("using mock dashboard publisher")
	} else {
		publisher = publish.HTTPPublisher{BaseURL: cfg.DashboardURL, APIKey: cfg.AdminKey}
	}

	processor := service.NewProcessingService(store, publisher, logger, cfg, dailyStorage, slotStorage)

	router := httpapi.Router(cfg, store, processor, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
