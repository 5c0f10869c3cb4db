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

	"github.com/Rescueaii/rescue-ai-web/internal/ai"
	"github.com/Rescueaii/rescue-ai-web/internal/cases"
	"github.com/Rescueaii/rescue-ai-web/internal/config"
	"github.com/Rescueaii/rescue-ai-web/internal/db"
	"github.com/Rescueaii/rescue-ai-web/internal/geocode"
	httpapi "github.com/Rescueaii/rescue-ai-web/internal/http"
	"github.com/Rescueaii/rescue-ai-web/internal/http/handlers"
	"github.com/Rescueaii/rescue-ai-web/internal/realtime"
	"github.com/Rescueaii/rescue-ai-web/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "rescue-ai-web").Logger()

	var (
		store  cases.Store
		pinger handlers.Pinger
	)
	if cfg.DatabaseURL == "" {
		mem := cases.NewMemStore()
		store, pinger = mem, mem
		logger.Info().Msg("using in-memory store")
	} else {
		pg, err := db.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect db")
		}
		defer pg.Close()
		store, pinger = pg, pg
	}

	geocoder := &geocode.NominatimGeocoder{
		BaseURL:     cfg.NominatimURL,
		UserAgent:   cfg.NominatimUserAgent,
		MinInterval: time.Second,
	}
	resolver := geocode.NewResolver(
		geocoder,
		cfg.RegionCity+", "+cfg.RegionCountry,
		geocode.Coordinates{Lat: cfg.FallbackLat, Lng: cfg.FallbackLng},
		logger,
	)

	var assistant ai.Assistant
	var transcriber ai.Transcriber
	if cfg.AIBaseURL == "" {
		assistant = ai.MockAssistant{}
		transcriber = ai.MockTranscriber{}
		logger.Info().Msg("using mock AI assistant")
	} else {
		assistant = ai.OpenAICompatAssistant{
			BaseURL: cfg.AIBaseURL,
			Model:   cfg.AIModel,
			APIKey:  cfg.AIKey,
			Timeout: cfg.TriageTimeout,
		}
		transcriber = ai.GatewayTranscriber{
			BaseURL: cfg.AIBaseURL,
			APIKey:  cfg.AIKey,
			Model:   "whisper-1",
		}
	}

	hub := realtime.NewHub(logger)
	svc := &cases.Service{Store: store, Hub: hub, Logger: logger}
	pipeline := &service.Triage{
		Cases:      svc,
		Resolver:   resolver,
		Classifier: &ai.Classifier{Assistant: assistant, Logger: logger},
		Timeout:    cfg.TriageTimeout,
		Logger:     logger,
	}

	router := httpapi.Router(cfg, svc, pipeline, transcriber, hub, pinger, logger)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: cfg.RequestTimeout,
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
