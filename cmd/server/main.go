package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rentreel/rentreel/internal/analysis"
	"github.com/rentreel/rentreel/internal/api"
	"github.com/rentreel/rentreel/internal/assistant"
	"github.com/rentreel/rentreel/internal/config"
	"github.com/rentreel/rentreel/internal/db"
	"github.com/rentreel/rentreel/internal/gemini"
	"github.com/rentreel/rentreel/internal/listing"
	"github.com/rentreel/rentreel/internal/logging"
	"github.com/rentreel/rentreel/internal/muxvideo"
	"github.com/rentreel/rentreel/internal/places"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("starting rentreel server", "version", config.Version, "data_dir", cfg.DataDir)

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := listing.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}
	logger.Info("API auth token ready", "token", logging.SanitizeKey(authToken))

	muxClient := muxvideo.NewClient(muxvideo.ClientConfig{
		APIBaseURL:    cfg.Mux.APIBaseURL,
		TokenID:       cfg.Mux.TokenID,
		TokenSecret:   cfg.Mux.TokenSecret,
		WebhookSecret: cfg.Mux.WebhookSecret,
		Logger:        logging.WithComponent(logger, "mux"),
	})

	poller := muxvideo.NewPoller(muxvideo.PollerConfig{
		StreamBaseURL:    cfg.Mux.StreamBaseURL,
		ProbeMaxAttempts: cfg.Video.ProbeMaxAttempts,
		FetchMaxAttempts: cfg.Video.FetchMaxAttempts,
		Backoff:          muxvideo.ConstantBackoff{Interval: cfg.Video.RetryDelay()},
		Logger:           logging.WithComponent(logger, "poller"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	geminiClient, err := gemini.NewClient(ctx, cfg.AI.GeminiAPIKey, cfg.AI.Model,
		logging.WithComponent(logger, "gemini"))
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}

	analyzer := analysis.New(poller, geminiClient, logging.WithComponent(logger, "analysis"))
	listingSvc := listing.NewService(repo, logging.WithComponent(logger, "listing"))
	assistantSvc := assistant.New(geminiClient, logging.WithComponent(logger, "assistant"))

	var placesClient *places.Client
	if cfg.Places.APIKey != "" {
		placesClient = places.NewClient(places.ClientConfig{
			APIKey: cfg.Places.APIKey,
			Logger: logging.WithComponent(logger, "places"),
		})
		logger.Info("places autocomplete enabled")
	} else {
		logger.Info("places autocomplete disabled (no API key)")
	}

	serverCfg := api.ServerConfig{
		Port:           cfg.Port,
		ListingService: listingSvc,
		Repository:     repo,
		Uploader:       muxClient,
		Readiness:      poller,
		Analysis:       analyzer,
		Assistant:      assistantSvc,
		Logger:         logger,
		StartTime:      startTime,
	}
	if placesClient != nil {
		serverCfg.Places = placesClient
	}

	apiServer := api.NewServer(serverCfg)

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureAuthToken(repo listing.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
