package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cropscout/config"
	"cropscout/internal/api/rest"
	"cropscout/internal/api/telegram"
	app "cropscout/internal/application"
	"cropscout/internal/container"
	"cropscout/internal/domain/port"
	"cropscout/internal/infrastructure/imagestore"
	"cropscout/internal/infrastructure/inference"
	"cropscout/internal/infrastructure/storage"
	"cropscout/internal/infrastructure/vision"
	"cropscout/internal/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, log); err != nil {
		log.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	images, closeImages, err := openImageStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeImages(); err != nil {
			log.Warn("failed to close image store", "error", err)
		}
	}()

	models, err := openModelProvider(cfg, log)
	if err != nil {
		return err
	}

	engine := vision.New(vision.InputSize, cfg.MaxImagePixels)
	log.Info("vision engine ready", "gocv", vision.GoCVEnabled)

	c := container.New(container.Deps{
		Spots:            storage.NewSpotRepository(db),
		Users:            storage.NewMemoryUserRepository(),
		Images:           images,
		Models:           models,
		Vision:           engine,
		Quality:          cfg.Quality,
		Analysis:         app.AnalyzerConfig{Preference: cfg.ModelPreference, InferenceTimeout: cfg.InferenceTimeout},
		FindingThreshold: cfg.FindingThreshold,
		Log:              log,
	})

	e := rest.New(log,
		rest.NewFieldHandler(c.FieldService, c.SummaryService),
		rest.NewSpotHandler(c.SpotService),
		rest.NewSystemHandler(c.Analyzer, c.Cache, c.Repo),
	)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, c.ScoutingService, log.With("component", "telegram"))
		if err != nil {
			return fmt.Errorf("telegram bot: %w", err)
		}
		go func() {
			log.Info("telegram bot is running")
			if err := bot.Run(ctx); err != nil {
				errCh <- fmt.Errorf("telegram bot: %w", err)
			}
		}()
	} else {
		log.Info("TELEGRAM_TOKEN is empty, telegram bot disabled")
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown", "error", err)
	}
	return runErr
}

func openImageStore(ctx context.Context, cfg *config.Config) (port.ImageStore, func() error, error) {
	if cfg.ImageStore == "gcs" {
		return imagestore.NewGCS(ctx, cfg.GCSBucket, cfg.GCSPrefix)
	}
	s, err := imagestore.NewLocal(cfg.UploadDir)
	if err != nil {
		return nil, nil, err
	}
	return s, func() error { return nil }, nil
}

func openModelProvider(cfg *config.Config, log *slog.Logger) (port.ModelProvider, error) {
	if cfg.ModelServerURL != "" {
		log.Info("using model server", "url", cfg.ModelServerURL)
		return inference.NewHTTPProvider(cfg.ModelServerURL, nil), nil
	}

	p := inference.NewStaticProvider(cfg.ModelsDir)
	unmatched, err := p.Rescan()
	if err != nil {
		return nil, fmt.Errorf("scan models: %w", err)
	}
	for _, name := range unmatched {
		log.Warn("weights file does not match a known architecture", "file", name)
	}
	models, _ := p.ListAvailable(context.Background())
	log.Info("using local model provider", "dir", cfg.ModelsDir, "models", len(models))
	return p, nil
}
