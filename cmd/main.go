package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"tandem/config"
	"tandem/pkg/backend"
	"tandem/pkg/bot"
	"tandem/pkg/logger"
	"tandem/service"
	"tandem/storage"
	"tandem/storage/cache"
	"tandem/storage/local"
	"tandem/storage/postgres"
	"tandem/storage/remote"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)
	ctx := context.Background()

	deviceCache, err := cache.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open device cache", logger.Error(err))
		os.Exit(1)
	}
	defer deviceCache.Close()

	client := backend.New(cfg.BackendURL, cfg.BackendAnonKey, log)

	factory, closeStorage, err := newStorage(ctx, cfg, client, deviceCache, log)
	if err != nil {
		log.Error("Failed to initialize storage", logger.String("variant", cfg.StorageVariant), logger.Error(err))
		os.Exit(1)
	}
	defer closeStorage()

	log.Info("🚀 Tandem is initializing...",
		logger.String("storage", cfg.StorageVariant),
		logger.String("cache", cfg.CacheDriver),
		logger.String("school", cfg.SchoolName),
	)

	tgBot, err := bot.New(&cfg, service.Deps{
		Auth:    client,
		Storage: factory,
		Cache:   deviceCache,
		Log:     log,
		Options: service.Options{
			School:          cfg.SchoolName,
			RequirePostcode: cfg.RequirePostcode,
			RequireChildren: cfg.RequireChildren,
		},
	}, log)
	if err != nil {
		log.Error("Failed to initialize bot", logger.Error(err))
		os.Exit(1)
	}

	srv := bot.NewServer(cfg.AppPort, tgBot.Svc, log)
	go func() {
		log.Info("HTTP API is starting...", logger.Int("port", cfg.AppPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP API stopped", logger.Error(err))
		}
	}()

	go tgBot.Start()

	log.Info("🚀 Tandem is running.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("Stopping bot and shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP API shutdown failed", logger.Error(err))
	}
	tgBot.Stop()
}

// newStorage picks the data-access variant named by STORAGE_VARIANT.
func newStorage(ctx context.Context, cfg config.Config, client *backend.Client, c cache.Cache, log logger.ILogger) (storage.Factory, func(), error) {
	switch cfg.StorageVariant {
	case config.StorageRemote:
		return remote.NewFactory(client, log), func() {}, nil
	case config.StorageLocal:
		stg := local.New(c, cfg.SchoolName, log)
		return storage.Shared(stg), stg.Close, nil
	case config.StoragePostgres:
		stg, err := postgres.New(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return storage.Shared(stg), stg.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown storage variant %q", cfg.StorageVariant)
	}
}
