package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/api"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/cache"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/config"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/logging"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/matching"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/reporting"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/setup"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "admin" {
		cli := setup.NewCLI(configManager, logger, os.Stdout)
		if err := cli.Run(ctx, os.Args[2:]); err != nil {
			logger.WithError(err).Error("Admin command failed")
			os.Exit(1)
		}
		return
	}

	if err := configManager.Validate(); err != nil {
		logger.WithError(err).Fatal("Configuration validation failed")
	}
	if err := config.EnsureDataDir(&cfg.Storage); err != nil {
		logger.WithError(err).Fatal("Failed to create data directory")
	}

	logger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"backend":     cfg.Storage.Backend,
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
	}).Info("Starting intake analytics server")

	backend, err := setup.OpenBackend(ctx, configManager, setup.Options{Pooled: true, Migrate: true}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open record backend")
	}
	defer backend.Close()

	viewCache, closeRemote := newCache(cfg.Cache, logger)
	defer closeRemote()

	service := reporting.NewService(backend.Loader, viewCache, matching.New(cfg.Matching), logger)
	server := api.NewServer(configManager, service, logger)

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newCache builds the view cache, sharing it through Redis when configured.
// An unreachable Redis leaves the process with its local cache only.
func newCache(cfg domain.CacheConfig, logger *logrus.Logger) (*cache.Cache, func()) {
	closeRemote := func() {}
	options := cache.Config{
		TTL:        cfg.TTL,
		MaxEntries: cfg.MaxEntries,
		Logger:     logger,
	}

	if cfg.RedisURL != "" {
		remote, err := cache.NewRedisRemote(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			logger.WithError(err).Warn("Shared cache unavailable, using local cache only")
		} else {
			options.Remote = remote
			closeRemote = func() { _ = remote.Close() }
		}
	}

	viewCache, err := cache.New(options)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create view cache")
	}
	return viewCache, closeRemote
}
