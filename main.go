package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptosim/src/api"
	"cryptosim/src/config"
	"cryptosim/src/database"
	"cryptosim/src/repositories"
	"cryptosim/src/repositories/memory"
	"cryptosim/src/scheduler"
	"cryptosim/src/utils"
	aws_handler "cryptosim/src/utils/aws"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	checkDB := flag.Bool("check-db", false, "check the database connection and exit")
	flag.Parse()

	cfg, err := config.LoadConfig("./settings", os.Getenv("ENV"))
	if err != nil {
		log.Println(err, "Error while loading config")
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		log.Println(err, "Error while creating logger")
		os.Exit(1)
	}

	if cfg.NeedsSecrets() {
		awsHandler, err := aws_handler.NewAWSHandler(cfg.AWS.Region)
		if err != nil {
			logger.WithError(err).Fatal("Error while creating AWS session")
		}
		if err := cfg.ResolveSecrets(awsHandler.SecretManager); err != nil {
			logger.WithError(err).Fatal("Error while resolving secrets")
		}
	}

	if *checkDB {
		if err := checkDatabase(cfg, logger); err != nil {
			logger.WithError(err).Fatal("Database check failed")
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Error while running")
	}
}

func checkDatabase(cfg *config.Config, logger *logrus.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.SetupDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	logger.WithField("host", cfg.Databases.SQL.Host).Info("Database connection OK")
	return nil
}

// openStore builds the store selected by store.driver. The returned cleanup
// stops background jobs tied to the store; the store itself is closed by the
// caller.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repositories.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.MemoryStore:
		logger.Warn("Using in-memory store, data will not survive a restart")
		return memory.NewStore(), func() {}, nil
	case config.PostgresStore:
		logger.WithFields(logrus.Fields{
			"host":     cfg.Databases.SQL.Host,
			"database": cfg.Databases.SQL.Database,
		}).Info("Connecting to database")

		pool, err := database.SetupDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Databases.SQL.AutoMigrate {
			if err := database.Migrate(pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}

		cleanup := func() {}
		if cfg.Monitor.PoolStatsSpec != "" {
			monitor, err := scheduler.NewPoolMonitor(cfg.Monitor.PoolStatsSpec, pool, logrus.NewEntry(logger))
			if err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("invalid monitor.poolStatsSpec: %w", err)
			}
			cleanup = monitor.Cancel
		}
		return repositories.NewPostgresStore(pool), cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, stopJobs, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	defer stopJobs()

	logger.WithField("jwt_secret_configured", cfg.Auth.JWTSecret != "").Info("Auth configured")

	server := api.NewServer(cfg, logger, store)
	httpServer := api.NewHTTPServer(server, cfg.Service.Port)

	errC := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Service.Port).Info("Starting server")

		// "ListenAndServe always returns a non-nil error. After Shutdown or Close, the returned error is
		// ErrServerClosed."
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
		close(errC)
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return <-errC
}
