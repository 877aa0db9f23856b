package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/app"
	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	notificationWorker "github.com/jwalitptl/clinic-api/internal/worker"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	memoryBroker "github.com/jwalitptl/clinic-api/pkg/messaging/memory"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	appLogger.SetGlobal()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repos repository.Repositories
		db    health.Pinger
	)
	switch cfg.Database.Driver {
	case "postgres":
		sqlDB, err := postgres.NewDB(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer sqlDB.Close()

		if err := postgres.Migrate(ctx, sqlDB); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		repos = postgres.NewRepositories(sqlDB)
		db = sqlDB
	case "memory":
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		repos = memory.NewStore().Repositories()
	}

	a, err := app.New(app.Options{
		Config: cfg,
		Repos:  repos,
		DB:     db,
		Logger: *appLogger.Zerolog(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}

	// The memory driver has no separate worker process, so the outbox is
	// relayed in-process.
	if cfg.Database.Driver == "memory" {
		if err := startInProcessRelay(ctx, cfg, repos, a, appLogger); err != nil {
			log.Fatal().Err(err).Msg("failed to start outbox relay")
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.Router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("driver", cfg.Database.Driver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server exited properly")
}

func startInProcessRelay(ctx context.Context, cfg *config.Config, repos repository.Repositories, a *app.App, appLogger *logger.Logger) error {
	broker := memoryBroker.NewBroker()
	processor, err := worker.NewOutboxProcessor(repos.Outbox, broker, cfg.Outbox.ToWorkerConfig(), appLogger, a.Metrics)
	if err != nil {
		return err
	}
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return err
	}
	notifier := notificationWorker.NewNotificationWorker(
		broker,
		email.NewSMTPService(cfg.Email.ToSenderConfig()),
		loc,
		a.Metrics,
		*appLogger.Zerolog(),
	)

	go processor.Start(ctx)
	go func() {
		if err := notifier.Run(ctx); err != nil {
			log.Error().Err(err).Msg("notification worker stopped")
		}
	}()
	return nil
}
