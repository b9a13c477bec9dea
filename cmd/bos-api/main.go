// Package main provides the BOS API server.
package main

import (
	"context"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/bosmethod/bos/pkg/backup"
	"github.com/bosmethod/bos/pkg/cmd"
	"github.com/bosmethod/bos/pkg/config"
	"github.com/bosmethod/bos/pkg/eventbus"
	"github.com/bosmethod/bos/pkg/events"
	"github.com/bosmethod/bos/pkg/log"
	"github.com/bosmethod/bos/pkg/otelhelper"
	"github.com/bosmethod/bos/pkg/persistence"
	"github.com/bosmethod/bos/pkg/recovery"
	"github.com/bosmethod/bos/pkg/scheduler"
)

func main() {
	command := &cli.Command{
		Name:                  "bos-api",
		Usage:                 "Manage BOS methodology datasets over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
				Sources: cli.EnvVars("BOS_CONFIG"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "storage-url",
				Usage:   "Storage URL (file://<dir>, redis://<host> or postgres://<host>/<db>)",
				Sources: cli.EnvVars("STORAGE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: runAPI,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func runAPI(ctx context.Context, command *cli.Command) error {
	cfg, err := config.Load(command.String("config"))
	if err != nil {
		return err
	}

	// Flags beat file and env values.
	if command.Int("port") != 0 {
		cfg.Port = command.Int("port")
	}

	if v := command.String("storage-url"); v != "" {
		cfg.StorageURL = v
	}

	if v := command.String("event-bus"); v != "" {
		cfg.EventBus = v
	}

	if v := command.String("log-level"); v != "" {
		cfg.LogLevel = v
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Setup(cfg.LogLevel)

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing BOS API")

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		tracerProvider, err := otelhelper.InitTracer(ctx, "bos-api")
		if err != nil {
			return err
		}

		defer func() {
			if err := tracerProvider.Shutdown(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
			}
		}()
	}

	store, err := cmd.NewStore(ctx, cfg.StorageURL)
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close storage", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(cfg.EventBus, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	if err := subscribeAuditLog(ctx, eventBus, logger); err != nil {
		return err
	}

	backups := backup.NewManager(store, eventBus, backup.Config{MaxBackups: cfg.MaxBackups})
	persistenceManager := persistence.NewManager(store, backups, eventBus, persistence.Config{Source: "bos-api"})
	recoveryManager := recovery.NewManager(persistenceManager, backups, store, eventBus, recovery.Config{
		FallbackKey: cfg.FallbackKey,
	})

	if cfg.ScheduledBackups {
		backupScheduler := scheduler.NewScheduler(persistenceManager, backups, cfg.BackupSchedule)
		if err := backupScheduler.Start(ctx); err != nil {
			return err
		}

		defer backupScheduler.Stop()
	}

	api := NewAPI(logger, persistenceManager, backups, recoveryManager)

	return api.Start(cfg.Port)
}

// subscribeAuditLog records every dataset lifecycle event in the service log.
func subscribeAuditLog(ctx context.Context, bus eventbus.EventBus, logger *slog.Logger) error {
	audit := log.WithModule("audit")

	handler := func(ctx context.Context, event any) error {
		audit.InfoContext(ctx, "Dataset event", "event", event)

		return nil
	}

	for _, eventType := range []events.EventType{
		events.DatasetSavedEvent,
		events.DatasetImportedEvent,
		events.DatasetImportFailedEvent,
		events.BackupCreatedEvent,
		events.BackupRestoredEvent,
		events.BackupDeletedEvent,
		events.RecoveryExecutedEvent,
	} {
		if err := bus.Handle(eventType, handler); err != nil {
			return err
		}
	}

	if err := bus.Subscribe(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to subscribe audit log", "error", err)

		return err
	}

	return nil
}
