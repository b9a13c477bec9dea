package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/bosmethod/bos/pkg/backup"
	"github.com/bosmethod/bos/pkg/persistence"
	"github.com/bosmethod/bos/pkg/recovery"
	"github.com/bosmethod/bos/pkg/services"
	"github.com/bosmethod/bos/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence *persistence.Manager
	backups     *backup.Manager
	recovery    *recovery.Manager
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistenceManager *persistence.Manager,
	backups *backup.Manager,
	recoveryManager *recovery.Manager,
) *API {
	return &API{
		logger:      logger,
		persistence: persistenceManager,
		backups:     backups,
		recovery:    recoveryManager,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	datasetService := services.NewDataset(a.persistence)

	handlers := web.NewAPIHandlers(datasetService, a.persistence, a.backups, a.recovery, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("BOS API")
	})

	f := app.Group("/flows")
	f.Get("/", handlers.GetFlows)
	f.Post("/", handlers.CreateFlow)
	f.Get("/:id", handlers.GetFlow)
	f.Put("/:id", handlers.UpdateFlow)
	f.Patch("/:id", handlers.UpdateFlow)
	f.Delete("/:id", handlers.DeleteFlow)

	app.Post("/import", handlers.ImportData)
	app.Get("/export", handlers.ExportData)

	b := app.Group("/backups")
	b.Get("/", handlers.GetBackups)
	b.Get("/:id", handlers.GetBackup)
	b.Post("/", handlers.CreateBackup)
	b.Post("/:id/restore", handlers.RestoreBackup)
	b.Delete("/:id", handlers.DeleteBackup)
	b.Delete("/", handlers.ClearBackups)

	app.Post("/recovery", handlers.ExecuteRecovery)
	app.Delete("/recovery/fallback", handlers.ClearFallbackMode)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
