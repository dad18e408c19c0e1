// Package main provides the Leadflow API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/leadflow/pkg/cmd"
	"github.com/dukex/leadflow/pkg/services"
	"github.com/dukex/leadflow/pkg/validation"
	"github.com/dukex/leadflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	engine   *cmd.Engine
	pipeline *validation.Pipeline
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	engine *cmd.Engine,
	pipeline *validation.Pipeline,
) *API {
	return &API{
		logger:   logger,
		engine:   engine,
		pipeline: pipeline,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		a.engine.Flow,
		a.engine.Execution,
		a.engine.Campaign,
		services.NewContacts(a.pipeline, a.engine.Campaign),
		a.engine.Lead,
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Leadflow API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	a.logger.Info("Starting API server", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}
