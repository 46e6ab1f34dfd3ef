package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// NewApp builds the fiber application with every API route registered.
func NewApp(handlers *APIHandlers) *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())
	app.Get("/health", handlers.HealthCheck)

	app.Get("/organizations/:orgId/operations", handlers.ListOperations)
	app.Post("/organizations/:orgId/operations", handlers.CreateOperation)

	o := app.Group("/operations")
	o.Get("/:id", handlers.GetOperation)
	o.Patch("/:id", handlers.UpdateOperation)
	o.Delete("/:id", handlers.DeleteOperation)

	p := app.Group("/projects")
	p.Get("/:id/operations", handlers.ProjectOperations)
	p.Post("/:id/operations", handlers.LinkProjectOperation)
	p.Get("/:id/workflow", handlers.GetProjectWorkflow)
	p.Post("/:id/workflow", handlers.EnsureProjectWorkflow)

	w := app.Group("/workflows")
	w.Post("/:id/nodes", handlers.CreateNode)
	w.Patch("/:id/nodes/:nodeId", handlers.UpdateNode)
	w.Delete("/:id/nodes/:nodeId", handlers.DeleteNode)
	w.Post("/:id/edges", handlers.CreateEdge)
	w.Patch("/:id/edges/:edgeId", handlers.UpdateEdge)
	w.Delete("/:id/edges/:edgeId", handlers.DeleteEdge)

	app.Get("/command-projects/:id/progress", handlers.GetProgress)
	app.Post("/plannings/:id/history", handlers.RecordHistory)

	return app
}
