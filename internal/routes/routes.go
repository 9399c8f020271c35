package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campaign-insights-service/internal/controller"
)

// Register attaches all HTTP routes to the Fiber app.
func Register(app *fiber.App, ingestController controller.IngestController) {
	app.Post("/ingest", ingestController.IngestAPI)
	app.Post("/upload", ingestController.UploadCSV)

	app.Get("/runs", ingestController.ListRuns)
	app.Get("/runs/:id", ingestController.GetRun)
	app.Delete("/runs/:id", ingestController.DeleteRun)
	app.Post("/runs/:id/diagnostics", ingestController.RetryDiagnostics)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
