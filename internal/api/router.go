package api

import "github.com/gofiber/fiber/v2"

// Register mounts all routes on the app.
func Register(app *fiber.App, h *Handler) {
	app.Get("/health", h.Health)

	v1 := app.Group("/v1")
	v1.Post("/query", h.Query)
	v1.Get("/stats", h.Stats)
	v1.Get("/cache/stats", h.CacheStats)
	v1.Delete("/cache", h.ClearCaches)
	v1.Delete("/session/:id", h.DeleteSession)
}
