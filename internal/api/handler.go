// Package api is the thin HTTP delivery layer over the query engine.
package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finsight/finsight/internal/engine"
	"github.com/finsight/finsight/internal/schema"
)

type Handler struct {
	engine *engine.Engine
	log    *zap.Logger
}

func NewHandler(e *engine.Engine, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{engine: e, log: log}
}

// Query handles POST /v1/query.
func (h *Handler) Query(c *fiber.Ctx) error {
	var req schema.QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	result, err := h.engine.ProcessQuery(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, schema.ErrInvalidFilter) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		h.log.Error("query failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}

	c.Set("X-Finsight-Cache", cacheHeader(result))
	return c.JSON(result)
}

func cacheHeader(result *schema.QueryResult) string {
	if result.FromCache {
		return "hit"
	}
	return "miss"
}

// CacheStats handles GET /v1/cache/stats.
func (h *Handler) CacheStats(c *fiber.Ctx) error {
	return c.JSON(h.engine.CacheStats())
}

// ClearCaches handles DELETE /v1/cache.
func (h *Handler) ClearCaches(c *fiber.Ctx) error {
	h.engine.ClearCaches()
	return c.JSON(fiber.Map{"status": "cleared"})
}

// DeleteSession handles DELETE /v1/session/:id. Unknown sessions succeed:
// the requested end state already holds.
func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	deleted, err := h.engine.DeleteSession(c.UserContext(), c.Params("id"))
	if err != nil {
		h.log.Error("session delete failed", zap.String("session_id", c.Params("id")), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

// Stats handles GET /v1/stats.
func (h *Handler) Stats(c *fiber.Ctx) error {
	return c.JSON(h.engine.Stats(c.UserContext()))
}

// Health handles GET /health.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
