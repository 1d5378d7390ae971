package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-console/internal/persistence"
)

// HealthHandler serves liveness/readiness probes.
type HealthHandler struct {
	redis *persistence.Redis
}

// NewHealthHandler constructs handler. redis may be nil-backed.
func NewHealthHandler(redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{redis: redis}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready GET /health/ready. The Redis relay is optional, so an unreachable
// relay degrades readiness detail without failing the probe.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	relay := "disabled"
	if h.redis != nil && h.redis.Client != nil {
		relay = "ok"
		if err := h.redis.Ping(c.Context()); err != nil {
			relay = "unreachable"
		}
	}
	return c.JSON(fiber.Map{"status": "ok", "relay": relay})
}
