package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/thaipay/slipverify/internal/verification"
)

// RegisterVerificationRoutes wires slip verification endpoints. The rate
// limiter only guards the mutating endpoint.
func RegisterVerificationRoutes(r fiber.Router, h *verification.Handler, rateLimiter fiber.Handler) {
	r.Post("/verifications", rateLimiter, h.Verify)
	r.Get("/verifications/:id", h.Get)
}
