package verification

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes verification endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a verification handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type verifyRequest struct {
	OrderRef       string  `json:"order_ref"`
	Payload        string  `json:"payload"`
	ExpectedAmount float64 `json:"expected_amount"`
}

// Verify runs a slip verification for an order. An empty or garbage
// payload is a legitimate request: it produces a REVIEW verdict, not an
// HTTP error.
func (h *Handler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.OrderRef == "" {
		return fiber.NewError(http.StatusBadRequest, "order_ref is required")
	}

	res, err := h.service.Verify(c.UserContext(), VerifyInput{
		OrderRef:       req.OrderRef,
		Payload:        req.Payload,
		ExpectedAmount: req.ExpectedAmount,
	})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":         res.Record.ID,
		"order_ref":  res.Record.OrderRef,
		"status":     res.Record.Status,
		"reason":     res.Record.Reason,
		"cache_hit":  res.CacheHit,
		"created_at": res.Record.CreatedAt,
	})
}

// Get returns a verification audit record.
func (h *Handler) Get(c *fiber.Ctx) error {
	record, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "verification not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"id":              record.ID,
		"order_ref":       record.OrderRef,
		"payload_hash":    record.PayloadHash,
		"status":          record.Status,
		"reason":          record.Reason,
		"expected_amount": record.ExpectedAmount,
		"created_at":      record.CreatedAt,
	})
}
