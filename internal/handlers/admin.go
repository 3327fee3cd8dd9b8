package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tiendasmegan/megan-bot-backend/internal/models"
	"github.com/tiendasmegan/megan-bot-backend/internal/services"
	"github.com/tiendasmegan/megan-bot-backend/internal/storage"
)

// AdminHandler exposes read-only monitoring endpoints
type AdminHandler struct {
	sessions *services.SessionManager
	store    storage.Store
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(sessions *services.SessionManager, store storage.Store) *AdminHandler {
	return &AdminHandler{sessions: sessions, store: store}
}

// Sessions lists every live conversation session
func (h *AdminHandler) Sessions(c *fiber.Ctx) error {
	infos := h.sessions.ActiveSessions()
	return c.JSON(fiber.Map{
		"active":   len(infos),
		"sessions": infos,
	})
}

// Orders summarizes order counts and lists those awaiting payment
func (h *AdminHandler) Orders(c *fiber.Ctx) error {
	total, err := h.store.CountOrders()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	pending, err := h.store.GetOrdersByStatus(models.OrderStatusAwaitingPayment)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"total":            total,
		"awaiting_payment": pending,
	})
}
