package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/JuacoStudios/formai-backend/internal/service"
)

type EntitlementHandler struct {
	s service.EntitlementService
}

func NewEntitlementHandler(service service.EntitlementService) *EntitlementHandler {
	return &EntitlementHandler{s: service}
}

func (h *EntitlementHandler) GetEntitlement(c *fiber.Ctx) error {
	entitlement, err := h.s.ResolveEntitlement(c.Context(), GetDeviceID(c))
	if err != nil {
		return err
	}
	return c.JSON(entitlement)
}
