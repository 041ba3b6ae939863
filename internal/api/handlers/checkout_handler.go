package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/JuacoStudios/formai-backend/internal/repository"
	"github.com/JuacoStudios/formai-backend/internal/service"
	"github.com/JuacoStudios/formai-backend/internal/transfer"
)

type CheckoutHandler struct {
	s service.CheckoutService
}

func NewCheckoutHandler(service service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{s: service}
}

func (h *CheckoutHandler) StripeCheckout(c *fiber.Ctx) error {
	var requestData transfer.CheckoutRequest
	if err := c.BodyParser(&requestData); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	checkout, err := h.s.CreateStripeCheckout(c.Context(), GetDeviceID(c), requestData.Plan)
	if err != nil {
		return err
	}
	return c.JSON(checkout)
}

func (h *CheckoutHandler) StripePortal(c *fiber.Ctx) error {
	portal, err := h.s.CreateStripePortal(c.Context(), GetDeviceID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no subscription on record"})
		}
		return err
	}
	return c.JSON(portal)
}

func (h *CheckoutHandler) LemonSqueezyCheckout(c *fiber.Ctx) error {
	var requestData transfer.CheckoutRequest
	if err := c.BodyParser(&requestData); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	checkout, err := h.s.CreateLemonSqueezyCheckout(c.Context(), GetDeviceID(c), requestData.Plan)
	if err != nil {
		return err
	}
	return c.JSON(checkout)
}
