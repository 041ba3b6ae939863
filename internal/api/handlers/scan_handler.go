package handlers

import (
	"errors"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/JuacoStudios/formai-backend/internal/service"
	"github.com/JuacoStudios/formai-backend/internal/transfer"
)

type ScanHandler struct {
	e service.EntitlementService
	s service.ScanService
}

func NewScanHandler(entitlement service.EntitlementService, scan service.ScanService) *ScanHandler {
	return &ScanHandler{e: entitlement, s: scan}
}

// Analyze gates the request, forwards the image to the vision model, and
// records free-tier consumption afterwards. The gate is best-effort; the
// atomic counter increment is what actually bounds free usage under
// concurrent requests.
func (h *ScanHandler) Analyze(c *fiber.Ctx) error {
	deviceID := GetDeviceID(c)

	entitlement, err := h.e.ResolveEntitlement(c.Context(), deviceID)
	if err != nil {
		return err
	}

	gate, err := h.e.CanPerformScan(c.Context(), deviceID)
	if err != nil {
		return err
	}
	if !gate.CanScan {
		return c.Status(fiber.StatusPaymentRequired).JSON(transfer.PaywallResponse{
			RequirePaywall: true,
			Reason:         gate.Reason,
		})
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image file is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	result, err := h.s.Analyze(c.Context(), image)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedImage) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unsupported image type"})
		}
		return err
	}

	// Subscribed devices have unlimited scans; the counter is only for the
	// free tier.
	if !entitlement.Active {
		usage, err := h.e.RecordScanConsumed(c.Context(), deviceID)
		if err != nil {
			// The scan already happened; an undercounted quota is the lesser
			// failure here.
			slog.Error("recording scan consumption failed", "device", deviceID, "error", err)
		} else {
			result.Usage = usage
		}
	}

	return c.JSON(result)
}
