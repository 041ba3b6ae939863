package handlers

import (
	"github.com/gofiber/fiber/v2"
)

func GetDeviceID(c *fiber.Ctx) string {
	deviceID, _ := c.Locals("device_id").(string)
	return deviceID
}
