package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	gonanoid "github.com/matoous/go-nanoid/v2"

	config "github.com/JuacoStudios/formai-backend/configs"
	"github.com/JuacoStudios/formai-backend/pkg/utils"
)

const deviceTokenDuration = 365 * 24 * time.Hour

// DeviceMiddleware resolves the opaque device identity for every request.
// Native clients may send a stable X-Device-Id header; browsers get a signed
// long-lived cookie. Unseen clients are issued a fresh id transparently.
type DeviceMiddleware struct {
	cfg config.Config
}

func NewDeviceMiddleware(cfg config.Config) *DeviceMiddleware {
	return &DeviceMiddleware{cfg: cfg}
}

func (m *DeviceMiddleware) DeviceMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if headerID := c.Get("X-Device-Id"); headerID != "" && len(headerID) <= 64 {
			c.Locals("device_id", headerID)
			return c.Next()
		}

		if tokenString := c.Cookies(m.cfg.CookieName); tokenString != "" {
			claims, err := utils.ValidateDeviceToken(m.cfg.SecretKey, tokenString)
			if err == nil && claims.DeviceID != "" {
				c.Locals("device_id", claims.DeviceID)
				return c.Next()
			}
			// Invalid or expired token: fall through and issue a new identity.
		}

		deviceID, err := gonanoid.New()
		if err != nil {
			slog.Info(err.Error())
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to assign device id",
			})
		}

		token, err := utils.GenerateDeviceToken(m.cfg.SecretKey, deviceID, deviceTokenDuration)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to issue device token",
			})
		}

		c.Cookie(&fiber.Cookie{
			Name:     m.cfg.CookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   int(deviceTokenDuration.Seconds()),
			HTTPOnly: true,
			SameSite: "Lax",
		})

		c.Locals("device_id", deviceID)
		return c.Next()
	}
}
