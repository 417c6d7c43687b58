package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// CronAuth only lets through requests carrying "Bearer <secret>". With an
// empty secret every request is refused.
func CronAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")

		if secret == "" || !found || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			log.Warn().Str("ip", c.IP()).Msg("rejected cron request")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}
