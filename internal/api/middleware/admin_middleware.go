package middleware

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// AdminChecker reports whether a user may use the admin routes.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly(checker AdminChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, _ := c.Locals("user_id").(string)
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid session",
			})
		}

		ok, err := checker.IsAdmin(c.Context(), userID)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("admin check")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unable to verify permissions",
			})
		}
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}
		return c.Next()
	}
}
