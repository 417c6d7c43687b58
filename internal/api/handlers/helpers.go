package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/teampost/internal/service"
	"github.com/rs/zerolog/log"
)

func GetUserID(c *fiber.Ctx) int64 {
	raw, _ := c.Locals("user_id").(string)
	userID, _ := strconv.ParseInt(raw, 10, 64)
	return userID
}

// pathID reads a positive integer route parameter.
func pathID(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	return id, err == nil && id > 0
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}

// writeError maps service errors onto status codes. Anything unrecognised is
// logged and answered with fallback.
func writeError(c *fiber.Ctx, err error, fallback string) error {
	var quota *service.QuotaExceededError
	var validation *service.ValidationError

	switch {
	case errors.As(err, &quota):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":        "Subscription required",
			"code":         "SUBSCRIPTION_REQUIRED",
			"currentCount": quota.Count,
			"limit":        quota.Limit,
		})
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not found",
		})
	case errors.As(err, &validation):
		return badRequest(c, validation.Message)
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg(fallback)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fallback,
		})
	}
}
