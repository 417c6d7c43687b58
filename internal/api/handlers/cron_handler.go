package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/teampost/internal/transfer"
	"github.com/rs/zerolog/log"
)

// BatchRunner runs one scheduler batch.
type BatchRunner interface {
	Run(ctx context.Context) (*transfer.BatchResult, error)
}

type CronHandler struct {
	r BatchRunner
}

func NewCronHandler(runner BatchRunner) *CronHandler {
	return &CronHandler{r: runner}
}

func (h *CronHandler) PostScheduler(c *fiber.Ctx) error {
	result, err := h.r.Run(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("post scheduler batch")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if result.Processed == 0 && result.Failed == 0 && len(result.Errors) == 0 {
		return c.JSON(fiber.Map{
			"message":   result.Message,
			"processed": 0,
		})
	}

	return c.JSON(result)
}
