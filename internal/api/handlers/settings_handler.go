package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/teampost/internal/service"
	"github.com/maheshrc27/teampost/internal/transfer"
)

type SettingsHandler struct {
	s service.SettingsService
}

func NewSettingsHandler(service service.SettingsService) *SettingsHandler {
	return &SettingsHandler{s: service}
}

func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.s.GetSettings(c.Context(), GetUserID(c))
	if err != nil {
		return writeError(c, err, "Unable to find settings for given user")
	}

	return c.JSON(settings)
}

func (h *SettingsHandler) UpdateSlack(c *fiber.Ctx) error {
	var req transfer.SlackSettings
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse json")
	}

	if err := h.s.UpdateSlackWebhook(c.Context(), GetUserID(c), req.WebhookURL); err != nil {
		return writeError(c, err, "Unable to update settings")
	}

	return c.SendStatus(fiber.StatusOK)
}
