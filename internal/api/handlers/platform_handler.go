package handlers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/teampost/configs"
	"github.com/maheshrc27/teampost/internal/service"
	"github.com/maheshrc27/teampost/pkg/utils"
	"github.com/rs/zerolog/log"
)

type PlatformHandler struct {
	ps  service.PlatformService
	li  service.LinkedinService
	cfg config.Config
}

func NewPlatformHandler(ps service.PlatformService, li service.LinkedinService, cfg config.Config) *PlatformHandler {
	return &PlatformHandler{
		ps:  ps,
		li:  li,
		cfg: cfg,
	}
}

// ConnectLinkedin sends the browser to LinkedIn. The session token travels
// as OAuth state so the callback knows whose account is being connected.
func (h *PlatformHandler) ConnectLinkedin(c *fiber.Ctx) error {
	state := c.Query("state")
	if state == "" {
		state = c.Cookies(h.cfg.CookieName)
	}
	if state == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing session",
		})
	}
	return c.Redirect(h.li.GetAuthURL(state))
}

func (h *PlatformHandler) LinkedinCallback(c *fiber.Ctx) error {
	if reason := c.Query("error"); reason != "" {
		log.Info().Str("reason", reason).Msg("linkedin authorization declined")
		return c.Redirect(fmt.Sprintf("%s/settings?linkedin=denied", h.cfg.FrontendURL), fiber.StatusTemporaryRedirect)
	}

	claims, err := utils.ValidateToken(h.cfg.SecretKey, c.Query("state"))
	if err != nil {
		return badRequest(c, "Unable to validate user")
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return badRequest(c, "Unable to validate user")
	}

	if err := h.li.LinkedinCallback(c.Context(), c.Query("code"), userID); err != nil {
		return writeError(c, err, "Unable to connect LinkedIn")
	}

	return c.Redirect(fmt.Sprintf("%s/settings?linkedin=connected", h.cfg.FrontendURL), fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) LinkedinStatus(c *fiber.Ctx) error {
	status, err := h.ps.Status(c.Context(), GetUserID(c))
	if err != nil {
		return writeError(c, err, "Unable to get LinkedIn status")
	}
	return c.JSON(status)
}

func (h *PlatformHandler) DisconnectLinkedin(c *fiber.Ctx) error {
	if err := h.ps.Disconnect(c.Context(), GetUserID(c)); err != nil {
		return writeError(c, err, "Unable to disconnect LinkedIn")
	}
	return c.JSON(fiber.Map{
		"message": "LinkedIn disconnected",
	})
}
