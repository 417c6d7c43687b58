package handlers

import (
	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/teampost/configs"
	"github.com/maheshrc27/teampost/internal/service"
)

type UserHandler struct {
	s   service.UserService
	cfg config.Config
}

func NewUserHandler(service service.UserService, cfg config.Config) *UserHandler {
	return &UserHandler{s: service, cfg: cfg}
}

func (h *UserHandler) GetUserInfo(c *fiber.Ctx) error {
	userInfo, err := h.s.GetUserInfo(c.Context(), GetUserID(c))
	if err != nil {
		return writeError(c, err, "Unable to get user info")
	}

	return c.JSON(userInfo)
}

func (h *UserHandler) RemoveUser(c *fiber.Ctx) error {
	if err := h.s.RemoveUser(c.Context(), GetUserID(c)); err != nil {
		return writeError(c, err, "Unable to remove user")
	}

	c.Cookie(&fiber.Cookie{
		Name:   h.cfg.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	return c.SendStatus(fiber.StatusOK)
}
