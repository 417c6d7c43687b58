package handlers

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/teampost/configs"
	"github.com/maheshrc27/teampost/internal/service"
	"github.com/maheshrc27/teampost/pkg/utils"
)

const (
	stateCookie     = "teampost_oauth_state"
	sessionDuration = 24 * time.Hour
)

type AuthHandler struct {
	s   service.AuthService
	cfg config.Config
}

func NewAuthHandler(cfg config.Config, service service.AuthService) *AuthHandler {
	return &AuthHandler{s: service, cfg: cfg}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	state, err := utils.GenerateRandomKey(24)
	if err != nil {
		return writeError(c, err, "something went wrong")
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		HTTPOnly: true,
		Secure:   h.cfg.AppEnv != "dev",
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
	})

	return c.Redirect(h.s.GetAuthURL(state))
}

func (h *AuthHandler) LoginCallbackHandler(c *fiber.Ctx) error {
	state := c.Query("state")
	expected := c.Cookies(stateCookie)
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		return badRequest(c, "Invalid login state")
	}

	userID, err := h.s.LoginCallback(c.Context(), c.Query("code"))
	if err != nil {
		return writeError(c, err, "something went wrong")
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, fmt.Sprintf("%d", userID), sessionDuration)
	if err != nil {
		return writeError(c, err, "something went wrong")
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   h.cfg.AppEnv != "dev",
		SameSite: fiber.CookieSameSiteNoneMode,
		Path:     "/",
		Expires:  time.Now().Add(sessionDuration),
	})

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:   h.cfg.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	return c.SendStatus(fiber.StatusOK)
}
