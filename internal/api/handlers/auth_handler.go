package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/campaignflow/configs"
	"github.com/maheshrc27/campaignflow/internal/service"
	"github.com/maheshrc27/campaignflow/pkg/utils"
)

const (
	stateCookie     = "oauth_state"
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
		return writeError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
	})

	return c.Redirect(h.s.LoginURL(state), fiber.StatusTemporaryRedirect)
}

func (h *AuthHandler) LoginCallbackHandler(c *fiber.Ctx) error {
	if state := c.Cookies(stateCookie); state == "" || state != c.Query("state") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid login state",
		})
	}
	c.ClearCookie(stateCookie)

	userID, err := h.s.LoginCallback(c.Context(), c.Query("code"))
	if errors.Is(err, service.ErrNotAdmin) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, fmt.Sprintf("%d", userID), sessionDuration)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
		Expires:  time.Now().Add(sessionDuration),
	})

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.ClearCookie(h.cfg.CookieName)
	return c.SendStatus(fiber.StatusNoContent)
}
