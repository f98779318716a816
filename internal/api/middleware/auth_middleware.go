package middleware

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/campaignflow/configs"
	"github.com/maheshrc27/campaignflow/internal/service"
	"github.com/maheshrc27/campaignflow/pkg/utils"
)

const apiKeyHeader = "X-API-Key"

// Auth resolves the caller of an admin request. Automation presents an API
// key; the dashboard presents the session cookie set at login.
type Auth struct {
	keys       service.ApiKeyService
	secret     string
	cookieName string
}

func NewAuthMiddleware(cfg config.Config, keys service.ApiKeyService) *Auth {
	return &Auth{keys: keys, secret: cfg.SecretKey, cookieName: cfg.CookieName}
}

// Require rejects requests without valid credentials and stores the caller's
// id in c.Locals("user_id"). An API key wins over the cookie when both are sent.
func (a *Auth) Require() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key := presentedKey(c); key != "" {
			return a.withKey(c, key)
		}
		if session := c.Cookies(a.cookieName); session != "" {
			return a.withSession(c, session)
		}
		return unauthorized(c, "Missing API key or session")
	}
}

// presentedKey reads the key from the X-API-Key header, an
// "Authorization: Bearer cf_..." header, or the api_key query parameter.
func presentedKey(c *fiber.Ctx) string {
	if key := c.Get(apiKeyHeader); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "); ok && strings.HasPrefix(token, utils.ApiKeyPrefix) {
		return token
	}
	return c.Query("api_key")
}

func (a *Auth) withKey(c *fiber.Ctx, key string) error {
	userID, err := a.keys.Authenticate(c.Context(), key)
	if err != nil {
		slog.Info("api key rejected", "path", c.Path(), "hint", utils.ApiKeyHint(key), "error", err)
		return unauthorized(c, "Invalid API key")
	}
	c.Locals("user_id", strconv.FormatInt(userID, 10))
	return c.Next()
}

func (a *Auth) withSession(c *fiber.Ctx, session string) error {
	claims, err := utils.ValidateToken(a.secret, session)
	if err != nil {
		c.ClearCookie(a.cookieName)
		slog.Info("session rejected", "path", c.Path(), "error", err)
		return unauthorized(c, "Invalid or expired session")
	}
	c.Locals("user_id", claims.UserID)
	return c.Next()
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": msg,
	})
}
