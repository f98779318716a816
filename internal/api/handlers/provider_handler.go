package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/campaignflow/internal/social"
)

type PlatformLister interface {
	Platforms() []social.PlatformInfo
}

type ProviderHandler struct {
	platforms    PlatformLister
	emailEnabled func() bool
}

func NewProviderHandler(platforms PlatformLister, emailEnabled func() bool) *ProviderHandler {
	return &ProviderHandler{platforms: platforms, emailEnabled: emailEnabled}
}

func (h *ProviderHandler) ListProviders(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"email":     h.emailEnabled(),
		"platforms": h.platforms.Platforms(),
	})
}
