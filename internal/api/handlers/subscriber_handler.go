package handlers

import (
	"html"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/campaignflow/internal/service"
	"github.com/maheshrc27/campaignflow/internal/transfer"
)

type SubscriberHandler struct {
	s service.SubscriberService
}

func NewSubscriberHandler(service service.SubscriberService) *SubscriberHandler {
	return &SubscriberHandler{s: service}
}

func (h *SubscriberHandler) Subscribe(c *fiber.Ctx) error {
	var req transfer.SubscribeRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	if _, err := h.s.Subscribe(c.Context(), &req); err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Subscribed successfully",
	})
}

// Unsubscribe serves both the one-click POST from mail clients and the
// link a reader opens in the browser.
func (h *SubscriberHandler) Unsubscribe(c *fiber.Ctx) error {
	var req transfer.UnsubscribeRequest
	if err := c.QueryParser(&req); err != nil || req.Token == "" {
		_ = c.BodyParser(&req)
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing unsubscribe token",
		})
	}

	email, err := h.s.Unsubscribe(c.Context(), req.Token)
	if err != nil {
		return writeError(c, err)
	}

	if c.Method() == fiber.MethodGet {
		c.Type("html")
		return c.SendString("<p>" + html.EscapeString(email) + " has been unsubscribed.</p>")
	}
	return c.JSON(fiber.Map{
		"message": "Unsubscribed successfully",
	})
}

func (h *SubscriberHandler) ListSubscribers(c *fiber.Ctx) error {
	subs, err := h.s.List(c.Context(), c.QueryBool("active", false), c.QueryInt("limit", 0), c.QueryInt("offset", 0))
	if err != nil {
		return writeError(c, err)
	}

	active, err := h.s.CountActive(c.Context())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"subscribers":  subs,
		"active_count": active,
	})
}
