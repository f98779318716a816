package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/campaignflow/internal/scheduler"
	"github.com/maheshrc27/campaignflow/internal/service"
)

type HistoryHandler struct {
	s service.HistoryService
}

func NewHistoryHandler(service service.HistoryService) *HistoryHandler {
	return &HistoryHandler{s: service}
}

func (h *HistoryHandler) Register(r fiber.Router) {
	r.Get("/campaigns/:id/history", h.list(scheduler.CampaignKind.Item))
	r.Get("/posts/:id/history", h.list(scheduler.PostKind.Item))
}

func (h *HistoryHandler) list(item string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return badRequest(c, err)
		}

		history, err := h.s.List(c.Context(), item, id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(history)
	}
}
