package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/campaignflow/internal/service"
	"github.com/maheshrc27/campaignflow/internal/transfer"
)

type CampaignHandler struct {
	s service.CampaignService
}

func NewCampaignHandler(service service.CampaignService) *CampaignHandler {
	return &CampaignHandler{s: service}
}

func (h *CampaignHandler) Register(r fiber.Router) {
	r.Post("/campaigns", h.CreateCampaign)
	r.Get("/campaigns", h.ListCampaigns)
	r.Get("/campaigns/:id", h.GetCampaign)
	r.Put("/campaigns/:id", h.UpdateCampaign)
	r.Delete("/campaigns/:id", h.RemoveCampaign)
	r.Post("/campaigns/:id/schedule", h.ScheduleCampaign)
	r.Post("/campaigns/:id/cancel", h.CancelCampaign)
	r.Post("/campaigns/:id/send", h.SendCampaign)
	r.Post("/campaigns/:id/retry", h.RetryCampaign)
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req transfer.CampaignRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	id, err := h.s.Create(c.Context(), GetUserID(c), &req)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id": id,
	})
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	campaigns, err := h.s.List(c.Context(), c.Query("status"), c.QueryInt("limit", 0), c.QueryInt("offset", 0))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(campaigns)
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, err)
	}

	campaign, err := h.s.Get(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(campaign)
}

func (h *CampaignHandler) UpdateCampaign(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, err)
	}

	var req transfer.CampaignRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	if err := h.s.Update(c.Context(), id, &req); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *CampaignHandler) RemoveCampaign(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, err)
	}

	if err := h.s.Remove(c.Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CampaignHandler) ScheduleCampaign(c *fiber.Ctx) error {
	return schedule(c, h.s)
}

func (h *CampaignHandler) CancelCampaign(c *fiber.Ctx) error {
	return cancel(c, h.s)
}

func (h *CampaignHandler) SendCampaign(c *fiber.Ctx) error {
	return sendNow(c, h.s)
}

func (h *CampaignHandler) RetryCampaign(c *fiber.Ctx) error {
	return retry(c, h.s)
}
