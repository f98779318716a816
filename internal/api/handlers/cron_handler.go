package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/campaignflow/internal/scheduler"
)

type Sweeper interface {
	ProcessDue(ctx context.Context) (scheduler.SweepResult, error)
}

// CronHandler exposes the sweeps to an external scheduler.
type CronHandler struct {
	campaigns Sweeper
	posts     Sweeper
}

func NewCronHandler(campaigns, posts Sweeper) *CronHandler {
	return &CronHandler{campaigns: campaigns, posts: posts}
}

func (h *CronHandler) Register(r fiber.Router) {
	r.Post("/process-campaigns", h.ProcessCampaigns)
	r.Post("/process-posts", h.ProcessPosts)
	r.Post("/process-all", h.ProcessAll)
}

func (h *CronHandler) ProcessCampaigns(c *fiber.Ctx) error {
	return runSweep(c, h.campaigns)
}

func (h *CronHandler) ProcessPosts(c *fiber.Ctx) error {
	return runSweep(c, h.posts)
}

func (h *CronHandler) ProcessAll(c *fiber.Ctx) error {
	campaigns, err := h.campaigns.ProcessDue(c.Context())
	if err != nil {
		return sweepFailed(c, err)
	}
	posts, err := h.posts.ProcessDue(c.Context())
	if err != nil {
		return sweepFailed(c, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"campaigns": campaigns,
		"posts":     posts,
	})
}

func runSweep(c *fiber.Ctx, s Sweeper) error {
	res, err := s.ProcessDue(c.Context())
	if err != nil {
		return sweepFailed(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"result":  res,
	})
}

func sweepFailed(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
