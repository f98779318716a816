package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/campaignflow/internal/service"
	"github.com/maheshrc27/campaignflow/internal/transfer"
)

func schedule(c *fiber.Ctx, s service.Lifecycle) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, err)
	}

	var req transfer.ScheduleRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	if err := s.Schedule(c.Context(), id, req.ScheduledAt); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":      "Scheduled successfully",
		"scheduled_at": req.ScheduledAt,
	})
}

func cancel(c *fiber.Ctx, s service.Lifecycle) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, err)
	}

	if err := s.Cancel(c.Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Schedule cancelled",
	})
}

func sendNow(c *fiber.Ctx, s service.Lifecycle) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, err)
	}

	sweep, err := s.SendNow(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(sweep)
}

func retry(c *fiber.Ctx, s service.Lifecycle) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, err)
	}

	res, err := s.Retry(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}
