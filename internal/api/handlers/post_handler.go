package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/campaignflow/internal/service"
	"github.com/maheshrc27/campaignflow/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) Register(r fiber.Router) {
	r.Post("/posts", h.CreatePost)
	r.Get("/posts", h.ListPosts)
	r.Get("/posts/:id", h.GetPost)
	r.Put("/posts/:id", h.UpdatePost)
	r.Delete("/posts/:id", h.RemovePost)
	r.Post("/posts/:id/schedule", h.SchedulePost)
	r.Post("/posts/:id/cancel", h.CancelPost)
	r.Post("/posts/:id/publish", h.PublishPost)
	r.Post("/posts/:id/retry", h.RetryPost)
	r.Post("/posts/:id/metrics", h.RefreshMetrics)
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var req transfer.PostRequest
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

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.Context(), c.Query("status"), c.Query("platform"), c.QueryInt("limit", 0), c.QueryInt("offset", 0))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, err)
	}

	post, err := h.s.Get(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(post)
}

func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, err)
	}

	var req transfer.PostRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	if err := h.s.Update(c.Context(), id, &req); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, err)
	}

	if err := h.s.Remove(c.Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	return schedule(c, h.s)
}

func (h *PostHandler) CancelPost(c *fiber.Ctx) error {
	return cancel(c, h.s)
}

func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	return sendNow(c, h.s)
}

func (h *PostHandler) RetryPost(c *fiber.Ctx) error {
	return retry(c, h.s)
}

func (h *PostHandler) RefreshMetrics(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, err)
	}

	post, err := h.s.RefreshMetrics(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(post)
}
