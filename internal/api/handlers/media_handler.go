package handlers

import (
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/campaignflow/internal/service"
)

type MediaHandler struct {
	s service.MediaService
}

func NewMediaHandler(service service.MediaService) *MediaHandler {
	return &MediaHandler{s: service}
}

func (h *MediaHandler) UploadMedia(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file selected",
		})
	}
	if file.Size > service.MaxUploadSize {
		return writeError(c, service.ErrUploadTooLarge)
	}

	f, err := file.Open()
	if err != nil {
		return writeError(c, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, service.MaxUploadSize+1))
	if err != nil {
		return writeError(c, err)
	}

	asset, err := h.s.Upload(c.Context(), GetUserID(c), data)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(asset)
}

func (h *MediaHandler) ListMedia(c *fiber.Ctx) error {
	assets, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(assets)
}

func (h *MediaHandler) RemoveMedia(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, err)
	}

	if err := h.s.Remove(c.Context(), GetUserID(c), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
