package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/campaignflow/internal/service"
	"github.com/maheshrc27/campaignflow/internal/transfer"
)

type ApiKeyHandler struct {
	s service.ApiKeyService
}

func NewApiKeyHandler(service service.ApiKeyService) *ApiKeyHandler {
	return &ApiKeyHandler{s: service}
}

func (h *ApiKeyHandler) CreateApiKey(c *fiber.Ctx) error {
	userId := GetUserID(c)

	var req transfer.CreateApiKeyRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return badRequest(c, err)
		}
	}

	key, err := h.s.Issue(c.Context(), userId, req.Label)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(key)
}

func (h *ApiKeyHandler) ListKeys(c *fiber.Ctx) error {
	userId := GetUserID(c)

	keys, err := h.s.List(c.Context(), userId)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list api keys",
		})
	}

	return c.Status(fiber.StatusOK).JSON(keys)
}

func (h *ApiKeyHandler) RemoveAPIKey(c *fiber.Ctx) error {
	userId := GetUserID(c)
	keyId, err := paramID(c)
	if err != nil {
		return badRequest(c, err)
	}

	if err := h.s.Revoke(c.Context(), userId, keyId); err != nil {
		return writeError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
