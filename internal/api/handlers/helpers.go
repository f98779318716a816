package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/campaignflow/internal/scheduler"
	"github.com/maheshrc27/campaignflow/internal/service"
	"github.com/maheshrc27/campaignflow/internal/social"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func GetUserID(c *fiber.Ctx) int64 {
	s, _ := c.Locals("user_id").(string)
	userID, _ := strconv.ParseInt(s, 10, 64)
	return userID
}

func paramID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", c.Params("id"))
	}
	return id, nil
}

// parseBody decodes and validates a JSON request body into v.
func parseBody(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return errors.New("Invalid request body")
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var backoff *scheduler.BackoffError
	switch {
	case errors.Is(err, scheduler.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, scheduler.ErrNotFailed),
		errors.Is(err, scheduler.ErrRetryLimitReached),
		errors.Is(err, scheduler.ErrScheduleTooSoon),
		errors.Is(err, social.ErrUnknownPlatform),
		errors.Is(err, service.ErrMetricsUnsupported),
		errors.Is(err, service.ErrMaxRetriesTooLow),
		errors.Is(err, service.ErrInvalidUnsubscribeToken),
		errors.Is(err, service.ErrEmptyUpload),
		errors.Is(err, service.ErrUploadTooLarge),
		errors.Is(err, service.ErrUnsupportedMedia),
		errors.Is(err, service.ErrApiKeyLimit),
		errors.Is(err, service.ErrApiKeyNotFound),
		errors.As(err, &backoff):
		return fiber.StatusBadRequest
	case errors.Is(err, scheduler.ErrInvalidState),
		errors.Is(err, scheduler.ErrRetryConflict):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrStorageNotConfigured):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
