package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rims-platform/rims-api/internal/apperr"
	"github.com/rims-platform/rims-api/internal/middleware"
	"github.com/rims-platform/rims-api/internal/utils"
)

func userIDFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(string); ok {
			return strings.TrimSpace(id)
		}
	}
	return ""
}

func parseQueryInt(c *fiber.Ctx, key string) (*int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func queryString(c *fiber.Ctx, key string) *string {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil
	}
	return &value
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// validationMessage flattens validator field errors into a readable message.
func validationMessage(err error) (string, bool) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "", false
	}

	fields := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields = append(fields, strings.ToLower(fieldErr.Field()))
	}

	return "invalid value for: " + strings.Join(fields, ", "), true
}

// sendAppError maps the error taxonomy onto HTTP statuses. Unclassified
// errors become a generic 500 so store messages never reach clients.
func sendAppError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindUnauthenticated:
		status = fiber.StatusUnauthorized
	case apperr.KindPermissionDenied:
		status = fiber.StatusForbidden
	case apperr.KindNotFound:
		status = fiber.StatusNotFound
	case apperr.KindInvalidInput:
		status = fiber.StatusBadRequest
	case apperr.KindConflict:
		status = fiber.StatusConflict
	case apperr.KindUnavailable:
		status = fiber.StatusServiceUnavailable
	}

	if status == fiber.StatusBadRequest {
		if message, ok := validationMessage(err); ok {
			return utils.SendError(c, status, message)
		}
	}

	return utils.SendError(c, status, apperr.Message(err))
}
