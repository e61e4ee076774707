package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rims-platform/rims-api/internal/dto"
	"github.com/rims-platform/rims-api/internal/repository"
	"github.com/rims-platform/rims-api/internal/service"
	"github.com/rims-platform/rims-api/internal/utils"
)

// AdminUserHandler wires the user provisioning endpoints.
type AdminUserHandler struct {
	users  service.AdminUserService
	logger zerolog.Logger
}

// NewAdminUserHandler constructs the handler.
func NewAdminUserHandler(users service.AdminUserService, logger zerolog.Logger) *AdminUserHandler {
	return &AdminUserHandler{
		users:  users,
		logger: logger.With().Str("component", "admin_user_handler").Logger(),
	}
}

// Register attaches admin user endpoints to the router group.
func (h *AdminUserHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Patch("/:id", h.update)
	router.Post("/:id/deactivate", h.deactivate)
	router.Delete("/:id", h.delete)
}

func (h *AdminUserHandler) create(c *fiber.Ctx) error {
	var payload dto.UserCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.users.Create(c.UserContext(), userIDFromContext(c), payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("user provisioning failed")
		return sendAppError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user created", response)
}

func (h *AdminUserHandler) list(c *fiber.Ctx) error {
	filter := repository.UserFilter{
		Role:   queryString(c, "role"),
		Search: strings.TrimSpace(c.Query("search")),
	}
	if raw := strings.TrimSpace(c.Query("is_active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid is_active value")
		}
		filter.IsActive = &active
	}

	users, err := h.users.List(c.UserContext(), userIDFromContext(c), filter)
	if err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "users retrieved", users)
}

func (h *AdminUserHandler) update(c *fiber.Ctx) error {
	var payload dto.UserUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.users.Update(c.UserContext(), userIDFromContext(c), c.Params("id"), payload)
	if err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "user updated", user)
}

func (h *AdminUserHandler) deactivate(c *fiber.Ctx) error {
	user, err := h.users.Deactivate(c.UserContext(), userIDFromContext(c), c.Params("id"))
	if err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "user deactivated", user)
}

func (h *AdminUserHandler) delete(c *fiber.Ctx) error {
	if err := h.users.Delete(c.UserContext(), userIDFromContext(c), c.Params("id")); err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "user deleted", nil)
}
