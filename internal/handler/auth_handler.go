package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rims-platform/rims-api/internal/dto"
	"github.com/rims-platform/rims-api/internal/service"
	"github.com/rims-platform/rims-api/internal/utils"
)

// AuthHandler wires the identity endpoints.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register binds the identity routes. Reset-link minting is a provisioning
// action and returns a credential-equivalent link, so it runs behind the
// guard and the service re-checks the caller's stored admin role. Redeeming
// a link stays public; the token itself is the proof.
func (h *AuthHandler) Register(router fiber.Router, authGuard fiber.Handler) {
	router.Post("/sign-in", h.signIn)
	router.Post("/reset-password", h.resetPassword)
	router.Post("/password-reset-link", authGuard, h.passwordResetLink)
	router.Post("/sign-out", authGuard, h.signOut)
}

func (h *AuthHandler) signIn(c *fiber.Ctx) error {
	var payload dto.SignInRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.SignIn(c.UserContext(), payload)
	if err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "signed in", response)
}

func (h *AuthHandler) signOut(c *fiber.Ctx) error {
	tokenID, _ := c.Locals("token_id").(string)
	expiresAt, _ := c.Locals("token_expires").(time.Time)

	if err := h.service.SignOut(c.UserContext(), tokenID, expiresAt); err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "signed out", nil)
}

func (h *AuthHandler) passwordResetLink(c *fiber.Ctx) error {
	var payload dto.PasswordResetRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	link, err := h.service.AdminPasswordResetLink(c.UserContext(), userIDFromContext(c), payload.Email)
	if err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "reset link generated", dto.PasswordResetResponse{ResetLink: link})
}

func (h *AuthHandler) resetPassword(c *fiber.Ctx) error {
	var payload struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.ResetPassword(c.UserContext(), payload.Token, payload.NewPassword); err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "password updated", nil)
}
