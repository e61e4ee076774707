package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/rims-platform/rims-api/internal/apperr"
	"github.com/rims-platform/rims-api/internal/dto"
	"github.com/rims-platform/rims-api/internal/models"
	"github.com/rims-platform/rims-api/internal/repository"
)

// ResetLinker issues single-use password reset links. Implemented by the auth
// service; injected here so provisioning can hand the link to the admin.
type ResetLinker interface {
	PasswordResetLink(ctx context.Context, email string) (string, error)
}

// AdminUserService provisions and manages user profiles. There is no
// self-registration path; accounts only come from here. Every call
// re-authorizes against the caller's stored profile.
type AdminUserService interface {
	Create(ctx context.Context, callerID string, payload dto.UserCreateRequest) (dto.UserCreateResponse, error)
	List(ctx context.Context, callerID string, filter repository.UserFilter) ([]dto.UserResponse, error)
	Update(ctx context.Context, callerID, id string, payload dto.UserUpdateRequest) (dto.UserResponse, error)
	Deactivate(ctx context.Context, callerID, id string) (dto.UserResponse, error)
	Delete(ctx context.Context, callerID, id string) error
}

type adminUserService struct {
	users     repository.UserRepository
	blobs     BlobStore
	resets    ResetLinker
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminUserService constructs the user provisioning service.
func NewAdminUserService(users repository.UserRepository, blobs BlobStore, resets ResetLinker, validate *validator.Validate, logger zerolog.Logger) AdminUserService {
	return &adminUserService{
		users:     users,
		blobs:     blobs,
		resets:    resets,
		validator: validate,
		logger:    logger.With().Str("component", "admin_user_service").Logger(),
	}
}

// Create provisions a profile with a random throwaway credential and returns
// a reset link the admin forwards to the new user.
func (s *adminUserService) Create(ctx context.Context, callerID string, payload dto.UserCreateRequest) (dto.UserCreateResponse, error) {
	caller, err := requireStoredAdmin(ctx, s.users, callerID)
	if err != nil {
		return dto.UserCreateResponse{}, err
	}

	// Normalize before validating; padded emails are a client formatting
	// issue, not a rejection.
	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	payload.Name = strings.TrimSpace(payload.Name)

	if err := s.validator.Struct(payload); err != nil {
		return dto.UserCreateResponse{}, apperr.Wrap(apperr.KindInvalidInput, "email and name are required", err)
	}

	email := payload.Email
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return dto.UserCreateResponse{}, apperr.Newf(apperr.KindConflict, "a user with email %s already exists", email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserCreateResponse{}, apperr.Wrap(apperr.KindInternal, "failed to check for existing user", err)
	}

	password, err := randomPassword()
	if err != nil {
		return dto.UserCreateResponse{}, apperr.Wrap(apperr.KindInternal, "failed to generate credential", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return dto.UserCreateResponse{}, apperr.Wrap(apperr.KindInternal, "failed to hash credential", err)
	}

	role := payload.Role
	if role == "" {
		role = models.RoleUser
	}

	user := models.User{
		Email:        email,
		Name:         payload.Name,
		PasswordHash: string(hash),
		Role:         role,
		Phone:        payload.Phone,
		Department:   payload.Department,
		Designation:  payload.Designation,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, &user); err != nil {
		return dto.UserCreateResponse{}, apperr.Wrap(apperr.KindInternal, "failed to create user", err)
	}

	resetLink, err := s.resets.PasswordResetLink(ctx, email)
	if err != nil {
		// The profile exists; the admin can request another link later.
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("reset link generation failed after provisioning")
		resetLink = ""
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("admin_id", caller.ID).
		Str("role", user.Role).
		Msg("user provisioned")

	return dto.UserCreateResponse{User: dto.NewUserResponse(user), ResetLink: resetLink}, nil
}

func (s *adminUserService) List(ctx context.Context, callerID string, filter repository.UserFilter) ([]dto.UserResponse, error) {
	if _, err := requireStoredAdmin(ctx, s.users, callerID); err != nil {
		return nil, err
	}

	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list users", err)
	}

	return dto.NewUserResponseSlice(users), nil
}

func (s *adminUserService) Update(ctx context.Context, callerID, id string, payload dto.UserUpdateRequest) (dto.UserResponse, error) {
	if _, err := requireStoredAdmin(ctx, s.users, callerID); err != nil {
		return dto.UserResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, apperr.Wrap(apperr.KindInvalidInput, "invalid user update", err)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, apperr.New(apperr.KindNotFound, "user not found")
		}
		return dto.UserResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load user", err)
	}

	if payload.Name != nil {
		user.Name = strings.TrimSpace(*payload.Name)
	}
	if payload.Role != nil {
		user.Role = *payload.Role
	}
	if payload.Phone != nil {
		user.Phone = *payload.Phone
	}
	if payload.Department != nil {
		user.Department = *payload.Department
	}
	if payload.Designation != nil {
		user.Designation = *payload.Designation
	}
	if payload.IsActive != nil {
		user.IsActive = *payload.IsActive
	}

	if err := s.users.Update(ctx, &user); err != nil {
		return dto.UserResponse{}, apperr.Wrap(apperr.KindInternal, "failed to update user", err)
	}

	return dto.NewUserResponse(user), nil
}

// Deactivate is the soft delete: the profile and its records stay, sign-in
// and privileged calls stop working.
func (s *adminUserService) Deactivate(ctx context.Context, callerID, id string) (dto.UserResponse, error) {
	inactive := false
	return s.Update(ctx, callerID, id, dto.UserUpdateRequest{IsActive: &inactive})
}

// Delete hard-deletes the profile and its stored assets.
func (s *adminUserService) Delete(ctx context.Context, callerID, id string) error {
	caller, err := requireStoredAdmin(ctx, s.users, callerID)
	if err != nil {
		return err
	}

	if caller.ID == id {
		return apperr.New(apperr.KindInvalidInput, "admins cannot delete their own account")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "user not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to load user", err)
	}

	if err := purgeFolder(ctx, s.blobs, s.blobs.OwnerFolder(user.ID)); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "failed to delete user assets", err)
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete user", err)
	}

	s.logger.Info().Str("user_id", user.ID).Str("admin_id", caller.ID).Msg("user hard-deleted")

	return nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
