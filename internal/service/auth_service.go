package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/rims-platform/rims-api/internal/apperr"
	"github.com/rims-platform/rims-api/internal/dto"
	"github.com/rims-platform/rims-api/internal/observability"
	"github.com/rims-platform/rims-api/internal/repository"
)

const (
	revokedKeyPrefix = "auth:revoked:"
	resetKeyPrefix   = "auth:reset:"
)

// AuthConfig carries signing material and token lifetimes.
type AuthConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetLinkBase string
	ResetTokenTTL time.Duration
}

// AuthService is the identity boundary: credential verification, token pair
// issuance, revocation and the single-use password reset flow.
type AuthService interface {
	SignIn(ctx context.Context, payload dto.SignInRequest) (dto.SignInResponse, error)
	SignOut(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	PasswordResetLink(ctx context.Context, email string) (string, error)
	AdminPasswordResetLink(ctx context.Context, callerID, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type authService struct {
	users     repository.UserRepository
	redis     *redis.Client
	cfg       AuthConfig
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService constructs the identity service.
func NewAuthService(users repository.UserRepository, redisClient *redis.Client, cfg AuthConfig, validate *validator.Validate, logger zerolog.Logger) AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}

	return &authService{
		users:     users,
		redis:     redisClient,
		cfg:       cfg,
		validator: validate,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SignIn verifies credentials against the stored hash and issues a token
// pair. Lookup and password failures share one message so the endpoint does
// not reveal which emails exist.
func (s *authService) SignIn(ctx context.Context, payload dto.SignInRequest) (dto.SignInResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		observability.SignIns().WithLabelValues("invalid").Inc()
		return dto.SignInResponse{}, apperr.Wrap(apperr.KindInvalidInput, "email and password are required", err)
	}

	user, err := s.users.GetByEmail(ctx, payload.Email)
	if err != nil {
		observability.SignIns().WithLabelValues("denied").Inc()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SignInResponse{}, apperr.New(apperr.KindUnauthenticated, "invalid email or password")
		}
		return dto.SignInResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		observability.SignIns().WithLabelValues("denied").Inc()
		return dto.SignInResponse{}, apperr.New(apperr.KindUnauthenticated, "invalid email or password")
	}

	if !user.IsActive {
		observability.SignIns().WithLabelValues("denied").Inc()
		return dto.SignInResponse{}, apperr.New(apperr.KindPermissionDenied, "account is deactivated")
	}

	issuedAt := s.now()
	accessToken, err := s.signToken(user.ID, user.Role, s.cfg.AccessSecret, issuedAt, s.cfg.AccessTTL)
	if err != nil {
		return dto.SignInResponse{}, apperr.Wrap(apperr.KindInternal, "failed to sign access token", err)
	}

	refreshToken, err := s.signToken(user.ID, user.Role, s.cfg.RefreshSecret, issuedAt, s.cfg.RefreshTTL)
	if err != nil {
		return dto.SignInResponse{}, apperr.Wrap(apperr.KindInternal, "failed to sign refresh token", err)
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("user signed in")
	observability.SignIns().WithLabelValues("success").Inc()

	return dto.SignInResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
		User:         dto.NewUserResponse(user),
	}, nil
}

// SignOut denylists the token id until its natural expiry.
func (s *authService) SignOut(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return apperr.New(apperr.KindInvalidInput, "token id missing")
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err(); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "failed to revoke token", err)
	}

	s.logger.Info().Str("token_id", tokenID).Msg("token revoked")

	return nil
}

func (s *authService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	_, err := s.redis.Get(ctx, revokedKeyPrefix+tokenID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Wrap(apperr.KindUnavailable, "failed to check token revocation", err)
	}

	return true, nil
}

// PasswordResetLink stores a single-use token with a TTL and returns the link
// to hand to the user out of band.
func (s *authService) PasswordResetLink(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.New(apperr.KindNotFound, "no user with that email")
		}
		return "", apperr.Wrap(apperr.KindInternal, "failed to load user", err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to generate reset token", err)
	}
	token := hex.EncodeToString(buf)

	if err := s.redis.Set(ctx, resetKeyPrefix+token, user.ID, s.cfg.ResetTokenTTL).Err(); err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, "failed to store reset token", err)
	}

	return fmt.Sprintf("%s?token=%s", strings.TrimRight(s.cfg.ResetLinkBase, "/"), token), nil
}

// AdminPasswordResetLink mints a reset link on another user's behalf. The
// link grants account access, so the caller's stored profile must carry the
// admin role; PasswordResetLink stays internal for flows that have already
// authorized the caller.
func (s *authService) AdminPasswordResetLink(ctx context.Context, callerID, email string) (string, error) {
	caller, err := requireStoredAdmin(ctx, s.users, callerID)
	if err != nil {
		return "", err
	}

	link, err := s.PasswordResetLink(ctx, email)
	if err != nil {
		return "", err
	}

	s.logger.Info().Str("admin_id", caller.ID).Msg("reset link issued by admin")

	return link, nil
}

// ResetPassword consumes the token. GetDel guarantees single use even under
// concurrent redemption attempts.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return apperr.New(apperr.KindInvalidInput, "password must be at least 8 characters")
	}

	userID, err := s.redis.GetDel(ctx, resetKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return apperr.New(apperr.KindInvalidInput, "reset token is invalid or already used")
	}
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "failed to redeem reset token", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "user not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to load user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	user.PasswordHash = string(hash)
	if err := s.users.Update(ctx, &user); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to store new password", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("password reset completed")

	return nil
}

func (s *authService) signToken(userID, role, secret string, issuedAt time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"jti":  uuid.NewString(),
		"iat":  issuedAt.Unix(),
		"exp":  issuedAt.Add(ttl).Unix(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
