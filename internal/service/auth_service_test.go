package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rims-platform/rims-api/internal/apperr"
	"github.com/rims-platform/rims-api/internal/dto"
	"github.com/rims-platform/rims-api/internal/models"
)

func newAuthFixture(t *testing.T) (AuthService, *userRepoStub, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse-battery"), bcrypt.MinCost)
	require.NoError(t, err)

	users := newUserRepoStub(models.User{
		ID:           "user-1",
		Email:        "alice@example.edu",
		Name:         "Alice",
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		IsActive:     true,
	})

	cfg := AuthConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		ResetLinkBase: "https://rims.example.edu/reset",
		ResetTokenTTL: time.Hour,
	}

	svc := NewAuthService(users, redisClient, cfg, validator.New(validator.WithRequiredStructEnabled()), testLogger())

	return svc, users, server
}

func TestAuthServiceSignIn(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	response, err := svc.SignIn(context.Background(), dto.SignInRequest{
		Email:    "alice@example.edu",
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	require.NotEmpty(t, response.AccessToken)
	require.NotEmpty(t, response.RefreshToken)
	require.Equal(t, int64(900), response.ExpiresIn)
	require.Equal(t, "user-1", response.User.ID)

	token, _, err := jwt.NewParser().ParseUnverified(response.AccessToken, jwt.MapClaims{})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	require.Equal(t, "user-1", claims["sub"])
	require.Equal(t, models.RoleUser, claims["role"])
	require.NotEmpty(t, claims["jti"])
}

func TestAuthServiceSignInRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.SignIn(context.Background(), dto.SignInRequest{
		Email:    "alice@example.edu",
		Password: "wrong-password-here",
	})
	require.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	_, err = svc.SignIn(context.Background(), dto.SignInRequest{
		Email:    "nobody@example.edu",
		Password: "whatever-password",
	})
	require.True(t, apperr.Is(err, apperr.KindUnauthenticated))
	// Same message for both, so emails cannot be enumerated.
	require.Equal(t, "invalid email or password", apperr.Message(err))
}

func TestAuthServiceSignInRejectsDeactivated(t *testing.T) {
	svc, users, _ := newAuthFixture(t)

	user, err := users.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	user.IsActive = false
	require.NoError(t, users.Update(context.Background(), &user))

	_, err = svc.SignIn(context.Background(), dto.SignInRequest{
		Email:    "alice@example.edu",
		Password: "correct-horse-battery",
	})
	require.True(t, apperr.Is(err, apperr.KindPermissionDenied))
}

func TestAuthServiceSignOutRevokes(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	revoked, err := svc.IsRevoked(context.Background(), "token-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, svc.SignOut(context.Background(), "token-1", time.Now().Add(time.Hour)))

	revoked, err = svc.IsRevoked(context.Background(), "token-1")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestAuthServicePasswordResetFlow(t *testing.T) {
	svc, users, _ := newAuthFixture(t)

	link, err := svc.PasswordResetLink(context.Background(), "alice@example.edu")
	require.NoError(t, err)
	require.Contains(t, link, "https://rims.example.edu/reset?token=")

	token := link[len("https://rims.example.edu/reset?token="):]
	require.NoError(t, svc.ResetPassword(context.Background(), token, "new-password-123"))

	user, err := users.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("new-password-123")))

	// Single use: the second redemption must fail.
	err = svc.ResetPassword(context.Background(), token, "another-password-456")
	require.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

func TestAuthServicePasswordResetUnknownEmail(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.PasswordResetLink(context.Background(), "ghost@example.edu")
	require.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAuthServiceAdminPasswordResetLink(t *testing.T) {
	svc, users, _ := newAuthFixture(t)

	admin := models.User{ID: "admin-1", Email: "root@example.edu", Name: "Root", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, users.Create(context.Background(), &admin))

	link, err := svc.AdminPasswordResetLink(context.Background(), admin.ID, "alice@example.edu")
	require.NoError(t, err)
	require.Contains(t, link, "https://rims.example.edu/reset?token=")
}

func TestAuthServiceAdminPasswordResetLinkRejectsNonAdmins(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	// A reset link signs the holder in as the target account, so minting one
	// is restricted to stored-profile admins.
	_, err := svc.AdminPasswordResetLink(context.Background(), "user-1", "alice@example.edu")
	require.True(t, apperr.Is(err, apperr.KindPermissionDenied))

	_, err = svc.AdminPasswordResetLink(context.Background(), "", "alice@example.edu")
	require.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestAuthServiceResetTokenExpires(t *testing.T) {
	svc, _, server := newAuthFixture(t)

	link, err := svc.PasswordResetLink(context.Background(), "alice@example.edu")
	require.NoError(t, err)
	token := link[len("https://rims.example.edu/reset?token="):]

	server.FastForward(2 * time.Hour)

	err = svc.ResetPassword(context.Background(), token, "new-password-123")
	require.True(t, apperr.Is(err, apperr.KindInvalidInput))
}
