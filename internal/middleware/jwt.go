package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/rims-platform/rims-api/internal/utils"
)

// TokenRevocationChecker reports whether a token id has been denylisted.
// Implemented by the auth service; nil disables the check.
type TokenRevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// JWTProtected returns a middleware that validates JWT bearer tokens and
// binds the principal to the request. The role claim set here is only an
// early gate; privileged services re-read the stored profile.
func JWTProtected(secret string, revocations TokenRevocationChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		userID := stringClaim(claims, "sub", "user_id", "id")
		if userID == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token subject")
		}

		tokenID := stringClaim(claims, "jti")
		if revocations != nil && tokenID != "" {
			revoked, err := revocations.IsRevoked(c.UserContext(), tokenID)
			if err != nil {
				return utils.SendError(c, fiber.StatusServiceUnavailable, "token verification unavailable")
			}
			if revoked {
				return utils.SendError(c, fiber.StatusUnauthorized, "token has been revoked")
			}
		}

		c.Locals("user_id", userID)
		c.Locals("token_id", tokenID)
		if role := extractUserRoleFromClaims(claims); role != "" {
			c.Locals("user_role", role)
		}
		if expiry := expiryFromClaims(claims); !expiry.IsZero() {
			c.Locals("token_expires", expiry)
		}

		return c.Next()
	}
}

func stringClaim(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if str, ok := value.(string); ok && strings.TrimSpace(str) != "" {
				return strings.TrimSpace(str)
			}
		}
	}
	return ""
}

func expiryFromClaims(claims jwt.MapClaims) time.Time {
	if value, ok := claims["exp"]; ok {
		if seconds, ok := value.(float64); ok {
			return time.Unix(int64(seconds), 0).UTC()
		}
	}
	return time.Time{}
}

func extractUserRoleFromClaims(claims jwt.MapClaims) string {
	candidates := []string{"role", "roles"}
	for _, key := range candidates {
		if value, ok := claims[key]; ok {
			if role := normalizeRole(value); role != "" {
				return role
			}
		}
	}
	return ""
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				role := strings.ToLower(strings.TrimSpace(str))
				if role != "" {
					return role
				}
			}
		}
		return ""
	default:
		return ""
	}
}
