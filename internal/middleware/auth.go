// Package middleware resolves the calling actor and guards routes by role.
package middleware

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	apperrors "arbitra/internal/errors"
	"arbitra/internal/models"
	"arbitra/internal/utils"
	"arbitra/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const APIKeyHeader = "X-API-Key"

// KeyAuthenticator resolves a raw API key presented from an address.
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, rawKey, clientIP string) (*models.Actor, error)
}

// AuthMiddleware accepts either an X-API-Key header or a Bearer token
// signed with the shared secret.
type AuthMiddleware struct {
	keys      KeyAuthenticator
	jwtSecret []byte
}

func NewAuthMiddleware(keys KeyAuthenticator, jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		keys:      keys,
		jwtSecret: []byte(jwtSecret),
	}
}

// Handler stores the resolved actor under utils.ActorKey.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	if raw := c.Get(APIKeyHeader); raw != "" {
		actor, err := m.keys.Authenticate(c.UserContext(), raw, c.IP())
		if err != nil {
			return response.Fail(c, err)
		}
		c.Locals(utils.ActorKey, actor)
		return c.Next()
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok && len(m.jwtSecret) > 0 {
		actor, err := m.parseToken(token)
		if err != nil {
			slog.Warn("bearer token rejected",
				"module", "middleware",
				"operation", "authenticate",
				"path", c.Path(),
				"error", err,
			)
			return response.Fail(c, apperrors.Unauthorized("Invalid token"))
		}
		c.Locals(utils.ActorKey, actor)
		return c.Next()
	}

	return response.Fail(c, apperrors.Unauthorized("API key is required"))
}

func (m *AuthMiddleware) parseToken(raw string) (*models.Actor, error) {
	claims := &models.ActorClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.ActorID == "" || !claims.Role.Valid() {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims.Actor(), nil
}

// SignToken issues a Bearer token for actor, valid for ttl.
func SignToken(secret string, actor *models.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := models.ActorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		ActorID:    actor.ID,
		Email:      actor.Email,
		Role:       actor.Role,
		BusinessID: actor.BusinessID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// RequireRole lets through only actors holding one of roles.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := utils.GetActor(c)
		if err != nil {
			return response.Fail(c, err)
		}
		if !slices.Contains(roles, actor.Role) {
			return response.Fail(c, apperrors.Forbidden("Insufficient permissions"))
		}
		return c.Next()
	}
}
