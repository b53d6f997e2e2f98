package auth

import (
	"context"
	"strings"

	"edrs-docstore/internal/domain/user"
	apperrors "edrs-docstore/pkg/errors"

	"github.com/labstack/echo/v4"
)

// UserLookup resolves a token subject to a live account.
type UserLookup interface {
	Lookup(ctx context.Context, id int64) (*user.User, error)
}

type Middleware struct {
	jwtService *JWTService
	users      UserLookup
}

func NewMiddleware(jwtService *JWTService, users UserLookup) *Middleware {
	return &Middleware{
		jwtService: jwtService,
		users:      users,
	}
}

// RequireJWT authenticates the bearer token and stores the caller's Principal. Unknown
// and inactive accounts are rejected even with a valid signature.
func (m *Middleware) RequireJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearerToken(c)
			if token == "" {
				return apperrors.Unauthorized(msgMissingAuthorization)
			}

			claims, err := m.jwtService.Verify(token)
			if err != nil {
				return apperrors.Unauthorized(msgInvalidOrExpiredToken)
			}

			u, err := m.users.Lookup(c.Request().Context(), claims.UserID)
			if err != nil {
				return err
			}

			c.Set(ContextKeyPrincipal, u.Principal())
			return next(c)
		}
	}
}

func extractBearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get(headerAuthorization)
	if authHeader == "" {
		return ""
	}

	parts := strings.Fields(authHeader)
	if len(parts) != authHeaderParts || strings.ToLower(parts[0]) != bearerScheme {
		return ""
	}

	return parts[1]
}

func GetPrincipal(c echo.Context) (user.Principal, error) {
	raw := c.Get(ContextKeyPrincipal)
	if raw == nil {
		return user.Principal{}, apperrors.Unauthorized(msgUserNotAuthenticated)
	}

	p, ok := raw.(user.Principal)
	if !ok {
		return user.Principal{}, apperrors.InternalServer(msgInvalidPrincipalCtx, nil)
	}

	return p, nil
}
