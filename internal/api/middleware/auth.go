package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

// Context keys set by Auth.
const (
	KeyClientID = "client_id"
	KeyRole     = "role"
	KeyEmail    = "email"
)

// Auth validates the bearer JWT issued by the auth service and injects the
// caller's identity into the context. Tokens carry the client id in "sub",
// the role in "role" and optionally "email".
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			sub, _ := claims.GetSubject()
			role, _ := claims["role"].(string)
			if sub == "" || (role != domain.RoleUser && role != domain.RoleAdmin) {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing caller identity")
			}
			email, _ := claims["email"].(string)

			c.Set(KeyClientID, sub)
			c.Set(KeyRole, role)
			c.Set(KeyEmail, email)

			return next(c)
		}
	}
}
