package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/videorental/rental-lifecycle/internal/api/middleware"
	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

// callerFrom builds the engine caller from the claims injected by the Auth
// middleware and fails fast when they are missing: both id and role must be
// present or the request never reached Auth.
func callerFrom(c echo.Context) (domain.Caller, error) {
	id, _ := c.Get(middleware.KeyClientID).(string)
	role, _ := c.Get(middleware.KeyRole).(string)
	if id == "" || role == "" {
		return domain.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return domain.Caller{ID: id, Role: role}, nil
}
