package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/videorental/rental-lifecycle/internal/api/handler"
	"github.com/videorental/rental-lifecycle/internal/api/middleware"
	"github.com/videorental/rental-lifecycle/internal/core/domain"
	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

// RouterDeps carries everything the HTTP layer needs.
type RouterDeps struct {
	Rentals   ports.RentalService
	Audit     ports.AuditService
	JWTSecret string
	// Pingers are checked by /health/ready, keyed by dependency name.
	Pingers map[string]ports.Pinger
	Logger  zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.JSONSerializer = handler.JSONSerializer{}
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("rental_http"))

	// --- Health checks, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.Pingers)
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	rentalHandler := handler.NewRentalHandler(deps.Rentals)
	auditHandler := handler.NewAuditHandler(deps.Audit)

	v1 := e.Group("/v1", middleware.Auth(deps.JWTSecret))

	// --- Client routes (admins may call them too) ---
	clients := v1.Group("", middleware.RBAC(domain.RoleUser, domain.RoleAdmin))
	clients.POST("/rentals", rentalHandler.Rent)
	clients.GET("/rentals/me", rentalHandler.ListMine)
	clients.POST("/rentals/:rental_id/return", rentalHandler.RequestReturn)
	clients.POST("/movies/:movie_id/return", rentalHandler.RequestReturnForMovie)
	clients.DELETE("/rentals/:rental_id", rentalHandler.DeleteHistory)
	clients.GET("/rentals/:rental_id/events", auditHandler.History)

	// --- Admin routes ---
	admin := v1.Group("", middleware.AdminOnly())
	admin.POST("/admin/rentals", rentalHandler.AdminRent)
	admin.GET("/admin/rentals", rentalHandler.ListAll)
	admin.GET("/admin/integrity", rentalHandler.CheckIntegrity)
	admin.GET("/rentals/pending", rentalHandler.ListPending)
	admin.POST("/rentals/:rental_id/approve", rentalHandler.ApproveReturn)

	return e
}
