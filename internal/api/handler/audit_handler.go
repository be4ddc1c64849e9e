package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

// AuditHandler serves the rental audit trail.
type AuditHandler struct {
	service ports.AuditService
}

func NewAuditHandler(service ports.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// History handles GET /v1/rentals/:rental_id/events.
//
// @Summary      Get the lifecycle events of a rental
// @Description  Visible to the renting client and to administrators.
// @Tags         rentals
// @Produce      json
// @Security     BearerAuth
// @Param        rental_id  path      string  true  "Rental id"
// @Success      200        {object}  rentalHistoryResponse
// @Failure      403        {object}  errorResponse
// @Failure      404        {object}  errorResponse
// @Router       /v1/rentals/{rental_id}/events [get]
func (h *AuditHandler) History(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	rentalID := c.Param("rental_id")
	events, err := h.service.History(c.Request().Context(), caller, rentalID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHistoryResponse(rentalID, events))
}
