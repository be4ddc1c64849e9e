package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

// RentalHandler handles HTTP requests for rental lifecycle operations.
// Service errors are returned as-is and rendered by the central error handler.
type RentalHandler struct {
	service ports.RentalService
}

func NewRentalHandler(service ports.RentalService) *RentalHandler {
	return &RentalHandler{service: service}
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// Rent handles POST /v1/rentals.
//
// @Summary      Rent a movie for the authenticated client
// @Tags         rentals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      rentRequest  true  "Movie to rent"
// @Success      201   {object}  rentalResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/rentals [post]
func (h *RentalHandler) Rent(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req rentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	rental, err := h.service.Rent(c.Request().Context(), caller, req.MovieID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toRentalResponse(rental))
}

// AdminRent handles POST /v1/admin/rentals.
//
// @Summary      Rent a movie on behalf of a client
// @Description  The client is resolved by id, then email, then "first last" name.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      adminRentRequest  true  "Movie and client identifier"
// @Success      201   {object}  rentalResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/admin/rentals [post]
func (h *RentalHandler) AdminRent(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req adminRentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	rental, err := h.service.AdminRent(c.Request().Context(), caller, ports.AdminRentInput{
		MovieID:          req.MovieID,
		ClientIdentifier: req.ClientIdentifier,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toRentalResponse(rental))
}

// RequestReturn handles POST /v1/rentals/:rental_id/return.
//
// @Summary      Ask to return a rented movie
// @Tags         rentals
// @Produce      json
// @Security     BearerAuth
// @Param        rental_id  path      string  true  "Rental id"
// @Success      200        {object}  rentalResponse
// @Failure      403        {object}  errorResponse
// @Failure      404        {object}  errorResponse
// @Failure      422        {object}  errorResponse
// @Router       /v1/rentals/{rental_id}/return [post]
func (h *RentalHandler) RequestReturn(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	rental, err := h.service.RequestReturn(c.Request().Context(), caller, c.Param("rental_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRentalResponse(rental))
}

// RequestReturnForMovie handles POST /v1/movies/:movie_id/return.
//
// @Summary      Ask to return a movie, addressed by movie id
// @Tags         rentals
// @Produce      json
// @Security     BearerAuth
// @Param        movie_id  path      string  true  "Movie id"
// @Success      200       {object}  rentalResponse
// @Failure      404       {object}  errorResponse
// @Failure      422       {object}  errorResponse
// @Router       /v1/movies/{movie_id}/return [post]
func (h *RentalHandler) RequestReturnForMovie(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	rental, err := h.service.RequestReturnForMovie(c.Request().Context(), caller, c.Param("movie_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRentalResponse(rental))
}

// ApproveReturn handles POST /v1/rentals/:rental_id/approve.
//
// @Summary      Approve a pending return
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        rental_id  path      string  true  "Rental id"
// @Success      200        {object}  rentalResponse
// @Failure      403        {object}  errorResponse
// @Failure      404        {object}  errorResponse
// @Failure      422        {object}  errorResponse
// @Failure      500        {object}  errorResponse
// @Router       /v1/rentals/{rental_id}/approve [post]
func (h *RentalHandler) ApproveReturn(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	rental, err := h.service.ApproveReturn(c.Request().Context(), caller, c.Param("rental_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRentalResponse(rental))
}

// ListMine handles GET /v1/rentals/me.
//
// @Summary      List the authenticated client's rentals
// @Tags         rentals
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listRentalsResponse
// @Router       /v1/rentals/me [get]
func (h *RentalHandler) ListMine(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	views, err := h.service.ListMine(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(views))
}

// ListPending handles GET /v1/rentals/pending.
//
// @Summary      List rentals waiting for return approval, newest request first
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listRentalsResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/rentals/pending [get]
func (h *RentalHandler) ListPending(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	views, err := h.service.ListPending(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(views))
}

// ListAll handles GET /v1/admin/rentals.
//
// @Summary      Search and sort all rentals
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        search      query     string  false  "Substring of client name, email, movie title or id"
// @Param        sort_by     query     string  false  "rentalDate | clientName | movieTitle"
// @Param        sort_order  query     string  false  "asc | desc (default desc)"
// @Param        status      query     string  false  "active | pending_return | returned"
// @Success      200         {object}  listRentalsResponse
// @Failure      400         {object}  errorResponse
// @Failure      403         {object}  errorResponse
// @Router       /v1/admin/rentals [get]
func (h *RentalHandler) ListAll(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var q listRentalsQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	views, err := h.service.ListAll(c.Request().Context(), caller, toListFilter(q))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(views))
}

// DeleteHistory handles DELETE /v1/rentals/:rental_id.
//
// @Summary      Remove a returned rental from the caller's history
// @Tags         rentals
// @Security     BearerAuth
// @Param        rental_id  path  string  true  "Rental id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/rentals/{rental_id} [delete]
func (h *RentalHandler) DeleteHistory(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteHistory(c.Request().Context(), caller, c.Param("rental_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// CheckIntegrity handles GET /v1/admin/integrity.
//
// @Summary      Scan open rentals against the inventory ledger and client counters
// @Description  Violations are reported, never repaired.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  integrityResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/admin/integrity [get]
func (h *RentalHandler) CheckIntegrity(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	report, err := h.service.CheckIntegrity(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toIntegrityResponse(report))
}
