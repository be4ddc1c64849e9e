package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestJSONSerializer_BindsThroughEcho(t *testing.T) {
	e := echo.New()
	e.JSONSerializer = JSONSerializer{}
	e.Validator = NewValidator()

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/rentals", strings.NewReader(`{"movie_id":"m1","client_identifier":"ana@example.com"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var body adminRentRequest
	if err := bindAndValidate(c, &body); err != nil {
		t.Fatalf("bind error: %v", err)
	}
	if body.MovieID != "m1" || body.ClientIdentifier != "ana@example.com" {
		t.Fatalf("unexpected body: %+v", body)
	}

	if err := c.JSON(http.StatusOK, errorResponse{Error: "x"}); err != nil {
		t.Fatalf("serialize error: %v", err)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"error":"x"}` {
		t.Fatalf("unexpected output: %q", rec.Body.String())
	}
}

func TestJSONSerializer_MalformedBody(t *testing.T) {
	e := echo.New()
	e.JSONSerializer = JSONSerializer{}

	req := httptest.NewRequest(http.MethodPost, "/v1/rentals", strings.NewReader(`{"movie_id":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var body rentRequest
	err := c.Bind(&body)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}
