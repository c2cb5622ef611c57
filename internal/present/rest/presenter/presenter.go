package presenter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/oathbound/oathbound/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func Created(c echo.Context, payload any) error {
	return c.JSON(http.StatusCreated, payload)
}

func BadRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

// Error maps the domain error taxonomy onto HTTP statuses. Anything outside
// the taxonomy is a 500 and gets logged; the taxonomy errors are expected
// request outcomes and are returned quietly.
func Error(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInsufficientFunds):
		return c.JSON(http.StatusPaymentRequired, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotAuthorized):
		return c.JSON(http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotEligible), errors.Is(err, domain.ErrConflict):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		slog.ErrorContext(
			c.Request().Context(), "Internal error",
			slog.String("error", err.Error()),
			slog.String("module", "rest"),
		)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
