package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"doctrack/internal/domain/document"
	"doctrack/internal/domain/user"
	"doctrack/internal/usecase/auth"
	docuc "doctrack/internal/usecase/document"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, document.ErrNotFound), errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, user.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, user.ErrAdminRequired), errors.Is(err, document.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, user.ErrExists):
		return http.StatusConflict
	case errors.Is(err, document.ErrInvalidControlNumber),
		errors.Is(err, document.ErrDuplicateControlNumber),
		errors.Is(err, document.ErrInvalidStatus),
		errors.Is(err, document.ErrInvalidWinsStatus),
		errors.Is(err, document.ErrCreatedAtInFuture),
		errors.Is(err, docuc.ErrInvalidPatch),
		errors.Is(err, auth.ErrMissingFields),
		errors.Is(err, user.ErrLastAdmin):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(c echo.Context, err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	code := statusFor(err)
	msg := err.Error()
	switch code {
	case http.StatusNotFound:
		msg = "not found"
	case http.StatusUnauthorized:
		msg = "invalid"
	case http.StatusInternalServerError:
		slog.Error("request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
		msg = "internal error"
	}
	return c.JSON(code, ErrorResponse{Error: msg})
}

// bindAndValidate decodes the body and runs struct validation. When ok is
// false the error response has already been written.
func bindAndValidate(c echo.Context, req any) (ok bool, err error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, writeError(c, err)
	}
	return true, nil
}
