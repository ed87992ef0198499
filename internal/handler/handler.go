package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"maiblog/internal/errors"
	"maiblog/internal/model"
)

// IdentityContextKey is where auth middleware stores the resolved *model.User.
const IdentityContextKey = "identity"

// CurrentUser returns the identity attached to the request, or nil for anonymous callers.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(IdentityContextKey).(*model.User)
	return user
}

// domainError renders a domain error with its mapped status and code.
func domainError(err error) *echo.HTTPError {
	httpErr := errors.MapErrorToHTTP(err)
	he := echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	return he.SetInternal(err)
}

func badRequest(message, code string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// bindAndValidate binds the body into req and runs struct validation.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid request body", "INVALID_REQUEST")
	}
	if err := c.Validate(req); err != nil {
		return badRequest(err.Error(), "VALIDATION_ERROR")
	}
	return nil
}
