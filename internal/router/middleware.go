package router

import (
	"errors"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"maiblog/internal/auth"
	apperrors "maiblog/internal/errors"
	"maiblog/internal/handler"
)

func errorResponse(err error) *echo.HTTPError {
	httpErr := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
}

// RequireIdentity rejects requests without a valid bearer token and stores the user on the context.
func RequireIdentity(resolver *auth.Resolver) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  handler.IdentityContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization,
		ParseTokenFunc: func(c echo.Context, header string) (interface{}, error) {
			return resolver.ResolveRequired(c.Request().Context(), header)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var parseErr *echojwt.TokenParsingError
			if errors.As(err, &parseErr) {
				return errorResponse(parseErr.Err)
			}
			// header absent
			return errorResponse(apperrors.ErrUnauthenticated)
		},
	})
}

// OptionalIdentity attaches the caller when a valid token is present and never rejects.
func OptionalIdentity(resolver *auth.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if user := resolver.ResolveOptional(c.Request().Context(), header); user != nil {
				c.Set(handler.IdentityContextKey, user)
			}
			return next(c)
		}
	}
}

// RequireAdmin must run after RequireIdentity.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !handler.CurrentUser(c).IsAdmin() {
			return errorResponse(apperrors.ErrAdminRequired)
		}
		return next(c)
	}
}
