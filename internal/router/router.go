package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"maiblog/internal/auth"
	"maiblog/internal/config"
	"maiblog/internal/handler"
	"maiblog/internal/observability"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger *zap.Logger,
	resolver *auth.Resolver,
	authHandler *handler.AuthHandler,
	postHandler *handler.PostHandler,
) {
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(observability.RequestLogger(logger))
	e.Use(middleware.Recover())
	if len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
			AllowCredentials: true,
		}))
	}

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")
	requireIdentity := RequireIdentity(resolver)

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/posts", postHandler.ListPosts)

	// Anonymous allowed, the visibility gate decides
	optionalIdentity := OptionalIdentity(resolver)
	api.GET("/posts/:id", postHandler.GetPost, optionalIdentity)
	api.GET("/posts/slug/:slug", postHandler.GetPostBySlug, optionalIdentity)

	// Secured routes (require a valid bearer token)
	secured := api.Group("", requireIdentity)
	secured.GET("/auth/me", authHandler.Me)
	secured.POST("/auth/upgrade", authHandler.Upgrade)

	admin := api.Group("/admin", requireIdentity, RequireAdmin)
	admin.POST("/posts", postHandler.CreatePost)
	admin.PATCH("/posts/:id", postHandler.UpdatePost)
	admin.DELETE("/posts/:id", postHandler.DeletePost)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
