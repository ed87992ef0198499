package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"maiblog/internal/auth"
	"maiblog/internal/errors"
	"maiblog/internal/model"
	"maiblog/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	now         func() time.Time
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService, now: time.Now}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID                  uint       `json:"id"`
	Email               string     `json:"email"`
	Role                string     `json:"role"`
	MembershipExpiresAt *time.Time `json:"membership_expires_at"`
	MembershipActive    bool       `json:"membership_active"`
	CreatedAt           time.Time  `json:"created_at"`
}

// TokenResponse represents an authentication response.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
}

func (h *AuthHandler) userResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:                  user.ID,
		Email:               user.Email,
		Role:                user.Role,
		MembershipExpiresAt: user.MembershipExpiresAt,
		MembershipActive:    auth.IsMembershipActive(user, h.now().UTC()),
		CreatedAt:           user.CreatedAt,
	}
}

func (h *AuthHandler) tokenResponse(result *service.AuthResult) TokenResponse {
	return TokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   result.ExpiresAt,
		User:        h.userResponse(result.User),
	}
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} TokenResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, h.tokenResponse(result))
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, h.tokenResponse(result))
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return domainError(errors.ErrUnauthenticated)
	}
	return c.JSON(http.StatusOK, h.userResponse(user))
}

// Upgrade godoc
// @Summary Upgrade to a 30-day membership
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/upgrade [post]
func (h *AuthHandler) Upgrade(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return domainError(errors.ErrUnauthenticated)
	}

	upgraded, err := h.authService.UpgradeMembership(c.Request().Context(), user)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, h.userResponse(upgraded))
}
