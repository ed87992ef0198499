package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "maiblog/internal/errors"
	"maiblog/internal/model"
)

const bearerScheme = "bearer"

// IdentityFinder loads users by primary key. Missing rows return gorm.ErrRecordNotFound.
type IdentityFinder interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// Resolver turns a raw Authorization header into a user.
type Resolver struct {
	codec  *TokenCodec
	users  IdentityFinder
	logger *zap.Logger
}

// NewResolver creates a Resolver. A nil logger discards output.
func NewResolver(codec *TokenCodec, users IdentityFinder, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{codec: codec, users: users, logger: logger}
}

// ResolveRequired authenticates header or returns a taxonomy error.
func (r *Resolver) ResolveRequired(ctx context.Context, header string) (*model.User, error) {
	token, err := bearerToken(header)
	if err != nil {
		return nil, err
	}

	claims, err := r.codec.Decode(token)
	if err != nil {
		return nil, err
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return nil, apperrors.ErrMalformedClaims
	}

	user, err := r.users.FindByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("load identity %d: %w", id, err)
	}
	return user, nil
}

// ResolveOptional is ResolveRequired with every failure collapsed to nil.
func (r *Resolver) ResolveOptional(ctx context.Context, header string) *model.User {
	user, err := r.ResolveRequired(ctx, header)
	if err != nil {
		if apperrors.MapErrorToHTTP(err).StatusCode >= http.StatusInternalServerError {
			r.logger.Warn("optional identity lookup failed", zap.Error(err))
		}
		return nil
	}
	return user
}

// bearerToken extracts the token from "Bearer <token>". The scheme is case-insensitive.
func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", apperrors.ErrUnauthenticated
	}

	parts := strings.SplitN(header, " ", 2)
	if !strings.EqualFold(parts[0], bearerScheme) {
		return "", apperrors.ErrUnsupportedCredentialType
	}
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.ErrUnauthenticated
	}
	return strings.TrimSpace(parts[1]), nil
}
