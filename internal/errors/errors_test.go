package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unauthenticated", ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"expired", ErrExpiredCredential, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"unsupported scheme", ErrUnsupportedCredentialType, http.StatusUnauthorized, "UNSUPPORTED_CREDENTIAL_TYPE"},
		{"identity gone", ErrIdentityNotFound, http.StatusUnauthorized, "IDENTITY_NOT_FOUND"},
		{"membership", ErrMembershipRequired, http.StatusForbidden, "MEMBERSHIP_REQUIRED"},
		{"email taken", ErrEmailAlreadyRegistered, http.StatusBadRequest, "EMAIL_ALREADY_REGISTERED"},
		{"bad login", ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"content missing", ErrContentMissing, http.StatusInternalServerError, "CONTENT_MISSING"},
		{"wrapped", fmt.Errorf("read post 7: %w", ErrPostNotFound), http.StatusNotFound, "POST_NOT_FOUND"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.code, httpErr.Code)
			assert.Equal(t, httpErr.Message, httpErr.ToErrorResponse().Error)
		})
	}
}

func TestMapErrorToHTTP_HidesInternalMessage(t *testing.T) {
	httpErr := MapErrorToHTTP(errors.New("dial tcp 10.0.0.1:3306: connection refused"))
	assert.Equal(t, "internal server error", httpErr.Message)
}
