package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthenticated is returned when a request carries no usable credential.
	ErrUnauthenticated = errors.New("login required to read this content")
	// ErrExpiredCredential is returned when a token is past its expiry.
	ErrExpiredCredential = errors.New("login expired, please sign in again")
	// ErrInvalidCredential is returned when a token fails signature or structure checks.
	ErrInvalidCredential = errors.New("invalid access token")
	// ErrUnsupportedCredentialType is returned for Authorization schemes other than Bearer.
	ErrUnsupportedCredentialType = errors.New("unsupported credential type")
	// ErrMalformedClaims is returned when a valid token has no usable subject.
	ErrMalformedClaims = errors.New("invalid token claims")
	// ErrIdentityNotFound is returned when the token subject no longer exists.
	ErrIdentityNotFound = errors.New("user does not exist or has been removed")
	// ErrMembershipRequired is returned when an authenticated caller lacks an active membership.
	ErrMembershipRequired = errors.New("members only, upgrade to keep reading")
	// ErrAdminRequired is returned when a non-admin calls an admin endpoint.
	ErrAdminRequired = errors.New("admin role required")
	// ErrEmailAlreadyRegistered is returned when registering a taken email.
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrInvalidCredentials is returned on any login failure. It never reveals which part was wrong.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrPostNotFound is returned when a post is not found.
	ErrPostNotFound = errors.New("post not found")
	// ErrSlugTaken is returned when a post slug collides with an existing one.
	ErrSlugTaken = errors.New("slug already in use")
	// ErrContentMissing is returned when a post's body is absent from the content store.
	ErrContentMissing = errors.New("post content is missing")
	// ErrInvalidPost is returned when post input fails domain checks (unknown tier, no content path).
	ErrInvalidPost = errors.New("invalid post data")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

var mapping = []struct {
	err    error
	status int
	code   string
}{
	{ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{ErrExpiredCredential, http.StatusUnauthorized, "TOKEN_EXPIRED"},
	{ErrInvalidCredential, http.StatusUnauthorized, "TOKEN_INVALID"},
	{ErrMalformedClaims, http.StatusUnauthorized, "TOKEN_INVALID"},
	{ErrUnsupportedCredentialType, http.StatusUnauthorized, "UNSUPPORTED_CREDENTIAL_TYPE"},
	{ErrIdentityNotFound, http.StatusUnauthorized, "IDENTITY_NOT_FOUND"},
	{ErrMembershipRequired, http.StatusForbidden, "MEMBERSHIP_REQUIRED"},
	{ErrAdminRequired, http.StatusForbidden, "ADMIN_REQUIRED"},
	{ErrEmailAlreadyRegistered, http.StatusBadRequest, "EMAIL_ALREADY_REGISTERED"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrPostNotFound, http.StatusNotFound, "POST_NOT_FOUND"},
	{ErrSlugTaken, http.StatusConflict, "SLUG_TAKEN"},
	{ErrInvalidPost, http.StatusBadRequest, "INVALID_POST"},
	{ErrContentMissing, http.StatusInternalServerError, "CONTENT_MISSING"},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped errors are matched with errors.Is.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mapping {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, m.err.Error(), m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
