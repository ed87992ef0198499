package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	apperrors "maiblog/internal/errors"
)

// TokenCodec signs and verifies HS256 access tokens carrying {sub, exp}.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// TokenOption customizes a TokenCodec.
type TokenOption func(*TokenCodec)

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// NewTokenCodec creates a codec for the given secret and lifetime in minutes.
func NewTokenCodec(secret string, ttlMinutes int, opts ...TokenOption) *TokenCodec {
	c := &TokenCodec{
		secret: []byte(secret),
		ttl:    time.Duration(ttlMinutes) * time.Minute,
		now:    time.Now,
		// expiry is checked against c.now below, not the library clock
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Encode issues a token for subject and returns it with its expiry.
func (c *TokenCodec) Encode(subject string) (string, time.Time, error) {
	expiresAt := c.now().UTC().Add(c.ttl).Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Decode verifies signature and expiry and returns the claims.
func (c *TokenCodec) Decode(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := c.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.ErrInvalidCredential
	}

	if claims.ExpiresAt == nil {
		return nil, apperrors.ErrInvalidCredential
	}
	if !c.now().Before(claims.ExpiresAt.Time) {
		return nil, apperrors.ErrExpiredCredential
	}
	return claims, nil
}
