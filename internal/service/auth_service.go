package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"maiblog/internal/auth"
	apperrors "maiblog/internal/errors"
	"maiblog/internal/events"
	"maiblog/internal/model"
	"maiblog/internal/repository"
)

// AuthResult is returned by register and login.
type AuthResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *model.User
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	UpgradeMembership(ctx context.Context, user *model.User) (*model.User, error)
	CreateUser(ctx context.Context, email, password, role string) (*model.User, error)
}

type authService struct {
	users     repository.UserRepository
	hasher    *auth.Hasher
	codec     *auth.TokenCodec
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// AuthOption customizes the auth service.
type AuthOption func(*authService)

// WithAuthClock overrides the clock used for membership expiry.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *authService) { s.now = now }
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	hasher *auth.Hasher,
	codec *auth.TokenCodec,
	publisher events.Publisher,
	logger *zap.Logger,
	opts ...AuthOption,
) AuthService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &authService{
		users:     users,
		hasher:    hasher,
		codec:     codec,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a plain user and signs them in.
func (s *authService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.createUser(ctx, email, password, model.RoleUser)
	if err != nil {
		return nil, err
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.TypeUserRegistered, user.ID, map[string]any{"email": user.Email}))
	return result, nil
}

// Login authenticates by email and password. Unknown email and wrong password fail identically.
func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	return s.issue(user)
}

// UpgradeMembership grants a fixed 30-day membership starting now.
func (s *authService) UpgradeMembership(ctx context.Context, user *model.User) (*model.User, error) {
	expiresAt := s.now().UTC().Add(auth.MembershipWindow)

	upgraded, err := s.users.SetMembershipExpiry(ctx, user, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("upgrade membership: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.TypeMembershipUpgraded, upgraded.ID, map[string]any{
		"expires_at": expiresAt.Format(time.RFC3339),
	}))
	return upgraded, nil
}

// CreateUser provisions an account with an explicit role. Members created here never expire.
func (s *authService) CreateUser(ctx context.Context, email, password, role string) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	return s.createUser(ctx, email, password, role)
}

func (s *authService) createUser(ctx context.Context, email, password, role string) (*model.User, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrEmailAlreadyRegistered
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: s.hasher.Hash(password),
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *authService) issue(user *model.User) (*AuthResult, error) {
	token, expiresAt, err := s.codec.Encode(strconv.FormatUint(uint64(user.ID), 10))
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &AuthResult{AccessToken: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *authService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed",
			zap.String("event_type", event.Type),
			zap.Uint("user_id", event.UserID),
			zap.Error(err),
		)
	}
}
