package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/divecrm/divecrm/internal/auth"
	"github.com/divecrm/divecrm/internal/config"
	"github.com/divecrm/divecrm/internal/model"
	"github.com/divecrm/divecrm/internal/repository"
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrUsernameTaken      = errors.New("username already taken")
)

// StaffStore is the slice of the staff repository the auth service needs.
type StaffStore interface {
	Create(ctx context.Context, u *model.StaffUser) error
	GetByUsername(ctx context.Context, username string) (*model.StaffUser, error)
	GetByID(ctx context.Context, id string) (*model.StaffUser, error)
	List(ctx context.Context) ([]*model.StaffUser, error)
	Delete(ctx context.Context, id string) error
}

// Session is a successful login result.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *model.StaffUser
}

// AuthService handles staff login and account management.
type AuthService struct {
	staff  StaffStore
	tokens *auth.TokenService
	params *auth.Argon2Params
	minLen int
}

// NewAuthService creates a new AuthService
func NewAuthService(staff StaffStore, tokens *auth.TokenService, cfg config.PasswordConfig) *AuthService {
	return &AuthService{
		staff:  staff,
		tokens: tokens,
		params: auth.NewParams(cfg.Argon2Memory, cfg.Argon2Iterations, cfg.Argon2Parallelism),
		minLen: cfg.MinLength,
	}
}

// Login verifies credentials and issues a session token. The error is the
// same for an unknown username and a wrong password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.staff.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup staff user: %w", err)
	}

	ok, err := auth.VerifyPassword(password, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(u.ID, u.Username, u.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &Session{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// CreateStaff registers a new staff account.
func (s *AuthService) CreateStaff(ctx context.Context, username, password string, isAdmin bool) (*model.StaffUser, error) {
	if len(password) < s.minLen {
		return nil, ErrPasswordTooShort
	}

	hash, err := auth.HashPassword(password, s.params)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	u := &model.StaffUser{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.staff.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create staff user: %w", err)
	}
	return u, nil
}

// GetStaff returns one staff account by id.
func (s *AuthService) GetStaff(ctx context.Context, id string) (*model.StaffUser, error) {
	return s.staff.GetByID(ctx, id)
}

// ListStaff returns every staff account.
func (s *AuthService) ListStaff(ctx context.Context) ([]*model.StaffUser, error) {
	return s.staff.List(ctx)
}

// DeleteStaff removes a staff account.
func (s *AuthService) DeleteStaff(ctx context.Context, id string) error {
	return s.staff.Delete(ctx, id)
}
