package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pyrechat/pyre-server/internal/store"
)

// TokenTypeBearer is the token_type label returned with issued tokens.
const TokenTypeBearer = "bearer"

// Registration carries the fields accepted at sign-up.
type Registration struct {
	Username    string `validate:"required,min=3,max=32,excludesall= /\\"`
	Password    string `validate:"required,min=6,max=72"`
	Email       string `validate:"omitempty,email,max=254"`
	DisplayName string `validate:"omitempty,max=64"`
}

// Token is an issued bearer token.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// Service provides authentication operations.
type Service struct {
	users     store.UserStore
	jwtConfig *JWTConfig
	hasher    PasswordHasher
	validate  *validator.Validate
}

// Option customises a Service.
type Option func(*Service)

// WithPasswordCost sets the bcrypt cost used for new password hashes.
func WithPasswordCost(cost int) Option {
	return func(s *Service) {
		s.hasher = NewPasswordHasher(cost)
	}
}

// NewService creates a new authentication service.
func NewService(users store.UserStore, jwtConfig *JWTConfig, opts ...Option) *Service {
	s := &Service{
		users:     users,
		jwtConfig: jwtConfig,
		hasher:    NewPasswordHasher(0),
		validate:  validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates the request, hashes the password and stores a new
// enabled user. A taken username yields ErrUserExists and writes nothing.
func (s *Service) Register(ctx context.Context, reg Registration) (*store.User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	reg.DisplayName = strings.TrimSpace(reg.DisplayName)

	if err := s.validate.Struct(reg); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, describeValidation(err))
	}

	// Cheap pre-check so a conflict skips the bcrypt work. The store
	// still enforces uniqueness.
	if _, err := s.users.GetUser(ctx, reg.Username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hashed, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, err
	}

	user := store.User{
		Username:       reg.Username,
		Email:          reg.Email,
		DisplayName:    reg.DisplayName,
		HashedPassword: hashed,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &user, nil
}

// Authenticate checks username/password and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*store.User, error) {
	user, err := s.users.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Compare(user.HashedPassword, password) {
		return nil, ErrInvalidCredentials
	}
	if user.Disabled {
		return nil, ErrUserDisabled
	}
	return user, nil
}

// IssueToken authenticates the credentials and returns a signed bearer token.
func (s *Service) IssueToken(ctx context.Context, username, password string) (*Token, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	signed, expiresAt, err := GenerateToken(s.jwtConfig, user.Username)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &Token{
		AccessToken: signed,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   expiresAt,
	}, nil
}

// Verify maps a bearer token to the username it was issued for. The
// subject must still name a registered user.
func (s *Service) Verify(ctx context.Context, token string) (string, error) {
	claims, err := ParseToken(s.jwtConfig, token)
	if err != nil {
		return "", err
	}

	if _, err := s.users.GetUser(ctx, claims.Subject); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return "", fmt.Errorf("%w: %q", ErrUnknownSubject, claims.Subject)
		}
		return "", fmt.Errorf("lookup subject: %w", err)
	}

	return claims.Subject, nil
}

// Profile returns the stored record for username.
func (s *Service) Profile(ctx context.Context, username string) (*store.User, error) {
	user, err := s.users.GetUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return user, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
