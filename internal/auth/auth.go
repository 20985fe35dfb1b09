// Package auth registers accounts, checks passwords and issues the signed
// tokens the HTTP layer uses to identify an account.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/qbank/internal/domain"
	"github.com/conorfennell/qbank/internal/validate"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Password length bounds in bytes. bcrypt ignores everything past 72 bytes.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

// TokenType is carried in the "typ" claim so a refresh token cannot be used
// as an access token and the other way round.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Store is the account storage the service needs.
type Store interface {
	CreateAccount(ctx context.Context, a *domain.Account) error
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindAccountByID(ctx context.Context, id string) (*domain.Account, error)
}

// Config holds the token settings.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// Tokens is a freshly issued access/refresh pair.
type Tokens struct {
	Access         string
	Refresh        string
	AccessExpires  time.Time
	RefreshExpires time.Time
}

type claims struct {
	Type TokenType `json:"typ"`
	jwt.RegisteredClaims
}

type credentials struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// Service implements registration, login and token checks.
type Service struct {
	store    Store
	cfg      Config
	validate *validate.Validator
	now      func() time.Time
}

// NewService creates a Service. The secret must not be empty.
func NewService(store Store, cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth: empty token secret")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store:    store,
		cfg:      cfg,
		validate: validate.New(),
		now:      time.Now,
	}, nil
}

// Register creates an account with a hashed password.
func (s *Service) Register(ctx context.Context, email, password string) (*domain.Account, error) {
	email = domain.NormalizeEmail(email)
	if err := s.validate.Struct(credentials{Email: email}); err != nil {
		return nil, err
	}
	if n := len(password); n < MinPasswordLen || n > MaxPasswordLen {
		return nil, fmt.Errorf("%w: password must be between %d and %d bytes", domain.ErrInvalidInput, MinPasswordLen, MaxPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	a := &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Login checks the credentials and issues a token pair. Unknown emails and
// wrong passwords both report domain.ErrUnauthenticated.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.Account, Tokens, error) {
	a, err := s.store.FindAccountByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, Tokens{}, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthenticated)
	}
	if err != nil {
		return nil, Tokens{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, Tokens{}, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthenticated)
	}

	tokens, err := s.issue(a.ID)
	if err != nil {
		return nil, Tokens{}, err
	}
	return a, tokens, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	accountID, err := s.Authenticate(refreshToken, RefreshToken)
	if err != nil {
		return Tokens{}, err
	}
	// The account may have been removed since the token was issued.
	if _, err := s.Account(ctx, accountID); err != nil {
		return Tokens{}, err
	}
	return s.issue(accountID)
}

// Account returns the account behind an authenticated id.
func (s *Service) Account(ctx context.Context, id string) (*domain.Account, error) {
	a, err := s.store.FindAccountByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: account no longer exists", domain.ErrUnauthenticated)
	}
	return a, err
}

// Authenticate verifies a token of the given type and returns its subject.
func (s *Service) Authenticate(token string, typ TokenType) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: missing token", domain.ErrUnauthenticated)
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: invalid token", domain.ErrUnauthenticated)
	}
	if c.Type != typ || c.Subject == "" {
		return "", fmt.Errorf("%w: wrong token type", domain.ErrUnauthenticated)
	}
	return c.Subject, nil
}

func (s *Service) issue(accountID string) (Tokens, error) {
	now := s.now()
	t := Tokens{
		AccessExpires:  now.Add(s.cfg.AccessTTL),
		RefreshExpires: now.Add(s.cfg.RefreshTTL),
	}

	var err error
	if t.Access, err = s.sign(accountID, AccessToken, now, t.AccessExpires); err != nil {
		return Tokens{}, err
	}
	if t.Refresh, err = s.sign(accountID, RefreshToken, now, t.RefreshExpires); err != nil {
		return Tokens{}, err
	}
	return t, nil
}

func (s *Service) sign(accountID string, typ TokenType, now, expires time.Time) (string, error) {
	c := claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, nil
}
