package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/ports"
	"github.com/99minutos/taskboard/internal/core/sanitize"
)

// dummyHash is compared against when the email is unknown so both failure
// paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// AuthService implements login and first-admin seeding.
type AuthService struct {
	repo   ports.UserRepository
	tokens ports.TokenIssuer
	log    zerolog.Logger
	now    func() time.Time
}

func NewAuthService(repo ports.UserRepository, tokens ports.TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, log: log, now: time.Now}
}

// Login verifies the credentials and returns a signed token with the user
// stripped of its credentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	normalized, err := sanitize.Email(email)
	if err != nil || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, normalized)
	if errors.Is(err, domain.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("login: sign token: %w", err)
	}

	safe := user.WithoutCredentials()
	return token, &safe, nil
}

// EnsureAdmin creates the first admin when no user exists yet. It is a no-op
// on a populated store.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if n > 0 {
		return nil
	}

	normalized, err := sanitize.Email(email)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if _, err := sanitize.Password(password); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	now := s.now().UTC()
	admin := &domain.User{
		ID:           newID(),
		Name:         sanitize.String(name, maxNameLength),
		Email:        normalized,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if admin.Name == "" {
		admin.Name = "Administrator"
	}
	if err := s.repo.Insert(ctx, admin); err != nil && !errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("seed admin: %w", err)
	}

	s.log.Info().Str("email", normalized).Msg("seeded initial admin")
	return nil
}
