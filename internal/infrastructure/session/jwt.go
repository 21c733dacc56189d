// Package session issues bearer tokens and resolves them back to the
// current caller. A token only carries the user id that matters; the role is
// read from the store on every request so a demotion takes effect at once.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/taskboard/internal/core/domain"
)

const defaultTTL = 24 * time.Hour

// Claims is the token payload. Role is informational for clients and is
// never used for authorization.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue implements ports.TokenIssuer.
func (t *Tokens) Issue(u *domain.User) (string, error) {
	now := t.now()
	claims := Claims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Subject verifies raw and returns its subject.
func (t *Tokens) Subject(raw string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("parse token: missing subject")
	}
	return claims.Subject, nil
}

// UserFinder loads the user behind a token.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Resolver implements ports.IdentityResolver.
type Resolver struct {
	tokens *Tokens
	users  UserFinder
}

func NewResolver(tokens *Tokens, users UserFinder) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve returns domain.ErrUnauthenticated for an empty, invalid or expired
// token and for a token whose user no longer exists. Store failures are
// returned as they are.
func (r *Resolver) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Anonymous(), domain.ErrUnauthenticated
	}
	sub, err := r.tokens.Subject(token)
	if err != nil {
		return domain.Anonymous(), fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	u, err := r.users.FindByID(ctx, sub)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Anonymous(), domain.ErrUnauthenticated
	}
	if err != nil {
		return domain.Anonymous(), fmt.Errorf("resolve session: %w", err)
	}

	role, ok := domain.ParseRole(string(u.Role))
	if !ok {
		return domain.Anonymous(), domain.ErrUnauthenticated
	}
	return domain.Identity{ID: u.ID, Role: role}, nil
}
