package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/taskboard/internal/core/domain"
)

type stubIssuer struct{ issued []string }

func (s *stubIssuer) Issue(u *domain.User) (string, error) {
	s.issued = append(s.issued, u.ID)
	return "token-" + u.ID, nil
}

func newAuthFixture(t *testing.T) (*AuthService, stubUsers, *stubIssuer) {
	t.Helper()
	users := stubUsers{newMemStore[domain.User]()}
	hash, err := bcrypt.GenerateFromPassword([]byte("pass123"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	users.put("u1", &domain.User{ID: "u1", Email: "alice@example.com", PasswordHash: string(hash), Role: domain.RoleManager})
	issuer := &stubIssuer{}
	return NewAuthService(users, issuer, zerolog.Nop()), users, issuer
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, _, issuer := newAuthFixture(t)

	token, user, err := svc.Login(context.Background(), " Alice@Example.com", "pass123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if token != "token-u1" || len(issuer.issued) != 1 {
		t.Fatalf("unexpected token %q", token)
	}
	if user.PasswordHash != "" {
		t.Fatal("login must not return the hash")
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, _, issuer := newAuthFixture(t)

	if _, _, err := svc.Login(context.Background(), "alice@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "bob@example.com", "pass123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "not-an-email", "pass123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("malformed email: expected ErrInvalidCredentials, got %v", err)
	}
	if len(issuer.issued) != 0 {
		t.Fatal("no token may be issued on failure")
	}
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	users := stubUsers{newMemStore[domain.User]()}
	svc := NewAuthService(users, &stubIssuer{}, zerolog.Nop())

	if err := svc.EnsureAdmin(context.Background(), "Root", "Root@Example.com", "changeme"); err != nil {
		t.Fatalf("EnsureAdmin returned error: %v", err)
	}
	if len(users.items) != 1 {
		t.Fatalf("expected one seeded user, got %d", len(users.items))
	}
	for _, u := range users.items {
		if u.Role != domain.RoleAdmin || u.Email != "root@example.com" {
			t.Fatalf("unexpected seed: %+v", u)
		}
	}

	if err := svc.EnsureAdmin(context.Background(), "Other", "other@example.com", "changeme"); err != nil {
		t.Fatalf("second EnsureAdmin returned error: %v", err)
	}
	if len(users.items) != 1 {
		t.Fatal("seeding must be a no-op once users exist")
	}
}
