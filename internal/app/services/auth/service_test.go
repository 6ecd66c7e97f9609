package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	domainuser "github.com/KhadijaXD/lostly/internal/domain/user"
	"github.com/KhadijaXD/lostly/internal/infra/security"
	"github.com/KhadijaXD/lostly/internal/infra/storage/memory"
)

func newService() *Service {
	return &Service{
		Users:     memory.NewUserRepository(),
		Passwords: security.BcryptHasher{Cost: 4},
		Tokens:    security.JWTIssuer{Secret: []byte("secret"), TTL: time.Hour},
	}
}

func validRegistration() RegisterParams {
	return RegisterParams{
		Email:         " Alice@Campus.edu ",
		Name:          "Alice",
		Password:      "password123",
		Department:    "Physics",
		ContactNumber: "555-0100",
	}
}

func TestRegisterLoginResolve(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	reg, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.User.Email != "alice@campus.edu" {
		t.Errorf("expected normalized email, got %q", reg.User.Email)
	}
	if reg.User.Role != domainuser.RoleStudent {
		t.Errorf("expected student role, got %q", reg.User.Role)
	}

	login, err := svc.Login(ctx, LoginParams{Email: "alice@campus.edu", Password: "password123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	user, err := svc.ResolveToken(ctx, login.Token)
	if err != nil {
		t.Fatalf("ResolveToken: %v", err)
	}
	if user.ID != reg.User.ID {
		t.Errorf("expected %s, got %s", reg.User.ID, user.ID)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, validRegistration()); !errors.Is(err, domainuser.ErrEmailAlreadyUsed) {
		t.Fatalf("expected ErrEmailAlreadyUsed, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Login(ctx, LoginParams{Email: "alice@campus.edu", Password: "nope-nope"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.ResetPassword(ctx, "alice@campus.edu", "short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := svc.ResetPassword(ctx, "alice@campus.edu", "brand-new-pass"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := svc.Login(ctx, LoginParams{Email: "alice@campus.edu", Password: "brand-new-pass"}); err != nil {
		t.Fatalf("Login after reset: %v", err)
	}
}

func TestAssignRole(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	reg, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.AssignRole(ctx, string(reg.User.ID), "janitor"); !errors.Is(err, domainuser.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	user, err := svc.AssignRole(ctx, string(reg.User.ID), " Admin ")
	if err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if !user.IsAdmin() {
		t.Fatalf("expected admin, got %s", user.Role)
	}
	users, err := svc.ListUsers(ctx)
	if err != nil || len(users) != 1 {
		t.Fatalf("expected one user, got %d, %v", len(users), err)
	}
}
