package main

import (
	"errors"
	"testing"

	domainuser "github.com/KhadijaXD/lostly/internal/domain/user"
)

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"create-admin", "create-user", "reset-password"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected %s command, got %v (%v)", name, cmd, err)
		}
	}
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	cmd := newCreateUserCmd("create-user", "", "")
	cmd.SetArgs([]string{"--email", "a@campus.edu", "--name", "A", "--password", "password123", "--role", "wizard"})
	if err := cmd.Execute(); !errors.Is(err, domainuser.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestCreateUserRequiresStore(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("APP_ENV", "test")
	cmd := newCreateUserCmd("create-admin", "", domainuser.RoleAdmin)
	cmd.SetArgs([]string{"--email", "a@campus.edu", "--name", "A", "--password", "password123"})
	if err := cmd.Execute(); err == nil || err.Error() != "MONGO_URI is required" {
		t.Fatalf("expected missing store error, got %v", err)
	}
}
