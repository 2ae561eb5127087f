package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/askbase/askbase/internal/config"
	"github.com/askbase/askbase/internal/service/types"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(&config.AdminConfig{
		Password:  "secret-password",
		JWTSecret: "test-jwt-secret",
		TokenTTL:  60,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestNewServiceRequiresPassword(t *testing.T) {
	if _, err := NewService(&config.AdminConfig{}); err == nil {
		t.Fatal("expected error when admin password is missing")
	}
}

func TestVerifyPassword(t *testing.T) {
	svc := newTestService(t)

	if err := svc.VerifyPassword("secret-password"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := svc.VerifyPassword("wrong"); !errors.Is(err, types.ErrAuth) {
		t.Errorf("expected ErrAuth for wrong password, got %v", err)
	}
	if err := svc.VerifyPassword(""); !errors.Is(err, types.ErrAuth) {
		t.Errorf("expected ErrAuth for empty password, got %v", err)
	}
}

func TestLoginAndValidate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Login(ctx, "secret-password")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected non-empty token")
	}

	if err := svc.ValidateToken(ctx, resp.Token); err != nil {
		t.Errorf("freshly issued token rejected: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Login(context.Background(), "nope"); !errors.Is(err, types.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, token := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		if err := svc.ValidateToken(ctx, token); !errors.Is(err, types.ErrAuth) {
			t.Errorf("token %q: expected ErrAuth, got %v", token, err)
		}
	}
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	ctx := context.Background()
	a := newTestService(t)

	b, err := NewService(&config.AdminConfig{Password: "secret-password", JWTSecret: "other-secret"})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	resp, err := b.Login(ctx, "secret-password")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := a.ValidateToken(ctx, resp.Token); !errors.Is(err, types.ErrAuth) {
		t.Errorf("token signed with another secret must be rejected, got %v", err)
	}
}
