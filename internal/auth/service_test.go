package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pyrechat/pyre-server/internal/store"
	"github.com/pyrechat/pyre-server/internal/store/jsonfile"
)

const testSecret = "test-secret-change-me"

func newTestAuthService(t *testing.T) (*Service, store.UserStore) {
	t.Helper()

	st, err := jsonfile.New(filepath.Join(t.TempDir(), "users.json"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc := NewService(st, &JWTConfig{
		Secret: []byte(testSecret),
		Issuer: "test",
		TTL:    30 * 24 * time.Hour,
	}, WithPasswordCost(bcrypt.MinCost))
	return svc, st
}

func mustRegister(t *testing.T, svc *Service, username, password string) {
	t.Helper()
	if _, err := svc.Register(context.Background(), Registration{Username: username, Password: password}); err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
}

func TestRegister_RejectsInvalidInput(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	cases := []Registration{
		{Username: "ab", Password: "password123"},
		{Username: " ab ", Password: "password123"},
		{Username: "abc", Password: "12345"},
		{Username: "has space", Password: "password123"},
		{Username: "alice", Password: "password123", Email: "not-an-email"},
	}
	for _, reg := range cases {
		if _, err := svc.Register(ctx, reg); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", reg, err)
		}
	}
}

func TestRegister_DuplicateUsernameKeepsFirstRecord(t *testing.T) {
	svc, st := newTestAuthService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, Registration{
		Username:    " alice ",
		Password:    "password123",
		Email:       "alice@example.com",
		DisplayName: "Alice",
	})
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}
	if first.Username != "alice" {
		t.Fatalf("expected trimmed username, got %q", first.Username)
	}

	_, err = svc.Register(ctx, Registration{Username: "alice", Password: "another-pass", Email: "evil@example.com"})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	stored, err := st.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.Email != "alice@example.com" || stored.HashedPassword != first.HashedPassword {
		t.Fatalf("stored record changed: %+v", stored)
	}
}

func TestIssueToken(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	mustRegister(t, svc, "alice", "password123")

	if _, err := svc.IssueToken(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.IssueToken(ctx, "nobody", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	tok, err := svc.IssueToken(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if tok.TokenType != "bearer" || tok.AccessToken == "" {
		t.Fatalf("unexpected token: %+v", tok)
	}
	if d := time.Until(tok.ExpiresAt); d < 29*24*time.Hour {
		t.Fatalf("expected ~30 day expiry, got %v", d)
	}

	username, err := svc.Verify(ctx, tok.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if username != "alice" {
		t.Fatalf("expected alice, got %q", username)
	}
}

func TestIssueToken_DisabledUser(t *testing.T) {
	svc, st := newTestAuthService(t)
	ctx := context.Background()

	hashed, err := svc.hasher.Hash("password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := st.CreateUser(ctx, store.User{Username: "carol", HashedPassword: hashed, Disabled: true}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := svc.IssueToken(ctx, "carol", "password123"); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}
}

func TestVerify_FailureKinds(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	mustRegister(t, svc, "alice", "password123")

	sign := func(secret string, claims jwt.MapClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		token  string
		want   error
		reason string
	}{
		{"missing", "", ErrMissingToken, "missing_token"},
		{"garbage", "not-a-jwt", ErrMalformedToken, "malformed_token"},
		{"wrong secret", sign("other", jwt.MapClaims{"sub": "alice", "iss": "test", "exp": future}), ErrMalformedToken, "malformed_token"},
		{"wrong issuer", sign(testSecret, jwt.MapClaims{"sub": "alice", "iss": "elsewhere", "exp": future}), ErrMalformedToken, "malformed_token"},
		{"no expiry", sign(testSecret, jwt.MapClaims{"sub": "alice", "iss": "test"}), ErrMalformedToken, "malformed_token"},
		{"expired", sign(testSecret, jwt.MapClaims{"sub": "alice", "iss": "test", "exp": time.Now().Add(-time.Minute).Unix()}), ErrExpiredToken, "expired_token"},
		{"empty subject", sign(testSecret, jwt.MapClaims{"iss": "test", "exp": future}), ErrUnknownSubject, "unknown_subject"},
		{"unknown user", sign(testSecret, jwt.MapClaims{"sub": "mallory", "iss": "test", "exp": future}), ErrUnknownSubject, "unknown_subject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(ctx, tt.token)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if got := Reason(err); got != tt.reason {
				t.Fatalf("expected reason %q, got %q", tt.reason, got)
			}
		})
	}
}

func TestProfile(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, Registration{Username: "alice", Password: "password123", DisplayName: "Alice A."}); err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Profile(ctx, "alice")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if user.DisplayName != "Alice A." || user.Disabled {
		t.Fatalf("unexpected profile: %+v", user)
	}

	if _, err := svc.Profile(ctx, "ghost"); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
