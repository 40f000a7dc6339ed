package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/iam/auth"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

type fakeCredentialLookup struct {
	byEmail map[string]*auth.Credentials
}

func newFakeCredentialLookup() *fakeCredentialLookup {
	return &fakeCredentialLookup{byEmail: map[string]*auth.Credentials{}}
}

func (l *fakeCredentialLookup) add(c auth.Credentials) {
	l.byEmail[c.Email] = &c
}

func (l *fakeCredentialLookup) FindByEmail(_ context.Context, _ kernel.TenantID, email string) (*auth.Credentials, error) {
	return l.byEmail[email], nil
}

type fakeResolver struct{}

func (fakeResolver) ResolvePermissions(context.Context, kernel.UserID, kernel.TenantID) ([]string, error) {
	return []string{"channels:read"}, nil
}

func newAuthenticator(t *testing.T, lookup *fakeCredentialLookup) *auth.Authenticator {
	t.Helper()
	hasher := auth.NewBcryptHasher(4)
	tokens := auth.NewJWTService("test-secret", time.Hour, 24*time.Hour, "manifesto-test", nil)
	store := newFakeKV()
	return auth.NewAuthenticator(lookup, fakeResolver{}, hasher, tokens, nil, store, 5, 15*time.Minute, 15*time.Minute)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.NewBcryptHasher(4).Hash(password)
	if err != nil {
		t.Fatalf("unexpected error hashing password: %v", err)
	}
	return hash
}

func errCode(err error) string {
	if e, ok := err.(*errx.Error); ok {
		return e.Code
	}
	return ""
}

func TestLoginRejectsLockedAccountRegardlessOfPassword(t *testing.T) {
	lookup := newFakeCredentialLookup()
	tenantID := kernel.NewTenantID("t1")
	lookup.add(auth.Credentials{
		UserID:        kernel.NewUserID("u1"),
		TenantID:      tenantID,
		Email:         "locked@example.com",
		PasswordHash:  mustHash(t, "correct-password"),
		Active:        false,
		Locked:        true,
		EmailVerified: true,
		TenantActive:  true,
	})

	a := newAuthenticator(t, lookup)
	_, err := a.Login(context.Background(), tenantID, "locked@example.com", "correct-password", false, "", "")
	if err == nil {
		t.Fatal("expected an error logging into a locked account")
	}
	if code := errCode(err); code != auth.CodeAccountLocked.Code {
		t.Fatalf("expected ACCOUNT_LOCKED, got %q", code)
	}
}

func TestLoginRejectsUnverifiedEmailDistinctlyFromInactive(t *testing.T) {
	lookup := newFakeCredentialLookup()
	tenantID := kernel.NewTenantID("t1")
	lookup.add(auth.Credentials{
		UserID:        kernel.NewUserID("u2"),
		TenantID:      tenantID,
		Email:         "unverified@example.com",
		PasswordHash:  mustHash(t, "correct-password"),
		Active:        true,
		Locked:        false,
		EmailVerified: false,
		TenantActive:  true,
	})

	a := newAuthenticator(t, lookup)
	_, err := a.Login(context.Background(), tenantID, "unverified@example.com", "correct-password", false, "", "")
	if err == nil {
		t.Fatal("expected an error logging in before verifying email")
	}
	if code := errCode(err); code != auth.CodeEmailNotVerified.Code {
		t.Fatalf("expected EMAIL_NOT_VERIFIED, got %q", code)
	}
}

func TestLoginRejectsInactiveAccountAfterPassingLockAndVerification(t *testing.T) {
	lookup := newFakeCredentialLookup()
	tenantID := kernel.NewTenantID("t1")
	lookup.add(auth.Credentials{
		UserID:        kernel.NewUserID("u3"),
		TenantID:      tenantID,
		Email:         "inactive@example.com",
		PasswordHash:  mustHash(t, "correct-password"),
		Active:        false,
		Locked:        false,
		EmailVerified: true,
		TenantActive:  true,
	})

	a := newAuthenticator(t, lookup)
	_, err := a.Login(context.Background(), tenantID, "inactive@example.com", "correct-password", false, "", "")
	if err == nil {
		t.Fatal("expected an error logging into an inactive account")
	}
	if code := errCode(err); code != auth.CodeAccountInactive.Code {
		t.Fatalf("expected ACCOUNT_INACTIVE, got %q", code)
	}
}

func TestLoginSucceedsForActiveVerifiedUnlockedAccount(t *testing.T) {
	lookup := newFakeCredentialLookup()
	tenantID := kernel.NewTenantID("t1")
	lookup.add(auth.Credentials{
		UserID:        kernel.NewUserID("u4"),
		TenantID:      tenantID,
		Email:         "good@example.com",
		PasswordHash:  mustHash(t, "correct-password"),
		Active:        true,
		Locked:        false,
		EmailVerified: true,
		TenantActive:  true,
	})

	a := newAuthenticator(t, lookup)
	result, err := a.Login(context.Background(), tenantID, "good@example.com", "correct-password", false, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
}

type fakeSessionRegistrar struct {
	created int
	deleted []string
}

func (f *fakeSessionRegistrar) Create(_ context.Context, _ kernel.UserID, _ kernel.TenantID, _ bool, _, _ string) (string, error) {
	f.created++
	return "sess-1", nil
}

func (f *fakeSessionRegistrar) Delete(_ context.Context, sessionID string) error {
	f.deleted = append(f.deleted, sessionID)
	return nil
}

func TestLoginCreatesSessionWhenRegistrarWired(t *testing.T) {
	lookup := newFakeCredentialLookup()
	tenantID := kernel.NewTenantID("t1")
	lookup.add(auth.Credentials{
		UserID:        kernel.NewUserID("u6"),
		TenantID:      tenantID,
		Email:         "sessioned@example.com",
		PasswordHash:  mustHash(t, "correct-password"),
		Active:        true,
		Locked:        false,
		EmailVerified: true,
		TenantActive:  true,
	})

	hasher := auth.NewBcryptHasher(4)
	tokens := auth.NewJWTService("test-secret", time.Hour, 24*time.Hour, "manifesto-test", nil)
	store := newFakeKV()
	sessions := &fakeSessionRegistrar{}
	a := auth.NewAuthenticator(lookup, fakeResolver{}, hasher, tokens, sessions, store, 5, 15*time.Minute, 15*time.Minute)

	result, err := a.Login(context.Background(), tenantID, "sessioned@example.com", "correct-password", true, "203.0.113.9", "test-agent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessions.created != 1 {
		t.Fatalf("expected exactly one session to be created, got %d", sessions.created)
	}
	if result.SessionID != "sess-1" {
		t.Fatalf("expected the registrar's session id to be surfaced on the result, got %q", result.SessionID)
	}
}

func TestLoginLocksAccountAfterThresholdFailures(t *testing.T) {
	lookup := newFakeCredentialLookup()
	tenantID := kernel.NewTenantID("t1")
	lookup.add(auth.Credentials{
		UserID:        kernel.NewUserID("u5"),
		TenantID:      tenantID,
		Email:         "attacked@example.com",
		PasswordHash:  mustHash(t, "correct-password"),
		Active:        true,
		Locked:        false,
		EmailVerified: true,
		TenantActive:  true,
	})

	a := newAuthenticator(t, lookup)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := a.Login(ctx, tenantID, "attacked@example.com", "wrong-password", false, "", ""); err == nil {
			t.Fatalf("attempt %d: expected an error for wrong password", i+1)
		}
	}

	_, err := a.Login(ctx, tenantID, "attacked@example.com", "correct-password", false, "", "")
	if err == nil {
		t.Fatal("expected the account to be locked after the failure threshold")
	}
	if code := errCode(err); code != auth.CodeAccountLocked.Code {
		t.Fatalf("expected ACCOUNT_LOCKED after threshold failures, got %q", code)
	}
}
