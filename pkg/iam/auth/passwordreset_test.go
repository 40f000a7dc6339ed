package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/iam/auth"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

type fakeKV struct {
	values map[string]string
	events map[string][]time.Time
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: make(map[string]string), events: make(map[string][]time.Time)}
}

func (k *fakeKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	k.values[key] = value
	return nil
}

func (k *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := k.values[key]
	return v, ok, nil
}

func (k *fakeKV) Delete(_ context.Context, key string) error {
	delete(k.values, key)
	return nil
}

func (k *fakeKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok := k.values[key]
	return ok, nil
}

func (k *fakeKV) RecordEvent(_ context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now()
	cutoff := now.Add(-window)
	kept := k.events[key][:0]
	for _, ts := range k.events[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	k.events[key] = kept
	return int64(len(kept)), nil
}

func (k *fakeKV) CountEvents(_ context.Context, key string, window time.Duration) (int64, error) {
	cutoff := time.Now().Add(-window)
	var n int64
	for _, ts := range k.events[key] {
		if ts.After(cutoff) {
			n++
		}
	}
	return n, nil
}

func (k *fakeKV) ClearEvents(_ context.Context, key string) error {
	delete(k.events, key)
	return nil
}

type fakeResetRepo struct {
	tokens map[string]auth.PasswordResetToken
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: map[string]auth.PasswordResetToken{}}
}

func (r *fakeResetRepo) SaveResetToken(_ context.Context, token auth.PasswordResetToken) error {
	r.tokens[token.Token] = token
	return nil
}

func (r *fakeResetRepo) FindResetToken(_ context.Context, tokenValue string) (*auth.PasswordResetToken, error) {
	t, ok := r.tokens[tokenValue]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *fakeResetRepo) ConsumeResetToken(_ context.Context, tokenValue string) error {
	t, ok := r.tokens[tokenValue]
	if !ok {
		return nil
	}
	t.IsUsed = true
	r.tokens[tokenValue] = t
	return nil
}

func (r *fakeResetRepo) CleanExpiredResetTokens(context.Context) error { return nil }

type fakePasswordUpdater struct {
	byEmail map[string]*auth.Credentials
	byID    map[kernel.UserID]*auth.Credentials
}

func newFakePasswordUpdater() *fakePasswordUpdater {
	return &fakePasswordUpdater{byEmail: map[string]*auth.Credentials{}, byID: map[kernel.UserID]*auth.Credentials{}}
}

func (u *fakePasswordUpdater) add(c *auth.Credentials) {
	u.byEmail[c.Email] = c
	u.byID[c.UserID] = c
}

func (u *fakePasswordUpdater) FindByEmail(_ context.Context, _ kernel.TenantID, email string) (*auth.Credentials, error) {
	return u.byEmail[email], nil
}

func (u *fakePasswordUpdater) FindByID(_ context.Context, userID kernel.UserID, _ kernel.TenantID) (*auth.Credentials, error) {
	return u.byID[userID], nil
}

func (u *fakePasswordUpdater) UpdatePasswordHash(_ context.Context, userID kernel.UserID, _ kernel.TenantID, hash string) error {
	c, ok := u.byID[userID]
	if !ok {
		return auth.ErrInvalidCredentials()
	}
	c.PasswordHash = hash
	return nil
}

func TestPasswordResetRequestThenConfirmUpdatesHash(t *testing.T) {
	ctx := context.Background()
	tenantID := kernel.NewTenantID("t1")
	userID := kernel.NewUserID("u1")

	repo := newFakeResetRepo()
	users := newFakePasswordUpdater()
	users.add(&auth.Credentials{UserID: userID, TenantID: tenantID, Email: "a@example.com", Active: true, PasswordHash: "old"})

	store := newFakeKV()
	svc := auth.NewPasswordResetService(repo, users, auth.NewBcryptHasher(4), nil, store, time.Hour)

	if err := svc.Request(ctx, tenantID, "a@example.com"); err != nil {
		t.Fatalf("unexpected error on request: %v", err)
	}
	if len(repo.tokens) != 1 {
		t.Fatalf("expected one token to be saved, got %d", len(repo.tokens))
	}

	var token string
	for k := range repo.tokens {
		token = k
	}

	if err := svc.Confirm(ctx, tenantID, token, "newpassword123"); err != nil {
		t.Fatalf("unexpected error on confirm: %v", err)
	}

	if users.byID[userID].PasswordHash == "old" {
		t.Fatal("expected password hash to change")
	}
	if !repo.tokens[token].IsUsed {
		t.Fatal("expected reset token to be consumed")
	}
}

func TestPasswordResetConfirmRejectsUsedToken(t *testing.T) {
	ctx := context.Background()
	tenantID := kernel.NewTenantID("t1")
	userID := kernel.NewUserID("u1")

	repo := newFakeResetRepo()
	users := newFakePasswordUpdater()
	users.add(&auth.Credentials{UserID: userID, TenantID: tenantID, Email: "a@example.com", Active: true})

	store := newFakeKV()
	svc := auth.NewPasswordResetService(repo, users, auth.NewBcryptHasher(4), nil, store, time.Hour)

	_ = svc.Request(ctx, tenantID, "a@example.com")
	var token string
	for k := range repo.tokens {
		token = k
	}
	_ = svc.Confirm(ctx, tenantID, token, "firstreset123")

	if err := svc.Confirm(ctx, tenantID, token, "secondreset123"); err == nil {
		t.Fatal("expected error reusing a consumed reset token")
	}
}

func TestPasswordResetRequestDoesNotErrorForUnknownEmail(t *testing.T) {
	ctx := context.Background()
	tenantID := kernel.NewTenantID("t1")

	repo := newFakeResetRepo()
	users := newFakePasswordUpdater()
	store := newFakeKV()
	svc := auth.NewPasswordResetService(repo, users, auth.NewBcryptHasher(4), nil, store, time.Hour)

	if err := svc.Request(ctx, tenantID, "nobody@example.com"); err != nil {
		t.Fatalf("expected no error for unknown email, got %v", err)
	}
	if len(repo.tokens) != 0 {
		t.Fatal("expected no token to be issued for an unknown email")
	}
}
