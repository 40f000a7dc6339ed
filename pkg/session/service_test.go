package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/session"
)

type fakeKV struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (k *fakeKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	k.values[key] = value
	k.ttls[key] = ttl
	return nil
}

func (k *fakeKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := k.values[key]
	return v, ok, nil
}

func (k *fakeKV) Delete(ctx context.Context, key string) error {
	delete(k.values, key)
	delete(k.ttls, key)
	return nil
}

func (k *fakeKV) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := k.values[key]
	return ok, nil
}

func (k *fakeKV) RecordEvent(ctx context.Context, key string, window time.Duration) (int64, error) {
	return 1, nil
}

func (k *fakeKV) CountEvents(ctx context.Context, key string, window time.Duration) (int64, error) {
	return 0, nil
}

func (k *fakeKV) ClearEvents(ctx context.Context, key string) error {
	return nil
}

func TestCreateThenGetRoundTrips(t *testing.T) {
	kvStore := newFakeKV()
	svc := session.NewService(kvStore, time.Hour, 30*24*time.Hour)
	ctx := context.Background()

	userID := kernel.NewUserID("u1")
	tenantID := kernel.NewTenantID("t1")

	created, err := svc.Create(ctx, userID, tenantID, false, "203.0.113.5", "test-agent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a non-empty session id")
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != userID || got.TenantID != tenantID {
		t.Fatalf("expected round-tripped session to match, got %+v", got)
	}
}

func TestCreateUsesRememberTTLWhenSet(t *testing.T) {
	kvStore := newFakeKV()
	svc := session.NewService(kvStore, time.Hour, 30*24*time.Hour)
	ctx := context.Background()

	short, err := svc.Create(ctx, kernel.NewUserID("u1"), kernel.NewTenantID("t1"), false, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	long, err := svc.Create(ctx, kernel.NewUserID("u2"), kernel.NewTenantID("t1"), true, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !long.ExpiresAt.After(short.ExpiresAt) {
		t.Fatal("expected remember-flagged session to expire later than the default")
	}
}

func TestGetReturnsNotFoundForUnknownID(t *testing.T) {
	kvStore := newFakeKV()
	svc := session.NewService(kvStore, time.Hour, 30*24*time.Hour)

	if _, err := svc.Get(context.Background(), "does-not-exist"); err == nil {
		t.Fatal("expected an error looking up an unknown session id")
	}
}

func TestDeleteRemovesSession(t *testing.T) {
	kvStore := newFakeKV()
	svc := session.NewService(kvStore, time.Hour, 30*24*time.Hour)
	ctx := context.Background()

	created, err := svc.Create(ctx, kernel.NewUserID("u1"), kernel.NewTenantID("t1"), false, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); err == nil {
		t.Fatal("expected session to be gone after delete")
	}
}

func TestDeleteIsSafeOnUnknownID(t *testing.T) {
	kvStore := newFakeKV()
	svc := session.NewService(kvStore, time.Hour, 30*24*time.Hour)

	if err := svc.Delete(context.Background(), "never-existed"); err != nil {
		t.Fatalf("expected delete of an unknown id to be a no-op, got %v", err)
	}
}
