package mfa_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/mfa"
)

// --- in-memory fakes ---

type fakeFactorRepo struct {
	factors map[string]mfa.Factor // key: userID|method
}

func newFakeFactorRepo() *fakeFactorRepo {
	return &fakeFactorRepo{factors: make(map[string]mfa.Factor)}
}

func factorKey(userID kernel.UserID, method mfa.Method) string {
	return userID.String() + "|" + string(method)
}

func (r *fakeFactorRepo) Save(ctx context.Context, factor mfa.Factor) error {
	r.factors[factorKey(factor.UserID, factor.Method)] = factor
	return nil
}

func (r *fakeFactorRepo) FindByUserAndMethod(ctx context.Context, userID kernel.UserID, method mfa.Method) (*mfa.Factor, error) {
	f, ok := r.factors[factorKey(userID, method)]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (r *fakeFactorRepo) ListForUser(ctx context.Context, userID kernel.UserID) ([]*mfa.Factor, error) {
	var out []*mfa.Factor
	for k, f := range r.factors {
		if k[:len(userID.String())] == userID.String() {
			fc := f
			out = append(out, &fc)
		}
	}
	return out, nil
}

func (r *fakeFactorRepo) Delete(ctx context.Context, userID kernel.UserID, method mfa.Method) error {
	delete(r.factors, factorKey(userID, method))
	return nil
}

type fakeBackupRepo struct {
	codes map[string][]mfa.BackupCode
}

func newFakeBackupRepo() *fakeBackupRepo {
	return &fakeBackupRepo{codes: make(map[string][]mfa.BackupCode)}
}

func (r *fakeBackupRepo) ReplaceAll(ctx context.Context, userID kernel.UserID, codes []mfa.BackupCode) error {
	r.codes[userID.String()] = codes
	return nil
}

func (r *fakeBackupRepo) FindUnused(ctx context.Context, userID kernel.UserID) ([]mfa.BackupCode, error) {
	var out []mfa.BackupCode
	for _, c := range r.codes[userID.String()] {
		if c.UsedAt == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeBackupRepo) MarkUsed(ctx context.Context, codeID string) error {
	for userID, codes := range r.codes {
		for i, c := range codes {
			if c.ID == codeID {
				now := time.Now()
				r.codes[userID][i].UsedAt = &now
				return nil
			}
		}
	}
	return nil
}

func (r *fakeBackupRepo) CountUnused(ctx context.Context, userID kernel.UserID) (int, error) {
	unused, _ := r.FindUnused(ctx, userID)
	return len(unused), nil
}

type fakeKV struct {
	values map[string]string
	events map[string][]time.Time
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: make(map[string]string), events: make(map[string][]time.Time)}
}

func (k *fakeKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	k.values[key] = value
	return nil
}

func (k *fakeKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := k.values[key]
	return v, ok, nil
}

func (k *fakeKV) Delete(ctx context.Context, key string) error {
	delete(k.values, key)
	return nil
}

func (k *fakeKV) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := k.values[key]
	return ok, nil
}

func (k *fakeKV) RecordEvent(ctx context.Context, key string, window time.Duration) (int64, error) {
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

func (k *fakeKV) CountEvents(ctx context.Context, key string, window time.Duration) (int64, error) {
	cutoff := time.Now().Add(-window)
	var n int64
	for _, ts := range k.events[key] {
		if ts.After(cutoff) {
			n++
		}
	}
	return n, nil
}

func (k *fakeKV) ClearEvents(ctx context.Context, key string) error {
	delete(k.events, key)
	return nil
}

type fakeNotifier struct {
	sent []string
}

func (n *fakeNotifier) Send(ctx context.Context, method mfa.Method, contact, code string) error {
	n.sent = append(n.sent, code)
	return nil
}

// --- tests ---

func TestTOTPEnrollmentAndVerification(t *testing.T) {
	engine := mfa.NewTOTPEngine("TestIssuer")
	factors := newFakeFactorRepo()
	svc := mfa.NewService(factors, newFakeBackupRepo(), &fakeNotifier{}, engine, newFakeKV(), 5*time.Minute, 10)

	userID := kernel.NewUserID("user-1")
	tenantID := kernel.NewTenantID("tenant-1")

	secret, qr, err := svc.EnrollTOTP(context.Background(), userID, tenantID, "user@example.com")
	if err != nil {
		t.Fatalf("EnrollTOTP failed: %v", err)
	}
	if secret == "" || len(qr) == 0 {
		t.Fatal("expected non-empty secret and QR code")
	}

	code, err := engine.GenerateCode(secret)
	if err != nil {
		t.Fatalf("GenerateCode failed: %v", err)
	}

	if err := svc.VerifyEnrollment(context.Background(), userID, code); err != nil {
		t.Fatalf("VerifyEnrollment failed: %v", err)
	}

	code2, _ := engine.GenerateCode(secret)
	if err := svc.Verify(context.Background(), userID, mfa.MethodTOTP, code2); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
}

func TestVerifyTOTPRejectsWrongCode(t *testing.T) {
	engine := mfa.NewTOTPEngine("TestIssuer")
	factors := newFakeFactorRepo()
	svc := mfa.NewService(factors, newFakeBackupRepo(), &fakeNotifier{}, engine, newFakeKV(), 5*time.Minute, 10)

	userID := kernel.NewUserID("user-2")
	secret, _, err := svc.EnrollTOTP(context.Background(), userID, kernel.NewTenantID("tenant-1"), "user2@example.com")
	if err != nil {
		t.Fatalf("EnrollTOTP failed: %v", err)
	}
	_ = secret
	svc.VerifyEnrollment(context.Background(), userID, mustCode(t, engine, secret))

	if err := svc.Verify(context.Background(), userID, mfa.MethodTOTP, "000000"); err == nil {
		t.Fatal("expected error for wrong code")
	}
}

func mustCode(t *testing.T, engine *mfa.TOTPEngine, secret string) string {
	t.Helper()
	code, err := engine.GenerateCode(secret)
	if err != nil {
		t.Fatalf("GenerateCode failed: %v", err)
	}
	return code
}

func TestBackupCodesIssueAndConsume(t *testing.T) {
	backupRepo := newFakeBackupRepo()
	svc := mfa.NewService(newFakeFactorRepo(), backupRepo, &fakeNotifier{}, mfa.NewTOTPEngine(""), newFakeKV(), 5*time.Minute, 3)

	userID := kernel.NewUserID("user-3")
	codes, err := svc.IssueBackupCodes(context.Background(), userID)
	if err != nil {
		t.Fatalf("IssueBackupCodes failed: %v", err)
	}
	if len(codes) != 3 {
		t.Fatalf("expected 3 backup codes, got %d", len(codes))
	}

	if err := svc.Verify(context.Background(), userID, mfa.MethodBackupCode, codes[0]); err != nil {
		t.Fatalf("Verify backup code failed: %v", err)
	}

	// A used code must not verify again.
	if err := svc.Verify(context.Background(), userID, mfa.MethodBackupCode, codes[0]); err == nil {
		t.Fatal("expected error reusing a consumed backup code")
	}
}

func TestGenerateBackupCodesFormat(t *testing.T) {
	codes, err := mfa.GenerateBackupCodes(5)
	if err != nil {
		t.Fatalf("GenerateBackupCodes failed: %v", err)
	}
	if len(codes) != 5 {
		t.Fatalf("expected 5 codes, got %d", len(codes))
	}
	for _, c := range codes {
		if len(c) != 9 || c[4] != '-' {
			t.Fatalf("expected XXXX-XXXX format, got %q", c)
		}
	}
}

func TestEmailChallengeSendAndVerify(t *testing.T) {
	factors := newFakeFactorRepo()
	kvStore := newFakeKV()
	notifier := &fakeNotifier{}
	svc := mfa.NewService(factors, newFakeBackupRepo(), notifier, mfa.NewTOTPEngine(""), kvStore, 5*time.Minute, 10)

	userID := kernel.NewUserID("user-4")
	tenantID := kernel.NewTenantID("tenant-1")
	if err := svc.EnrollDelivery(context.Background(), userID, tenantID, mfa.MethodEmail, "user4@example.com"); err != nil {
		t.Fatalf("EnrollDelivery failed: %v", err)
	}

	if err := svc.SendChallenge(context.Background(), userID, mfa.MethodEmail); err != nil {
		t.Fatalf("SendChallenge failed: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected one code sent, got %d", len(notifier.sent))
	}

	if err := svc.Verify(context.Background(), userID, mfa.MethodEmail, notifier.sent[0]); err != nil {
		t.Fatalf("Verify email code failed: %v", err)
	}

	// Code is single-use; the store entry was deleted on successful verify.
	if err := svc.Verify(context.Background(), userID, mfa.MethodEmail, notifier.sent[0]); err == nil {
		t.Fatal("expected error reusing a consumed email code")
	}
}

func TestSendChallengeThrottledAfterFiveWithinWindow(t *testing.T) {
	factors := newFakeFactorRepo()
	kvStore := newFakeKV()
	svc := mfa.NewService(factors, newFakeBackupRepo(), &fakeNotifier{}, mfa.NewTOTPEngine(""), kvStore, 5*time.Minute, 10)

	userID := kernel.NewUserID("user-5")
	tenantID := kernel.NewTenantID("tenant-1")
	svc.EnrollDelivery(context.Background(), userID, tenantID, mfa.MethodSMS, "+15555550123")

	for i := 0; i < 5; i++ {
		if err := svc.SendChallenge(context.Background(), userID, mfa.MethodSMS); err != nil {
			t.Fatalf("send %d: expected no error within the resend limit, got %v", i+1, err)
		}
	}

	if err := svc.SendChallenge(context.Background(), userID, mfa.MethodSMS); err == nil {
		t.Fatal("expected the 6th send within the window to be rate limited")
	}
}
