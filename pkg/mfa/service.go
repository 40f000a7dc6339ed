package mfa

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/kv"
	"github.com/google/uuid"
)

// Service orchestrates enrollment, challenge delivery, and verification
// across all four factor methods. Delivery-based methods (SMS, email) and
// TOTP share the same challenge/verify shape from the caller's point of
// view; only how the code is produced and checked differs.
// resendWindow and resendLimit bound how many challenge codes a user can
// request per method before SendChallenge starts rejecting: more than
// resendLimit sends within resendWindow trips the limit, the same
// sliding-window shape auth.Authenticator uses for lockout.
const (
	resendWindow = time.Hour
	resendLimit  = 5
)

type Service struct {
	factors     FactorRepository
	backupCodes BackupCodeRepository
	notifier    Notifier
	totp        *TOTPEngine
	kv          kv.Store
	codeTTL     time.Duration
	backupCount int
}

func NewService(factors FactorRepository, backupCodes BackupCodeRepository, notifier Notifier, totp *TOTPEngine, store kv.Store, codeTTL time.Duration, backupCount int) *Service {
	if codeTTL <= 0 {
		codeTTL = 5 * time.Minute
	}
	if backupCount <= 0 {
		backupCount = 10
	}
	return &Service{
		factors:     factors,
		backupCodes: backupCodes,
		notifier:    notifier,
		totp:        totp,
		kv:          store,
		codeTTL:     codeTTL,
		backupCount: backupCount,
	}
}

func codeKey(userID kernel.UserID, method Method) string {
	return fmt.Sprintf("mfa:code:%s:%s", userID.String(), method)
}

func resendCounterKey(userID kernel.UserID, method Method) string {
	return fmt.Sprintf("mfa:resend:%s:%s", userID.String(), method)
}

// EnabledMethods reports which factor methods are active for a user, for
// login flows that need to tell the caller how to complete an MFA
// challenge. Satisfies user.MFAStatusLookup structurally.
func (s *Service) EnabledMethods(ctx context.Context, userID kernel.UserID) ([]string, bool, error) {
	factors, err := s.factors.ListForUser(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	var methods []string
	for _, f := range factors {
		if f.Enabled {
			methods = append(methods, string(f.Method))
		}
	}
	return methods, len(methods) > 0, nil
}

// EnrollTOTP generates a new secret and QR code for the user. The factor is
// stored disabled until VerifyEnrollment confirms the user actually holds
// the secret in an authenticator app.
func (s *Service) EnrollTOTP(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, accountName string) (secret string, qrPNG []byte, err error) {
	secret, qrPNG, err = s.totp.GenerateSecret(accountName)
	if err != nil {
		return "", nil, err
	}
	factor := Factor{
		ID:        uuid.NewString(),
		UserID:    userID,
		TenantID:  tenantID,
		Method:    MethodTOTP,
		Secret:    secret,
		Enabled:   false,
		CreatedAt: time.Now(),
	}
	if err := s.factors.Save(ctx, factor); err != nil {
		return "", nil, err
	}
	return secret, qrPNG, nil
}

// VerifyEnrollment confirms a freshly enrolled TOTP factor and activates it.
func (s *Service) VerifyEnrollment(ctx context.Context, userID kernel.UserID, code string) error {
	factor, err := s.factors.FindByUserAndMethod(ctx, userID, MethodTOTP)
	if err != nil {
		return err
	}
	if factor == nil {
		return ErrFactorNotEnrolled()
	}
	if !s.totp.ValidateCode(code, factor.Secret) {
		return ErrInvalidCode()
	}
	now := time.Now()
	factor.Enabled = true
	factor.VerifiedAt = &now
	return s.factors.Save(ctx, *factor)
}

// EnrollDelivery registers SMS or email as a second factor, enabled
// immediately since the first sent code doubles as verification.
func (s *Service) EnrollDelivery(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, method Method, contact string) error {
	if method != MethodSMS && method != MethodEmail {
		return ErrUnsupportedMethod()
	}
	now := time.Now()
	factor := Factor{
		ID:         uuid.NewString(),
		UserID:     userID,
		TenantID:   tenantID,
		Method:     method,
		Contact:    contact,
		Enabled:    true,
		CreatedAt:  now,
		VerifiedAt: &now,
	}
	return s.factors.Save(ctx, factor)
}

// SendChallenge issues a one-time code for a delivery-based factor, subject
// to a sliding-window resend limit: more than resendLimit sends within
// resendWindow rejects further sends until the oldest one ages out of the
// window, the same counter shape auth.Authenticator uses for lockout.
func (s *Service) SendChallenge(ctx context.Context, userID kernel.UserID, method Method) error {
	if method != MethodSMS && method != MethodEmail {
		return ErrUnsupportedMethod()
	}
	factor, err := s.factors.FindByUserAndMethod(ctx, userID, method)
	if err != nil {
		return err
	}
	if factor == nil || !factor.Enabled {
		return ErrFactorNotEnrolled()
	}

	count, err := s.kv.RecordEvent(ctx, resendCounterKey(userID, method), resendWindow)
	if err != nil {
		return err
	}
	if count > resendLimit {
		return ErrTooManyRequests(resendWindow)
	}

	code, err := generateDeliveryCode()
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, codeKey(userID, method), code, s.codeTTL); err != nil {
		return err
	}
	return s.notifier.Send(ctx, method, factor.Contact, code)
}

// Verify checks a submitted code against the given method: a live TOTP
// computation, a stored delivery code, or an unused backup code.
func (s *Service) Verify(ctx context.Context, userID kernel.UserID, method Method, code string) error {
	switch method {
	case MethodTOTP:
		return s.verifyTOTP(ctx, userID, code)
	case MethodSMS, MethodEmail:
		return s.verifyDelivery(ctx, userID, method, code)
	case MethodBackupCode:
		return s.verifyBackupCode(ctx, userID, code)
	default:
		return ErrUnsupportedMethod()
	}
}

func (s *Service) verifyTOTP(ctx context.Context, userID kernel.UserID, code string) error {
	factor, err := s.factors.FindByUserAndMethod(ctx, userID, MethodTOTP)
	if err != nil {
		return err
	}
	if factor == nil || !factor.Enabled {
		return ErrFactorNotEnrolled()
	}
	if !s.totp.ValidateCode(code, factor.Secret) {
		return ErrInvalidCode()
	}
	return nil
}

func (s *Service) verifyDelivery(ctx context.Context, userID kernel.UserID, method Method, code string) error {
	key := codeKey(userID, method)
	stored, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return ErrCodeExpired()
	}
	if stored != code {
		return ErrInvalidCode()
	}
	return s.kv.Delete(ctx, key)
}

func (s *Service) verifyBackupCode(ctx context.Context, userID kernel.UserID, code string) error {
	unused, err := s.backupCodes.FindUnused(ctx, userID)
	if err != nil {
		return err
	}
	hash := HashBackupCode(code)
	for _, bc := range unused {
		if bc.CodeHash == hash {
			return s.backupCodes.MarkUsed(ctx, bc.ID)
		}
	}
	return ErrInvalidCode()
}

// IssueBackupCodes replaces the user's backup codes with a freshly generated
// set and returns the plaintext codes for one-time display.
func (s *Service) IssueBackupCodes(ctx context.Context, userID kernel.UserID) ([]string, error) {
	codes, err := GenerateBackupCodes(s.backupCount)
	if err != nil {
		return nil, err
	}
	stored := make([]BackupCode, len(codes))
	for i, code := range codes {
		stored[i] = BackupCode{
			ID:       uuid.NewString(),
			UserID:   userID,
			CodeHash: HashBackupCode(code),
		}
	}
	if err := s.backupCodes.ReplaceAll(ctx, userID, stored); err != nil {
		return nil, err
	}
	return codes, nil
}

// generateDeliveryCode produces a 6-digit numeric code for SMS/email
// challenges using a cryptographically secure random source.
func generateDeliveryCode() (string, error) {
	const length = 6
	max := new(big.Int)
	max.Exp(big.NewInt(10), big.NewInt(int64(length)), nil)

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n), nil
}
