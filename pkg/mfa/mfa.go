// Package mfa implements the multi-factor challenge engine: TOTP, one-time
// codes delivered over SMS/email, and single-use backup codes.
package mfa

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

// Method identifies one of the four supported second factors.
type Method string

const (
	MethodTOTP       Method = "totp"
	MethodSMS        Method = "sms"
	MethodEmail      Method = "email"
	MethodBackupCode Method = "backup_code"
)

// Factor is an enrolled second factor for a user. Secret holds the TOTP
// seed for MethodTOTP and is empty for delivery-based methods, which carry
// no long-lived secret of their own.
type Factor struct {
	ID         string          `db:"id" json:"id"`
	UserID     kernel.UserID   `db:"user_id" json:"user_id"`
	TenantID   kernel.TenantID `db:"tenant_id" json:"tenant_id"`
	Method     Method          `db:"method" json:"method"`
	Secret     string          `db:"secret" json:"-"`
	Contact    string          `db:"contact" json:"contact,omitempty"`
	Enabled    bool            `db:"enabled" json:"enabled"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	VerifiedAt *time.Time      `db:"verified_at" json:"verified_at,omitempty"`
}

// BackupCode is one single-use recovery code, stored hashed.
type BackupCode struct {
	ID       string        `db:"id" json:"id"`
	UserID   kernel.UserID `db:"user_id" json:"user_id"`
	CodeHash string        `db:"code_hash" json:"-"`
	UsedAt   *time.Time    `db:"used_at" json:"used_at,omitempty"`
}

var ErrRegistry = errx.NewRegistry("MFA")

var (
	CodeFactorNotEnrolled = ErrRegistry.Register("FACTOR_NOT_ENROLLED", errx.TypeNotFound, http.StatusNotFound, "This MFA method is not enrolled")
	CodeInvalidCode       = ErrRegistry.Register("INVALID_CODE", errx.TypeValidation, http.StatusBadRequest, "Invalid verification code")
	CodeCodeExpired       = ErrRegistry.Register("CODE_EXPIRED", errx.TypeValidation, http.StatusBadRequest, "Verification code has expired")
	CodeCodeAlreadyUsed   = ErrRegistry.Register("CODE_ALREADY_USED", errx.TypeBusiness, http.StatusBadRequest, "Verification code has already been used")
	CodeTooManyAttempts   = ErrRegistry.Register("TOO_MANY_ATTEMPTS", errx.TypeRateLimited, http.StatusTooManyRequests, "Too many verification attempts")
	CodeTooManyRequests   = ErrRegistry.Register("TOO_MANY_REQUESTS", errx.TypeRateLimited, http.StatusTooManyRequests, "Too many code requests, please wait before retrying")
	CodeBackupCodeExhausted = ErrRegistry.Register("BACKUP_CODES_EXHAUSTED", errx.TypeBusiness, http.StatusBadRequest, "No unused backup codes remain")
	CodeUnsupportedMethod = ErrRegistry.Register("UNSUPPORTED_METHOD", errx.TypeValidation, http.StatusBadRequest, "Unsupported MFA method")
)

func ErrFactorNotEnrolled() *errx.Error   { return ErrRegistry.New(CodeFactorNotEnrolled) }
func ErrInvalidCode() *errx.Error         { return ErrRegistry.New(CodeInvalidCode) }
func ErrCodeExpired() *errx.Error         { return ErrRegistry.New(CodeCodeExpired) }
func ErrCodeAlreadyUsed() *errx.Error     { return ErrRegistry.New(CodeCodeAlreadyUsed) }
func ErrTooManyAttempts() *errx.Error     { return ErrRegistry.New(CodeTooManyAttempts) }
func ErrTooManyRequests(retryAfter time.Duration) *errx.Error {
	return ErrRegistry.New(CodeTooManyRequests).WithDetail("retry_after_seconds", int(retryAfter.Seconds()))
}
func ErrBackupCodesExhausted() *errx.Error { return ErrRegistry.New(CodeBackupCodeExhausted) }
func ErrUnsupportedMethod() *errx.Error    { return ErrRegistry.New(CodeUnsupportedMethod) }
