// Package user manages tenant-scoped user accounts: registration, profile,
// credential changes, and status.
package user

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusLocked   Status = "locked"
)

// User is a tenant-scoped account. PasswordHash is never serialized.
type User struct {
	ID              kernel.UserID   `db:"id" json:"id"`
	TenantID        kernel.TenantID `db:"tenant_id" json:"tenant_id"`
	Email           string          `db:"email" json:"email"`
	Name            string          `db:"name" json:"name"`
	PasswordHash    string          `db:"password_hash" json:"-"`
	Status          Status          `db:"status" json:"status"`
	EmailVerifiedAt *time.Time      `db:"email_verified_at" json:"email_verified_at,omitempty"`
	MFAEnabled      bool            `db:"mfa_enabled" json:"mfa_enabled"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

func (u User) IsActive() bool {
	return u.Status == StatusActive
}

var ErrRegistry = errx.NewRegistry("USER")

var (
	CodeUserNotFound   = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User not found")
	CodeEmailTaken     = ErrRegistry.Register("EMAIL_TAKEN", errx.TypeBusiness, http.StatusConflict, "A user with this email already exists")
	CodeWrongPassword  = ErrRegistry.Register("WRONG_PASSWORD", errx.TypeAuthorization, http.StatusUnauthorized, "Current password is incorrect")
	CodeAlreadyVerified = ErrRegistry.Register("ALREADY_VERIFIED", errx.TypeBusiness, http.StatusBadRequest, "Email is already verified")
)

func ErrUserNotFound() *errx.Error    { return ErrRegistry.New(CodeUserNotFound) }
func ErrEmailTaken() *errx.Error      { return ErrRegistry.New(CodeEmailTaken) }
func ErrWrongPassword() *errx.Error   { return ErrRegistry.New(CodeWrongPassword) }
func ErrAlreadyVerified() *errx.Error { return ErrRegistry.New(CodeAlreadyVerified) }
