// Package invitation lets a tenant admin invite a new user by email to a
// given role, without that user having an account yet.
package invitation

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusExpired  Status = "EXPIRED"
	StatusRevoked  Status = "REVOKED"
)

// Invitation is a pending offer for a new user to join a tenant at a given
// role. AcceptedBy is nil until the invited email completes registration.
type Invitation struct {
	ID         string          `db:"id"`
	TenantID   kernel.TenantID `db:"tenant_id"`
	Email      string          `db:"email"`
	Token      string          `db:"token"`
	RoleID     string          `db:"role_id"`
	Status     Status          `db:"status"`
	InvitedBy  kernel.UserID   `db:"invited_by"`
	ExpiresAt  time.Time       `db:"expires_at"`
	AcceptedAt *time.Time      `db:"accepted_at"`
	AcceptedBy *kernel.UserID  `db:"accepted_by"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

func (i Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

func (i Invitation) IsPending() bool {
	return i.Status == StatusPending && !i.IsExpired()
}

func (i Invitation) CanBeAccepted() bool {
	return i.IsPending()
}

func (i Invitation) GetID() string                 { return i.ID }
func (i Invitation) GetTenantID() kernel.TenantID   { return i.TenantID }
func (i Invitation) GetEmail() string               { return i.Email }

// Accept satisfies auth.Invitation. It fails closed if the invitation is no
// longer acceptable rather than silently flipping its status.
func (i *Invitation) Accept(userID kernel.UserID) error {
	if !i.CanBeAccepted() {
		if i.IsExpired() {
			return ErrInvitationExpired()
		}
		return ErrInvitationAlreadyUsed()
	}
	now := time.Now().UTC()
	i.Status = StatusAccepted
	i.AcceptedAt = &now
	i.AcceptedBy = &userID
	i.UpdatedAt = now
	return nil
}

func (i *Invitation) Revoke() {
	i.Status = StatusRevoked
	i.UpdatedAt = time.Now().UTC()
}

var ErrRegistry = errx.NewRegistry("INVITATION")

var (
	CodeInvitationNotFound      = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Invitation not found")
	CodeInvitationAlreadyExists = ErrRegistry.Register("ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "A pending invitation already exists for this email")
	CodeInvitationExpired       = ErrRegistry.Register("EXPIRED", errx.TypeValidation, http.StatusGone, "Invitation has expired")
	CodeInvitationAlreadyUsed   = ErrRegistry.Register("ALREADY_USED", errx.TypeValidation, http.StatusConflict, "Invitation has already been accepted")
)

func ErrInvitationNotFound() *errx.Error      { return ErrRegistry.New(CodeInvitationNotFound) }
func ErrInvitationAlreadyExists() *errx.Error { return ErrRegistry.New(CodeInvitationAlreadyExists) }
func ErrInvitationExpired() *errx.Error       { return ErrRegistry.New(CodeInvitationExpired) }
func ErrInvitationAlreadyUsed() *errx.Error   { return ErrRegistry.New(CodeInvitationAlreadyUsed) }
