// Package session tracks an opaque, KV-backed record of where and when a
// user logged in, independent of token validity: revoking a session never
// invalidates the access/refresh tokens issued alongside it, and an expired
// or stolen-and-revoked token leaves the session record untouched. It exists
// purely as an audit and explicit-revoke surface.
package session

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

// Session is a single login's audit record.
type Session struct {
	ID        string          `json:"id"`
	UserID    kernel.UserID   `json:"user_id"`
	TenantID  kernel.TenantID `json:"tenant_id"`
	ClientIP  string          `json:"client_ip"`
	UserAgent string          `json:"user_agent"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

var ErrRegistry = errx.NewRegistry("SESSION")

var CodeSessionNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Session not found")

func ErrSessionNotFound() *errx.Error { return ErrRegistry.New(CodeSessionNotFound) }
