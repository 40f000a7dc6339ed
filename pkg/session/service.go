package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/kv"
)

// Service creates, looks up, and deletes session records in kv.Store. The
// session id is the KV key; there is no secondary index, matching the
// spec's "accessed by id" contract exactly and keeping a revoked-everywhere
// sweep (revoke-all-for-user) out of scope unless a caller tracks its own
// set of issued ids.
type Service struct {
	kv          kv.Store
	ttl         time.Duration
	rememberTTL time.Duration
}

func NewService(store kv.Store, ttl, rememberTTL time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if rememberTTL <= 0 {
		rememberTTL = 30 * 24 * time.Hour
	}
	return &Service{kv: store, ttl: ttl, rememberTTL: rememberTTL}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Create mints an opaque session id and stores the record with a TTL:
// the long-lived rememberTTL when remember is set, the shorter default
// otherwise.
func (s *Service) Create(ctx context.Context, userID kernel.UserID, tenantID kernel.TenantID, remember bool, clientIP, userAgent string) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate session id", errx.TypeInternal)
	}

	ttl := s.ttl
	if remember {
		ttl = s.rememberTTL
	}

	now := time.Now()
	sess := Session{
		ID:        id,
		UserID:    userID,
		TenantID:  tenantID,
		ClientIP:  clientIP,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	encoded, err := json.Marshal(sess)
	if err != nil {
		return nil, errx.Wrap(err, "failed to encode session", errx.TypeInternal)
	}
	if err := s.kv.Set(ctx, sessionKey(id), string(encoded), ttl); err != nil {
		return nil, errx.Wrap(err, "failed to store session", errx.TypeInternal)
	}
	return &sess, nil
}

// Get returns the session record for id, or ErrSessionNotFound if it has
// expired or was never created.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	raw, found, err := s.kv.Get(ctx, sessionKey(id))
	if err != nil {
		return nil, errx.Wrap(err, "failed to read session", errx.TypeInternal)
	}
	if !found {
		return nil, ErrSessionNotFound()
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, errx.Wrap(err, "failed to decode session", errx.TypeInternal)
	}
	return &sess, nil
}

// Delete removes a session record. Safe to call on an already-expired or
// unknown id; logout should never fail just because the session already
// aged out on its own.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, sessionKey(id))
}

func generateSessionID() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
