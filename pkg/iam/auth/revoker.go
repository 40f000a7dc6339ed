package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/kv"
)

// KVRevoker implements Revoker over the generic KV store. A single token is
// revoked by a present key; every token for a user is revoked by recording
// a "revoked since" timestamp that later validations compare their IssuedAt
// against.
type KVRevoker struct {
	store kv.Store
}

func NewKVRevoker(store kv.Store) *KVRevoker {
	return &KVRevoker{store: store}
}

func tokenRevocationKey(tokenID string) string {
	return fmt.Sprintf("auth:revoked:token:%s", tokenID)
}

func userRevocationKey(userID kernel.UserID) string {
	return fmt.Sprintf("auth:revoked:user:%s", userID.String())
}

func (r *KVRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return r.store.Exists(ctx, tokenRevocationKey(tokenID))
}

func (r *KVRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return r.store.Set(ctx, tokenRevocationKey(tokenID), "1", ttl)
}

func (r *KVRevoker) RevokeAllForUser(ctx context.Context, userID kernel.UserID, ttl time.Duration) error {
	return r.store.Set(ctx, userRevocationKey(userID), fmt.Sprintf("%d", time.Now().UnixNano()), ttl)
}

func (r *KVRevoker) IsUserRevoked(ctx context.Context, userID kernel.UserID, issuedAt time.Time) (bool, error) {
	value, found, err := r.store.Get(ctx, userRevocationKey(userID))
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	var revokedAtNanos int64
	if _, err := fmt.Sscanf(value, "%d", &revokedAtNanos); err != nil {
		return false, nil
	}
	return issuedAt.UnixNano() < revokedAtNanos, nil
}
