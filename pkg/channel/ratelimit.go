package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/kv"
)

// KVRateLimiter implements RateLimiter over the shared sliding-window kv
// store, the same primitive backing login lockout and MFA send throttling.
type KVRateLimiter struct {
	store kv.Store
}

func NewKVRateLimiter(store kv.Store) *KVRateLimiter {
	return &KVRateLimiter{store: store}
}

func rateLimitKey(channelID kernel.ChannelID) string {
	return fmt.Sprintf("channel:rate:%s", channelID.String())
}

func (l *KVRateLimiter) Allow(ctx context.Context, channelID kernel.ChannelID, limitPerMinute int) (bool, error) {
	if limitPerMinute <= 0 {
		return true, nil
	}
	count, err := l.store.RecordEvent(ctx, rateLimitKey(channelID), time.Minute)
	if err != nil {
		return false, err
	}
	return count <= int64(limitPerMinute), nil
}
