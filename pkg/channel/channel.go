// Package channel implements the provider-channel registry: weighted,
// health-aware selection across credentialed routes to upstream model
// providers, following the load-balancing and failover design of
// One-API-style channel managers.
package channel

import (
	"net/http"
	"sync"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusError       Status = "error"
	StatusMaintenance Status = "maintenance"
)

type Health string

const (
	HealthUnknown   Health = "unknown"
	HealthHealthy   Health = "healthy"
	HealthUnhealthy Health = "unhealthy"
)

// Channel is a credentialed route to a provider: a tenant's configured way
// of reaching a specific model family through a specific provider account.
type Channel struct {
	ID                  kernel.ChannelID `db:"id" json:"id"`
	TenantID            kernel.TenantID  `db:"tenant_id" json:"tenant_id"`
	Name                string           `db:"name" json:"name"`
	ProviderType        string           `db:"provider_type" json:"provider_type"`
	BaseURL             string           `db:"base_url" json:"base_url,omitempty"`
	EncryptedCredential string           `db:"encrypted_credential" json:"-"`
	Models              []string         `db:"models" json:"models"`
	Status              Status           `db:"status" json:"status"`
	Priority            int              `db:"priority" json:"priority"`
	Weight              float64          `db:"weight" json:"weight"`
	MaxRequestsPerMin   int              `db:"max_requests_per_min" json:"max_requests_per_min"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time        `db:"updated_at" json:"updated_at"`
}

// Metrics tracks a channel's rolling health signal. Reads and writes are
// guarded by its own lock so one channel's metric update never blocks a
// selection pass over every other channel.
type Metrics struct {
	mu           sync.RWMutex
	ResponseTime float64 // EMA, milliseconds
	SuccessRate  float64
	RequestCount int64
	ErrorCount   int64
	LastSuccess  time.Time
	LastError    time.Time
	Health       Health
}

func newMetrics() *Metrics {
	return &Metrics{SuccessRate: 1.0, Health: HealthUnknown}
}

// record applies an exponential moving average to response time (0.7 old +
// 0.3 new, matching the teacher's smoothing factor) and recomputes the
// success rate from cumulative counts.
func (m *Metrics) record(responseTimeMillis float64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if responseTimeMillis > 0 {
		if m.ResponseTime > 0 {
			m.ResponseTime = 0.7*m.ResponseTime + 0.3*responseTimeMillis
		} else {
			m.ResponseTime = responseTimeMillis
		}
	}

	m.RequestCount++
	if success {
		m.LastSuccess = time.Now()
		m.Health = HealthHealthy
	} else {
		m.ErrorCount++
		m.LastError = time.Now()
		m.Health = HealthUnhealthy
	}

	if m.RequestCount > 0 {
		m.SuccessRate = float64(m.RequestCount-m.ErrorCount) / float64(m.RequestCount)
	}
}

func (m *Metrics) snapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Metrics{
		ResponseTime: m.ResponseTime,
		SuccessRate:  m.SuccessRate,
		RequestCount: m.RequestCount,
		ErrorCount:   m.ErrorCount,
		LastSuccess:  m.LastSuccess,
		LastError:    m.LastError,
		Health:       m.Health,
	}
}

// isHealthy applies the same thresholds as the teacher's
// _is_channel_healthy: a channel with no traffic yet is healthy by
// default, a success rate under minSuccessRate is unhealthy, and a recent
// error (within unhealthyWindow) that postdates the last success is
// unhealthy even if the rolling success rate hasn't caught up yet.
func (m *Metrics) isHealthy(minSuccessRate float64, unhealthyWindow time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.RequestCount == 0 {
		return true
	}
	if m.SuccessRate < minSuccessRate {
		return false
	}
	if !m.LastError.IsZero() && m.LastError.After(m.LastSuccess) {
		if time.Since(m.LastError) < unhealthyWindow {
			return false
		}
	}
	return true
}

var ErrRegistry = errx.NewRegistry("CHANNEL")

var (
	CodeChannelNotFound      = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Channel not found")
	CodeNoHealthyChannel     = ErrRegistry.Register("NO_HEALTHY_CHANNEL", errx.TypeUnavailable, http.StatusServiceUnavailable, "No healthy channel is available for this model")
	CodeInvalidCredential    = ErrRegistry.Register("INVALID_CREDENTIAL", errx.TypeValidation, http.StatusBadRequest, "Channel credential failed validation")
	CodeUnknownProviderType  = ErrRegistry.Register("UNKNOWN_PROVIDER_TYPE", errx.TypeNotFound, http.StatusNotFound, "Unknown provider type")
)

func ErrChannelNotFound() *errx.Error  { return ErrRegistry.New(CodeChannelNotFound) }
func ErrNoHealthyChannel() *errx.Error { return ErrRegistry.New(CodeNoHealthyChannel) }
func ErrInvalidCredential() *errx.Error { return ErrRegistry.New(CodeInvalidCredential) }

func ErrUnknownProviderType(id string) *errx.Error {
	return ErrRegistry.New(CodeUnknownProviderType).WithDetail("provider_type", id)
}
