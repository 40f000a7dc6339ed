package channel

import (
	"context"
	"crypto/rand"
	"math/big"
	"sync"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/logx"
)

const (
	minSuccessRate      = 0.8
	unhealthyWindow     = 5 * time.Minute
	healthCheckInterval = 60 * time.Second
	probeTimeout        = 5 * time.Second
)

// Manager holds every registered channel in memory and picks one for each
// incoming request. Channel configuration is loaded from Repository at
// startup and kept in sync through Register/Update/Delete; metrics live only
// in memory and are rebuilt from scratch on restart.
type Manager struct {
	mu       sync.RWMutex
	channels map[kernel.ChannelID]*Channel
	metrics  map[kernel.ChannelID]*Metrics
	byModel  map[string][]kernel.ChannelID

	probers map[string]HealthProber
	vault   *Vault

	repo Repository
}

func NewManager(repo Repository, probers map[string]HealthProber, vault *Vault) *Manager {
	return &Manager{
		channels: make(map[kernel.ChannelID]*Channel),
		metrics:  make(map[kernel.ChannelID]*Metrics),
		byModel:  make(map[string][]kernel.ChannelID),
		probers:  probers,
		vault:    vault,
		repo:     repo,
	}
}

// Load populates the in-memory index from the repository. Call once at
// startup before serving traffic.
func (m *Manager) Load(ctx context.Context) error {
	channels, err := m.repo.ListActive(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range channels {
		m.indexLocked(ch)
	}
	return nil
}

func (m *Manager) indexLocked(ch *Channel) {
	m.channels[ch.ID] = ch
	if _, ok := m.metrics[ch.ID]; !ok {
		m.metrics[ch.ID] = newMetrics()
	}
	for _, model := range ch.Models {
		m.byModel[model] = appendUnique(m.byModel[model], ch.ID)
	}
}

func appendUnique(ids []kernel.ChannelID, id kernel.ChannelID) []kernel.ChannelID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// Register persists a new channel and adds it to the in-memory index.
func (m *Manager) Register(ctx context.Context, ch Channel) error {
	if err := m.repo.Save(ctx, ch); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexLocked(&ch)
	return nil
}

// Update persists changes to a channel and rebuilds its model index entries,
// since Models may have changed.
func (m *Manager) Update(ctx context.Context, ch Channel) error {
	if err := m.repo.Save(ctx, ch); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeFromModelIndexLocked(ch.ID)
	m.indexLocked(&ch)
	return nil
}

// Delete removes a channel from storage and from the in-memory index.
func (m *Manager) Delete(ctx context.Context, id kernel.ChannelID, tenantID kernel.TenantID) error {
	if err := m.repo.Delete(ctx, id, tenantID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeFromModelIndexLocked(id)
	delete(m.channels, id)
	delete(m.metrics, id)
	return nil
}

func (m *Manager) removeFromModelIndexLocked(id kernel.ChannelID) {
	ch, ok := m.channels[id]
	if !ok {
		return
	}
	for _, model := range ch.Models {
		ids := m.byModel[model]
		for i, existing := range ids {
			if existing == id {
				m.byModel[model] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
}

// Select chooses a channel for model, restricted to tenantID, skipping any
// channel in excludeIDs (used to avoid retrying a channel that just failed)
// and any channel currently considered unhealthy. Among the survivors it
// draws one at random, weighted toward low-latency, high-success, high-
// priority channels.
func (m *Manager) Select(ctx context.Context, model string, tenantID kernel.TenantID, excludeIDs []kernel.ChannelID) (*Channel, error) {
	m.mu.RLock()
	candidateIDs := append([]kernel.ChannelID(nil), m.byModel[model]...)
	m.mu.RUnlock()

	excluded := make(map[kernel.ChannelID]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	type candidate struct {
		ch      *Channel
		metrics Metrics
	}
	var candidates []candidate

	m.mu.RLock()
	for _, id := range candidateIDs {
		if _, skip := excluded[id]; skip {
			continue
		}
		ch, ok := m.channels[id]
		if !ok || ch.Status != StatusActive || ch.TenantID != tenantID {
			continue
		}
		mx, ok := m.metrics[id]
		if !ok {
			continue
		}
		if !mx.isHealthy(minSuccessRate, unhealthyWindow) {
			continue
		}
		candidates = append(candidates, candidate{ch: ch, metrics: mx.snapshot()})
	}
	m.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, ErrNoHealthyChannel()
	}

	weights := make([]float64, len(candidates))
	chosen := make([]*Channel, len(candidates))
	for i, c := range candidates {
		weights[i] = channelWeight(c.ch, c.metrics)
		chosen[i] = c.ch
	}

	idx, err := weightedSelection(weights)
	if err != nil {
		return nil, err
	}
	return chosen[idx], nil
}

// channelWeight ports the teacher's weighting formula: a base of the
// channel's configured Weight (or 1.0 if unset), scaled down for slow
// response times, scaled by the rolling success rate, and boosted by
// priority. The floor of 1 keeps every healthy channel reachable even when
// every factor pushes its weight toward zero.
func channelWeight(ch *Channel, mx Metrics) float64 {
	weight := ch.Weight
	if weight <= 0 {
		weight = 1.0
	}

	if mx.ResponseTime > 0 {
		rt := mx.ResponseTime
		if rt < 100 {
			rt = 100
		}
		weight *= 1000 / rt
	}

	weight *= mx.SuccessRate

	weight *= 1 + float64(ch.Priority)/100

	if weight < 1 {
		weight = 1
	}
	return weight
}

// weightedSelection draws an index from weights proportionally, matching
// the teacher's cumulative-sum random draw.
func weightedSelection(weights []float64) (int, error) {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0, nil
	}

	draw, err := randomFloat(total)
	if err != nil {
		return 0, err
	}

	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if draw < cumulative {
			return i, nil
		}
	}
	return len(weights) - 1, nil
}

// randomFloat returns a cryptographically random float64 in [0, max).
func randomFloat(max float64) (float64, error) {
	const precision = 1 << 53
	n, err := rand.Int(rand.Reader, big.NewInt(precision))
	if err != nil {
		return 0, err
	}
	return (float64(n.Int64()) / float64(precision)) * max, nil
}

// RecordResult feeds a proxied call's outcome back into a channel's rolling
// metrics. Safe to call concurrently with Select and with other calls to
// RecordResult for different channels.
func (m *Manager) RecordResult(channelID kernel.ChannelID, responseTimeMillis float64, success bool) {
	m.mu.RLock()
	mx, ok := m.metrics[channelID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	mx.record(responseTimeMillis, success)
}

// Start runs the periodic health-check loop until ctx is cancelled. Each
// tick probes every registered channel concurrently, one goroutine per
// channel, bounded by a short per-probe timeout so one stuck provider never
// stalls the whole sweep.
func (m *Manager) Start(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	logx.Info("channel: starting health-check loop")

	for {
		select {
		case <-ctx.Done():
			logx.Info("channel: health-check loop stopped")
			return
		case <-ticker.C:
			m.runHealthSweep(ctx)
		}
	}
}

// ProbeAll runs one health-check sweep immediately instead of waiting for
// the next tick. Exposed for operator-triggered re-checks and tests.
func (m *Manager) ProbeAll(ctx context.Context) {
	m.runHealthSweep(ctx)
}

func (m *Manager) runHealthSweep(ctx context.Context) {
	m.mu.RLock()
	channels := make([]*Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		channels = append(channels, ch)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, ch := range channels {
		// Only active channels get probed. Disabled and maintenance
		// channels are paused deliberately; error channels are probed
		// anyway so they can recover once the provider comes back.
		if ch.Status == StatusInactive || ch.Status == StatusMaintenance {
			continue
		}
		prober, ok := m.probers[ch.ProviderType]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(ch *Channel, prober HealthProber) {
			defer wg.Done()
			m.probeOne(ctx, ch, prober)
		}(ch, prober)
	}
	wg.Wait()
}

func (m *Manager) probeOne(ctx context.Context, ch *Channel, prober HealthProber) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	credential, err := m.vault.Open(ch.EncryptedCredential)
	if err != nil {
		logx.WithFields(logx.Fields{"channel_id": ch.ID.String(), "error": err.Error()}).Warn("channel: health probe could not decrypt credential")
		m.RecordResult(ch.ID, 0, false)
		return
	}

	start := time.Now()
	err = prober.Probe(probeCtx, credential)
	elapsedMillis := float64(time.Since(start).Milliseconds())

	if err != nil {
		logx.WithFields(logx.Fields{"channel_id": ch.ID.String(), "error": err.Error()}).Warn("channel: health probe failed")
	}
	m.RecordResult(ch.ID, elapsedMillis, err == nil)
}
