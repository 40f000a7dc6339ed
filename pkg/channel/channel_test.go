package channel_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/manifesto/pkg/channel"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

type fakeRepo struct {
	saved map[kernel.ChannelID]channel.Channel
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{saved: make(map[kernel.ChannelID]channel.Channel)}
}

func (r *fakeRepo) Save(ctx context.Context, ch channel.Channel) error {
	r.saved[ch.ID] = ch
	return nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id kernel.ChannelID, tenantID kernel.TenantID) (*channel.Channel, error) {
	ch, ok := r.saved[id]
	if !ok {
		return nil, channel.ErrChannelNotFound()
	}
	return &ch, nil
}

func (r *fakeRepo) ListForTenant(ctx context.Context, tenantID kernel.TenantID) ([]*channel.Channel, error) {
	var out []*channel.Channel
	for _, ch := range r.saved {
		c := ch
		out = append(out, &c)
	}
	return out, nil
}

func (r *fakeRepo) ListActive(ctx context.Context) ([]*channel.Channel, error) {
	return r.ListForTenant(ctx, "")
}

func (r *fakeRepo) Delete(ctx context.Context, id kernel.ChannelID, tenantID kernel.TenantID) error {
	delete(r.saved, id)
	return nil
}

func testChannel(id, tenant string, models []string) channel.Channel {
	return channel.Channel{
		ID:       kernel.NewChannelID(id),
		TenantID: kernel.NewTenantID(tenant),
		Name:     id,
		Models:   models,
		Status:   channel.StatusActive,
		Weight:   1,
	}
}

func TestSelectReturnsNoHealthyChannelWhenNoneRegistered(t *testing.T) {
	m := channel.NewManager(newFakeRepo(), nil, nil)
	_, err := m.Select(context.Background(), "gpt-4o", kernel.NewTenantID("t1"), nil)
	if err == nil {
		t.Fatal("expected error selecting from empty manager")
	}
}

func TestSelectIgnoresOtherTenants(t *testing.T) {
	m := channel.NewManager(newFakeRepo(), nil, nil)
	ctx := context.Background()

	if err := m.Register(ctx, testChannel("a", "t1", []string{"gpt-4o"})); err != nil {
		t.Fatal(err)
	}
	if err := m.Register(ctx, testChannel("b", "t2", []string{"gpt-4o"})); err != nil {
		t.Fatal(err)
	}

	ch, err := m.Select(ctx, "gpt-4o", kernel.NewTenantID("t1"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.ID != kernel.NewChannelID("a") {
		t.Fatalf("expected channel a, got %s", ch.ID)
	}
}

func TestSelectExcludesGivenIDs(t *testing.T) {
	m := channel.NewManager(newFakeRepo(), nil, nil)
	ctx := context.Background()
	tenant := kernel.NewTenantID("t1")

	if err := m.Register(ctx, testChannel("a", "t1", []string{"gpt-4o"})); err != nil {
		t.Fatal(err)
	}
	if err := m.Register(ctx, testChannel("b", "t1", []string{"gpt-4o"})); err != nil {
		t.Fatal(err)
	}

	ch, err := m.Select(ctx, "gpt-4o", tenant, []kernel.ChannelID{kernel.NewChannelID("a")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.ID != kernel.NewChannelID("b") {
		t.Fatalf("expected channel b after excluding a, got %s", ch.ID)
	}
}

func TestSelectSkipsUnhealthyChannels(t *testing.T) {
	m := channel.NewManager(newFakeRepo(), nil, nil)
	ctx := context.Background()
	tenant := kernel.NewTenantID("t1")

	if err := m.Register(ctx, testChannel("sick", "t1", []string{"gpt-4o"})); err != nil {
		t.Fatal(err)
	}
	if err := m.Register(ctx, testChannel("healthy", "t1", []string{"gpt-4o"})); err != nil {
		t.Fatal(err)
	}

	// Drive "sick" below the success-rate floor.
	for i := 0; i < 10; i++ {
		m.RecordResult(kernel.NewChannelID("sick"), 50, false)
	}
	m.RecordResult(kernel.NewChannelID("healthy"), 50, true)

	for i := 0; i < 20; i++ {
		ch, err := m.Select(ctx, "gpt-4o", tenant, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ch.ID != kernel.NewChannelID("healthy") {
			t.Fatalf("expected only the healthy channel to be selected, got %s", ch.ID)
		}
	}
}

func TestRecordResultUpdatesMetricsViaSelection(t *testing.T) {
	m := channel.NewManager(newFakeRepo(), nil, nil)
	ctx := context.Background()
	tenant := kernel.NewTenantID("t1")

	if err := m.Register(ctx, testChannel("a", "t1", []string{"gpt-4o"})); err != nil {
		t.Fatal(err)
	}

	m.RecordResult(kernel.NewChannelID("a"), 200, true)
	m.RecordResult(kernel.NewChannelID("a"), 200, true)

	ch, err := m.Select(ctx, "gpt-4o", tenant, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.ID != kernel.NewChannelID("a") {
		t.Fatalf("expected channel a, got %s", ch.ID)
	}
}

func TestDeleteRemovesFromModelIndex(t *testing.T) {
	m := channel.NewManager(newFakeRepo(), nil, nil)
	ctx := context.Background()
	tenant := kernel.NewTenantID("t1")

	if err := m.Register(ctx, testChannel("a", "t1", []string{"gpt-4o"})); err != nil {
		t.Fatal(err)
	}
	if err := m.Delete(ctx, kernel.NewChannelID("a"), tenant); err != nil {
		t.Fatal(err)
	}

	_, err := m.Select(ctx, "gpt-4o", tenant, nil)
	if err == nil {
		t.Fatal("expected no healthy channel after delete")
	}
}

func TestVaultSealOpenRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	v, err := channel.NewVault(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sealed, err := v.Seal("sk-live-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sealed == "sk-live-secret" {
		t.Fatal("sealed value should not equal plaintext")
	}

	opened, err := v.Open(sealed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opened != "sk-live-secret" {
		t.Fatalf("expected round-tripped plaintext, got %q", opened)
	}
}

func TestVaultOpenRejectsGarbage(t *testing.T) {
	key := make([]byte, 32)
	v, _ := channel.NewVault(key)
	if _, err := v.Open("not-valid-base64-or-ciphertext"); err == nil {
		t.Fatal("expected error opening garbage ciphertext")
	}
}

type recordingProber struct {
	gotCredential string
}

func (p *recordingProber) Probe(ctx context.Context, credential string) error {
	p.gotCredential = credential
	return nil
}

func TestProbeOneDecryptsCredentialBeforeProbing(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	vault, err := channel.NewVault(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sealed, err := vault.Seal("sk-live-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prober := &recordingProber{}
	m := channel.NewManager(newFakeRepo(), map[string]channel.HealthProber{"openai": prober}, vault)
	ctx := context.Background()

	ch := testChannel("a", "t1", []string{"gpt-4o"})
	ch.ProviderType = "openai"
	ch.EncryptedCredential = sealed
	if err := m.Register(ctx, ch); err != nil {
		t.Fatal(err)
	}

	m.ProbeAll(ctx)

	if prober.gotCredential != "sk-live-secret" {
		t.Fatalf("expected prober to receive decrypted credential, got %q", prober.gotCredential)
	}
}
