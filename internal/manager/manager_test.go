package manager

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shazow/wifiman/internal/kv"
	"github.com/shazow/wifiman/usage"
	"github.com/shazow/wifiman/wifi"
	"github.com/shazow/wifiman/wifi/mock"
)

func newTestManager(t *testing.T, networks ...wifi.Network) (*Manager, *mock.MockBackend, *usage.Store) {
	t.Helper()
	backend := mock.NewForTesting(networks...)
	store := usage.New(&kv.Memory{})
	m := New(backend, store, slog.New(slog.DiscardHandler))
	m.sleep = func(context.Context, time.Duration) error { return nil }
	return m, backend, store
}

func TestRefreshRanks(t *testing.T) {
	m, backend, store := newTestManager(t,
		wifi.Network{SSID: "Weak", Strength: 10, Security: "WPA2"},
		wifi.Network{SSID: "Strong", Strength: 90, Security: "WPA2"},
		wifi.Network{SSID: "Favourite", Strength: 30, Security: wifi.SecurityNone},
		wifi.Network{SSID: "Home", Strength: 50, Security: "WPA2"},
	)
	backend.Current = "Home"
	backend.IP = "10.0.0.2"
	ctx := context.Background()
	for range 3 {
		require.NoError(t, store.Increment(ctx, "Favourite"))
	}

	listing, err := m.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, listing.RadioOff)

	var order []string
	for _, n := range listing.Networks {
		order = append(order, n.SSID)
	}
	assert.Equal(t, []string{"Home", "Favourite", "Strong", "Weak"}, order)
	assert.Equal(t, "10.0.0.2", listing.Networks[0].IPAddress)
	assert.Equal(t, 3, listing.Networks[1].Usage)
	for _, n := range listing.Networks[1:] {
		assert.Empty(t, n.IPAddress, n.SSID)
	}
}

func TestRefreshRadioOff(t *testing.T) {
	m, backend, _ := newTestManager(t, wifi.Network{SSID: "Home"})
	backend.WirelessEnabled = false

	listing, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, listing.RadioOff)
	assert.Empty(t, listing.Networks)
}

func TestRefreshScanError(t *testing.T) {
	m, backend, _ := newTestManager(t)
	backend.ScanError = wifi.ErrCommandFailed

	_, err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, wifi.ErrCommandFailed)
}

func TestFind(t *testing.T) {
	m, backend, _ := newTestManager(t, wifi.Network{SSID: "Home", Security: "WPA2"})
	ctx := context.Background()

	n, err := m.Find(ctx, "Home")
	require.NoError(t, err)
	assert.Equal(t, "WPA2", n.Security)

	_, err = m.Find(ctx, "Elsewhere")
	assert.ErrorIs(t, err, wifi.ErrNotFound)

	backend.WirelessEnabled = false
	_, err = m.Find(ctx, "Home")
	assert.ErrorIs(t, err, wifi.ErrWirelessDisabled)
}

func TestConnectUpdatesUsage(t *testing.T) {
	open := wifi.Network{SSID: "Cafe", Security: wifi.SecurityNone}
	m, _, _ := newTestManager(t, open)
	ctx := context.Background()

	require.NoError(t, m.Connect(ctx, open))

	counts, err := m.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Cafe": 1}, counts)
}

func TestConnectNeedsCredential(t *testing.T) {
	secured := wifi.Network{SSID: "Home", Security: "WPA2"}
	m, backend, _ := newTestManager(t, secured)
	ctx := context.Background()

	err := m.Connect(ctx, secured)
	require.ErrorIs(t, err, wifi.ErrCredentialRequired)

	require.NoError(t, m.ConnectWithCredential(ctx, secured, "hunter2"))
	assert.Equal(t, "Home", backend.Current)
}

func TestToggleRadio(t *testing.T) {
	m, backend, _ := newTestManager(t)
	var slept []time.Duration
	m.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	ctx := context.Background()

	on, err := m.ToggleRadio(ctx)
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, backend.WirelessEnabled)
	assert.Empty(t, slept, "turning off does not wait")

	on, err = m.ToggleRadio(ctx)
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, []time.Duration{DefaultRadioSettle}, slept)

	backend.SetWirelessError = errors.New("permission denied")
	_, err = m.ToggleRadio(ctx)
	assert.Error(t, err)
}

func TestToggleRadioNoSettle(t *testing.T) {
	backend := mock.NewForTesting()
	backend.WirelessEnabled = false
	m := New(backend, usage.New(&kv.Memory{}), slog.New(slog.DiscardHandler), WithRadioSettle(0))
	m.sleep = func(context.Context, time.Duration) error {
		t.Fatal("unexpected wait")
		return nil
	}

	on, err := m.ToggleRadio(context.Background())
	require.NoError(t, err)
	assert.True(t, on)
}

func TestSecret(t *testing.T) {
	m, backend, _ := newTestManager(t)
	backend.Secrets["Home"] = "hunter2"
	ctx := context.Background()

	secret, err := m.Secret(ctx, wifi.Network{SSID: "Home", Security: "WPA2"})
	require.NoError(t, err)
	assert.Equal(t, "hunter2", secret)

	before := backend.SecretCalls
	secret, err = m.Secret(ctx, wifi.Network{SSID: "Cafe", Security: wifi.SecurityNone})
	require.NoError(t, err)
	assert.Empty(t, secret)
	assert.Equal(t, before, backend.SecretCalls, "open networks have no secret to look up")

	_, err = m.Secret(ctx, wifi.Network{SSID: "Other", Security: "WPA2"})
	assert.ErrorIs(t, err, wifi.ErrCredentialNotFound)
}
