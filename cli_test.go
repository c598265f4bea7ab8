package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shazow/wifiman/internal/kv"
	"github.com/shazow/wifiman/internal/manager"
	"github.com/shazow/wifiman/usage"
	"github.com/shazow/wifiman/wifi"
	"github.com/shazow/wifiman/wifi/mock"
)

func newTestManager(t *testing.T, networks ...wifi.Network) (*manager.Manager, *mock.MockBackend, *usage.Store) {
	t.Helper()
	backend := mock.NewForTesting(networks...)
	store := usage.New(&kv.Memory{})
	return manager.New(backend, store, slog.New(slog.DiscardHandler), manager.WithRadioSettle(0)), backend, store
}

func noPrompt(t *testing.T) passwordPrompt {
	return func(ssid string) (string, error) {
		t.Fatalf("unexpected prompt for %s", ssid)
		return "", nil
	}
}

func TestRunList(t *testing.T) {
	mgr, backend, store := newTestManager(t,
		wifi.Network{SSID: "TestNet 1", Strength: 80, Security: wifi.SecurityNone},
		wifi.Network{SSID: "TestNet 2", Strength: 50, Security: "WPA2"},
		wifi.Network{SSID: "TestNet 3", Strength: 30, Security: "WPA2"},
	)
	backend.Current = "TestNet 2"
	backend.IP = "10.0.0.9"
	ctx := context.Background()
	require.NoError(t, store.Increment(ctx, "TestNet 3"))

	var buf bytes.Buffer
	require.NoError(t, runList(ctx, &buf, false, mgr))

	expectedLines := []string{
		"TestNet 2\t50%, WPA2, connected, 10.0.0.9",
		"TestNet 3\t30%, WPA2, used 1 times",
		"TestNet 1\t80%, None",
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, expectedLines, lines)
}

func TestRunListJSON(t *testing.T) {
	mgr, backend, _ := newTestManager(t, wifi.Network{SSID: "Home", Strength: 70, Security: "WPA2"})
	backend.Current = "Home"
	backend.IP = "10.0.0.9"

	var buf bytes.Buffer
	require.NoError(t, runList(context.Background(), &buf, true, mgr))

	var got []networkJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, networkJSON{SSID: "Home", Strength: 70, Security: "WPA2", Connected: true, IPAddress: "10.0.0.9"}, got[0])
}

func TestRunListRadioOff(t *testing.T) {
	mgr, backend, _ := newTestManager(t)
	backend.WirelessEnabled = false

	err := runList(context.Background(), &bytes.Buffer{}, false, mgr)
	assert.ErrorIs(t, err, wifi.ErrWirelessDisabled)
}

func TestRunConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("stored password", func(t *testing.T) {
		mgr, backend, _ := newTestManager(t, wifi.Network{SSID: "Home", Security: "WPA2"})
		backend.Secrets["Home"] = "hunter2"

		var buf bytes.Buffer
		require.NoError(t, runConnect(ctx, &buf, "Home", "", noPrompt(t), mgr))
		assert.Equal(t, "Connecting to Home...\nConnected to Home\n", buf.String())
		assert.Equal(t, "hunter2", backend.Joins[0].Password)
	})

	t.Run("password flag", func(t *testing.T) {
		mgr, backend, _ := newTestManager(t, wifi.Network{SSID: "Home", Security: "WPA2"})

		require.NoError(t, runConnect(ctx, &bytes.Buffer{}, "Home", "flagged", noPrompt(t), mgr))
		assert.Zero(t, backend.SecretCalls)
		assert.Equal(t, "flagged", backend.Joins[0].Password)
	})

	t.Run("prompted password", func(t *testing.T) {
		mgr, backend, _ := newTestManager(t, wifi.Network{SSID: "Home", Security: "WPA2"})
		var asked string
		prompt := func(ssid string) (string, error) {
			asked = ssid
			return "typed", nil
		}

		require.NoError(t, runConnect(ctx, &bytes.Buffer{}, "Home", "", prompt, mgr))
		assert.Equal(t, "Home", asked)
		assert.Equal(t, "typed", backend.Joins[0].Password)
	})

	t.Run("prompt fails", func(t *testing.T) {
		mgr, backend, _ := newTestManager(t, wifi.Network{SSID: "Home", Security: "WPA2"})
		prompt := func(string) (string, error) { return "", errors.New("no tty") }

		err := runConnect(ctx, &bytes.Buffer{}, "Home", "", prompt, mgr)
		assert.EqualError(t, err, "no tty")
		assert.Empty(t, backend.Joins)
	})

	t.Run("wrong password", func(t *testing.T) {
		mgr, backend, _ := newTestManager(t, wifi.Network{SSID: "Home", Security: "WPA2"})
		backend.Passwords["Home"] = "right"

		err := runConnect(ctx, &bytes.Buffer{}, "Home", "wrong", noPrompt(t), mgr)
		assert.ErrorIs(t, err, wifi.ErrBadCredential)
	})

	t.Run("stale stored password", func(t *testing.T) {
		mgr, backend, _ := newTestManager(t, wifi.Network{SSID: "Home", Security: "WPA2"})
		backend.Secrets["Home"] = "old"
		backend.Passwords["Home"] = "new"
		prompt := func(string) (string, error) { return "new", nil }

		require.NoError(t, runConnect(ctx, &bytes.Buffer{}, "Home", "", prompt, mgr))
		assert.Equal(t, []mock.JoinCall{{SSID: "Home", Password: "old"}, {SSID: "Home", Password: "new"}}, backend.Joins)
		assert.Equal(t, "new", backend.Secrets["Home"])
	})

	t.Run("unknown network", func(t *testing.T) {
		mgr, _, _ := newTestManager(t, wifi.Network{SSID: "Home", Security: "WPA2"})

		err := runConnect(ctx, &bytes.Buffer{}, "Elsewhere", "", noPrompt(t), mgr)
		assert.ErrorIs(t, err, wifi.ErrNotFound)
	})
}

func TestRunToggle(t *testing.T) {
	mgr, backend, _ := newTestManager(t)
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, runToggle(ctx, &buf, mgr))
	require.NoError(t, runToggle(ctx, &buf, mgr))
	assert.Equal(t, "Wi-Fi turned off\nWi-Fi turned on\n", buf.String())
	assert.True(t, backend.WirelessEnabled)

	backend.SetWirelessError = errors.New("permission denied")
	assert.Error(t, runToggle(ctx, &buf, mgr))
}

func TestRunShare(t *testing.T) {
	mgr, backend, _ := newTestManager(t,
		wifi.Network{SSID: "Home", Security: "WPA2"},
		wifi.Network{SSID: "Locked", Security: "WPA2"},
	)
	backend.Secrets["Home"] = "hunter2"
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, runShare(ctx, &buf, "Home", mgr))
	assert.NotEmpty(t, buf.String())

	err := runShare(ctx, &bytes.Buffer{}, "Locked", mgr)
	assert.ErrorIs(t, err, wifi.ErrCredentialNotFound)
}

func TestRunUsage(t *testing.T) {
	mgr, _, store := newTestManager(t)
	ctx := context.Background()
	for _, name := range []string{"Cafe", "Home", "Home", "Attic"} {
		require.NoError(t, store.Increment(ctx, name))
	}

	var buf bytes.Buffer
	require.NoError(t, runUsage(ctx, &buf, false, mgr))
	assert.Equal(t, "2\tHome\n1\tAttic\n1\tCafe\n", buf.String())

	buf.Reset()
	require.NoError(t, runUsage(ctx, &buf, true, mgr))
	var counts map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &counts))
	assert.Equal(t, map[string]int{"Home": 2, "Attic": 1, "Cafe": 1}, counts)
}
