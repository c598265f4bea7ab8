//go:build linux

package networkmanager

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	gonetworkmanager "github.com/Wifx/gonetworkmanager/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shazow/wifiman/wifi"
)

type mockNM struct {
	gonetworkmanager.NetworkManager
	getDevicesFunc                 func() ([]gonetworkmanager.Device, error)
	getPropertyWirelessEnabledFunc func() (bool, error)

	added     []map[string]map[string]interface{}
	addErr    error
	activated []gonetworkmanager.Connection

	// saved receives the profiles AddAndActivateWirelessConnection creates.
	saved *mockSettings
}

func (m *mockNM) GetDevices() ([]gonetworkmanager.Device, error) {
	if m.getDevicesFunc != nil {
		return m.getDevicesFunc()
	}
	return nil, nil
}

func (m *mockNM) GetPropertyWirelessEnabled() (bool, error) {
	if m.getPropertyWirelessEnabledFunc != nil {
		return m.getPropertyWirelessEnabledFunc()
	}
	return true, nil
}

func (m *mockNM) AddAndActivateWirelessConnection(connection map[string]map[string]interface{}, d gonetworkmanager.Device, ap gonetworkmanager.AccessPoint) (gonetworkmanager.ActiveConnection, error) {
	m.added = append(m.added, connection)
	if m.addErr == nil && m.saved != nil {
		m.saved.connections = append(m.saved.connections, &mockConnection{settings: connection})
	}
	return nil, m.addErr
}

func (m *mockNM) ActivateWirelessConnection(c gonetworkmanager.Connection, d gonetworkmanager.Device, ap gonetworkmanager.AccessPoint) (gonetworkmanager.ActiveConnection, error) {
	m.activated = append(m.activated, c)
	return nil, nil
}

type mockDeviceWireless struct {
	gonetworkmanager.DeviceWireless
	name   string
	aps    []gonetworkmanager.AccessPoint
	active gonetworkmanager.AccessPoint
	scans  int
}

func (d *mockDeviceWireless) GetPropertyInterface() (string, error) { return d.name, nil }
func (d *mockDeviceWireless) RequestScan() error {
	d.scans++
	return errors.New("scanning not allowed immediately following previous scan")
}
func (d *mockDeviceWireless) GetAccessPoints() ([]gonetworkmanager.AccessPoint, error) {
	return d.aps, nil
}
func (d *mockDeviceWireless) GetPropertyActiveAccessPoint() (gonetworkmanager.AccessPoint, error) {
	return d.active, nil
}

type mockAP struct {
	gonetworkmanager.AccessPoint
	ssid     string
	strength uint8
	rsn      uint32
	privacy  bool
}

func (a *mockAP) GetPropertySSID() (string, error)    { return a.ssid, nil }
func (a *mockAP) GetPropertyStrength() (uint8, error) { return a.strength, nil }
func (a *mockAP) GetPropertyWPAFlags() (uint32, error) {
	return 0, nil
}
func (a *mockAP) GetPropertyRSNFlags() (uint32, error) { return a.rsn, nil }
func (a *mockAP) GetPropertyFlags() (uint32, error) {
	if a.privacy {
		return uint32(gonetworkmanager.Nm80211APFlagsPrivacy), nil
	}
	return 0, nil
}

type mockSettings struct {
	gonetworkmanager.Settings
	connections []gonetworkmanager.Connection
}

func (s *mockSettings) ListConnections() ([]gonetworkmanager.Connection, error) {
	return s.connections, nil
}

type mockConnection struct {
	gonetworkmanager.Connection
	settings gonetworkmanager.ConnectionSettings
	psk       string
	updated   gonetworkmanager.ConnectionSettings
	updateErr error
}

func (c *mockConnection) GetSettings() (gonetworkmanager.ConnectionSettings, error) {
	return c.settings, nil
}

func (c *mockConnection) GetSecrets(name string) (gonetworkmanager.ConnectionSettings, error) {
	if sec, ok := c.settings[name]; ok {
		if psk, ok := sec["psk"].(string); ok {
			return gonetworkmanager.ConnectionSettings{name: {"psk": psk}}, nil
		}
	}
	return gonetworkmanager.ConnectionSettings{name: {"psk": c.psk}}, nil
}

func (c *mockConnection) Update(settings gonetworkmanager.ConnectionSettings) error {
	if c.updateErr != nil {
		return c.updateErr
	}
	c.updated = settings
	c.settings = settings
	return nil
}

func savedConnection(ssid, psk string) *mockConnection {
	return &mockConnection{
		settings: gonetworkmanager.ConnectionSettings{
			"connection":    {"id": ssid},
			settingWireless: {"ssid": []byte(ssid)},
			"ipv6":          {"addresses": []interface{}{}, "routes": []interface{}{}, "method": "auto"},
		},
		psk: psk,
	}
}

func newTestBackend(nm *mockNM, settings *mockSettings, opts ...Option) *Backend {
	if settings == nil {
		settings = &mockSettings{}
	}
	return newBackend(nm, settings, slog.New(slog.DiscardHandler), opts...)
}

func TestGetWirelessDevice_Caching(t *testing.T) {
	callCount := 0
	mockDev := &mockDeviceWireless{name: "wlan0"}

	nm := &mockNM{
		getDevicesFunc: func() ([]gonetworkmanager.Device, error) {
			callCount++
			return []gonetworkmanager.Device{mockDev}, nil
		},
	}
	b := newTestBackend(nm, nil)

	for range 3 {
		dev, err := b.getWirelessDevice()
		require.NoError(t, err)
		assert.Equal(t, mockDev, dev)
	}
	assert.Equal(t, 1, callCount)
}

func TestGetWirelessDevice_NamedInterfaceMissing(t *testing.T) {
	callCount := 0
	nm := &mockNM{
		getDevicesFunc: func() ([]gonetworkmanager.Device, error) {
			callCount++
			return []gonetworkmanager.Device{&mockDeviceWireless{name: "wlan0"}}, nil
		},
	}
	b := newTestBackend(nm, nil, WithInterface("wlp3s0"))

	_, err := b.Scan(context.Background())
	assert.ErrorIs(t, err, wifi.ErrInterfaceNotFound)
	_, err = b.CurrentNetwork(context.Background())
	assert.ErrorIs(t, err, wifi.ErrInterfaceNotFound)
	assert.Equal(t, 1, callCount)
}

func TestScan(t *testing.T) {
	home := &mockAP{ssid: "Home", strength: 40, rsn: 0x100}
	dev := &mockDeviceWireless{
		name: "wlan0",
		aps: []gonetworkmanager.AccessPoint{
			&mockAP{ssid: "Home", strength: 80, rsn: 0x100},
			&mockAP{ssid: "Cafe", strength: 55},
			home,
			&mockAP{ssid: "", strength: 99},
			&mockAP{ssid: "Retro", strength: 20, privacy: true},
		},
		active: home,
	}
	nm := &mockNM{getDevicesFunc: func() ([]gonetworkmanager.Device, error) {
		return []gonetworkmanager.Device{dev}, nil
	}}
	b := newTestBackend(nm, nil)

	networks, err := b.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []wifi.Network{
		{SSID: "Home", Strength: 80, Security: "WPA2", Connected: true},
		{SSID: "Cafe", Strength: 55, Security: wifi.SecurityNone},
		{SSID: "Retro", Strength: 20, Security: "WEP"},
	}, networks)
	assert.Equal(t, 1, dev.scans)

	current, err := b.CurrentNetwork(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Home", current)
}

func TestScanRadioOff(t *testing.T) {
	dev := &mockDeviceWireless{name: "wlan0"}
	nm := &mockNM{
		getDevicesFunc: func() ([]gonetworkmanager.Device, error) {
			return []gonetworkmanager.Device{dev}, nil
		},
		getPropertyWirelessEnabledFunc: func() (bool, error) { return false, nil },
	}
	b := newTestBackend(nm, nil)

	networks, err := b.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, networks)
	assert.Zero(t, dev.scans)
}

func TestJoinNetwork(t *testing.T) {
	dev := &mockDeviceWireless{
		name: "wlan0",
		aps: []gonetworkmanager.AccessPoint{
			&mockAP{ssid: "Home", strength: 80, rsn: 0x100},
			&mockAP{ssid: "Office", strength: 60, rsn: 0x100},
			&mockAP{ssid: "Cafe", strength: 50},
		},
	}
	saved := savedConnection("Home", "hunter2")
	nm := &mockNM{getDevicesFunc: func() ([]gonetworkmanager.Device, error) {
		return []gonetworkmanager.Device{dev}, nil
	}}
	b := newTestBackend(nm, &mockSettings{connections: []gonetworkmanager.Connection{saved}})
	ctx := context.Background()

	t.Run("saved profile without password", func(t *testing.T) {
		_, err := b.JoinNetwork(ctx, "Home", "")
		require.NoError(t, err)
		require.Len(t, nm.activated, 1)
		assert.Equal(t, saved, nm.activated[0])
	})

	t.Run("saved profile with new password", func(t *testing.T) {
		res, err := b.JoinNetwork(ctx, "Home", "correct horse")
		require.NoError(t, err)
		assert.False(t, res.Rejected)
		assert.Empty(t, nm.added)
		assert.Equal(t, "correct horse", saved.updated[settingWirelessSecurity]["psk"])
		assert.NotContains(t, saved.updated["ipv6"], "addresses")
		assert.Equal(t, saved, nm.activated[len(nm.activated)-1])
	})

	t.Run("new profile with password", func(t *testing.T) {
		res, err := b.JoinNetwork(ctx, "Office", "correct horse")
		require.NoError(t, err)
		assert.False(t, res.Rejected)
		conn := nm.added[len(nm.added)-1]
		assert.Equal(t, "wpa-psk", conn[settingWirelessSecurity]["key-mgmt"])
		assert.Equal(t, "correct horse", conn[settingWirelessSecurity]["psk"])
		assert.Equal(t, "wlan0", conn["connection"]["interface-name"])
	})

	t.Run("open network", func(t *testing.T) {
		_, err := b.JoinNetwork(ctx, "Cafe", "")
		require.NoError(t, err)
		conn := nm.added[len(nm.added)-1]
		assert.NotContains(t, conn, settingWirelessSecurity)
	})

	t.Run("invalid key", func(t *testing.T) {
		nm.addErr = errors.New("802-11-wireless-security.psk: property is invalid")
		defer func() { nm.addErr = nil }()
		res, err := b.JoinNetwork(ctx, "Office", "short")
		require.NoError(t, err)
		assert.True(t, res.Rejected)
	})

	t.Run("invalid key for saved profile", func(t *testing.T) {
		saved.updateErr = errors.New("802-11-wireless-security.psk: property is invalid")
		defer func() { saved.updateErr = nil }()
		res, err := b.JoinNetwork(ctx, "Home", "short")
		require.NoError(t, err)
		assert.True(t, res.Rejected)
	})

	t.Run("unknown network", func(t *testing.T) {
		_, err := b.JoinNetwork(ctx, "Nowhere", "")
		assert.ErrorIs(t, err, wifi.ErrNotFound)
	})
}

func TestJoinReusesSavedProfile(t *testing.T) {
	dev := &mockDeviceWireless{
		name: "wlan0",
		aps:  []gonetworkmanager.AccessPoint{&mockAP{ssid: "Home", strength: 80, rsn: 0x100}},
	}
	settings := &mockSettings{}
	nm := &mockNM{
		getDevicesFunc: func() ([]gonetworkmanager.Device, error) {
			return []gonetworkmanager.Device{dev}, nil
		},
		saved: settings,
	}
	b := newTestBackend(nm, settings)
	ctx := context.Background()

	_, err := b.JoinNetwork(ctx, "Home", "wrong")
	require.NoError(t, err)
	_, err = b.JoinNetwork(ctx, "Home", "right")
	require.NoError(t, err)

	assert.Len(t, settings.connections, 1)
	assert.Len(t, nm.added, 1)
	assert.Len(t, nm.activated, 1)
	secret, err := b.GetSecret(ctx, "Home")
	require.NoError(t, err)
	assert.Equal(t, "right", secret)
}

func TestSecrets(t *testing.T) {
	saved := savedConnection("Home", "hunter2")
	empty := savedConnection("Guest", "")
	b := newTestBackend(&mockNM{}, &mockSettings{connections: []gonetworkmanager.Connection{saved, empty}})
	ctx := context.Background()

	secret, err := b.GetSecret(ctx, "Home")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", secret)

	for _, ssid := range []string{"Guest", "Missing"} {
		_, err := b.GetSecret(ctx, ssid)
		assert.ErrorIs(t, err, wifi.ErrCredentialNotFound, ssid)
	}

	b.TrustSecret(ctx, "Home", "new-secret")
	require.NotNil(t, saved.updated)
	assert.Equal(t, "new-secret", saved.updated[settingWirelessSecurity]["psk"])
	assert.NotContains(t, saved.updated["ipv6"], "addresses")

	// Nothing to update, nothing to report.
	b.TrustSecret(ctx, "Missing", "whatever")
}
