//go:build linux

// Package networkmanager drives the radio through NetworkManager over D-Bus.
package networkmanager

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	gonetworkmanager "github.com/Wifx/gonetworkmanager/v3"
	"github.com/google/uuid"

	"github.com/shazow/wifiman/wifi"
)

const (
	settingWireless         = "802-11-wireless"
	settingWirelessSecurity = "802-11-wireless-security"
)

// Backend implements wifi.Backend using NetworkManager.
type Backend struct {
	NM       gonetworkmanager.NetworkManager
	Settings gonetworkmanager.Settings

	logger *slog.Logger
	iface  string

	deviceOnce sync.Once
	device     gonetworkmanager.DeviceWireless
	deviceErr  error
}

var _ wifi.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithInterface pins the backend to a named wireless device instead of the
// first one NetworkManager reports.
func WithInterface(name string) Option {
	return func(b *Backend) { b.iface = name }
}

// New connects to NetworkManager on the system bus.
func New(logger *slog.Logger, opts ...Option) (*Backend, error) {
	nm, err := gonetworkmanager.NewNetworkManager()
	if err != nil {
		return nil, fmt.Errorf("failed to create network manager client: %w", wifi.ErrNotAvailable)
	}
	settings, err := gonetworkmanager.NewSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", wifi.ErrNotAvailable)
	}
	return newBackend(nm, settings, logger, opts...), nil
}

func newBackend(nm gonetworkmanager.NetworkManager, settings gonetworkmanager.Settings, logger *slog.Logger, opts ...Option) *Backend {
	b := &Backend{NM: nm, Settings: settings, logger: logger}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// getWirelessDevice finds the wireless device once and caches the outcome,
// failure included.
func (b *Backend) getWirelessDevice() (gonetworkmanager.DeviceWireless, error) {
	b.deviceOnce.Do(func() {
		devices, err := b.NM.GetDevices()
		if err != nil {
			b.deviceErr = fmt.Errorf("listing devices: %w", err)
			return
		}
		for _, device := range devices {
			dev, ok := device.(gonetworkmanager.DeviceWireless)
			if !ok {
				continue
			}
			if b.iface != "" {
				name, err := dev.GetPropertyInterface()
				if err != nil || name != b.iface {
					continue
				}
			}
			b.device = dev
			return
		}
		b.deviceErr = fmt.Errorf("no wireless device %q: %w", b.iface, wifi.ErrInterfaceNotFound)
	})
	return b.device, b.deviceErr
}

func (b *Backend) IsWirelessEnabled(ctx context.Context) (bool, error) {
	if _, err := b.getWirelessDevice(); err != nil {
		return false, err
	}
	return b.NM.GetPropertyWirelessEnabled()
}

// SetWireless enables or disables the wireless radio.
func (b *Backend) SetWireless(ctx context.Context, enabled bool) error {
	if _, err := b.getWirelessDevice(); err != nil {
		return err
	}
	// Not all versions of NetworkManager support subscribing to signals, so we
	// can't rely on it. We'll just have to assume the change was successful.
	// See: https://github.com/Wifx/gonetworkmanager/pull/14
	return b.NM.SetPropertyWirelessEnabled(enabled)
}

func (b *Backend) Scan(ctx context.Context) ([]wifi.Network, error) {
	enabled, err := b.IsWirelessEnabled(ctx)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, nil
	}
	dev, err := b.getWirelessDevice()
	if err != nil {
		return nil, err
	}

	// NetworkManager rate-limits scan requests; the cached list is still useful.
	if err := dev.RequestScan(); err != nil {
		b.logger.Debug("scan request refused", "error", err)
	}

	accessPoints, err := dev.GetAccessPoints()
	if err != nil {
		return nil, fmt.Errorf("listing access points: %w", err)
	}
	current := b.activeSSID(dev)

	networks := make([]wifi.Network, 0, len(accessPoints))
	for _, ap := range accessPoints {
		ssid, err := ap.GetPropertySSID()
		if err != nil || ssid == "" {
			continue
		}
		strength, _ := ap.GetPropertyStrength()
		networks = append(networks, wifi.Network{
			SSID:      ssid,
			Strength:  strength,
			Security:  securityLabel(ap),
			Connected: ssid == current,
		})
	}
	return wifi.Dedupe(networks), nil
}

// securityLabel summarizes the access point flags the way nmcli does.
func securityLabel(ap gonetworkmanager.AccessPoint) string {
	flags, _ := ap.GetPropertyFlags()
	wpaFlags, _ := ap.GetPropertyWPAFlags()
	rsnFlags, _ := ap.GetPropertyRSNFlags()
	switch {
	case rsnFlags > 0:
		return "WPA2"
	case wpaFlags > 0:
		return "WPA"
	case uint32(flags)&uint32(gonetworkmanager.Nm80211APFlagsPrivacy) != 0:
		return "WEP"
	}
	return wifi.SecurityNone
}

func (b *Backend) activeSSID(dev gonetworkmanager.DeviceWireless) string {
	ap, err := dev.GetPropertyActiveAccessPoint()
	if err != nil || ap == nil {
		return ""
	}
	ssid, err := ap.GetPropertySSID()
	if err != nil {
		return ""
	}
	return ssid
}

func (b *Backend) CurrentNetwork(ctx context.Context) (string, error) {
	dev, err := b.getWirelessDevice()
	if err != nil {
		return "", err
	}
	return b.activeSSID(dev), nil
}

func (b *Backend) findAccessPoint(dev gonetworkmanager.DeviceWireless, ssid string) gonetworkmanager.AccessPoint {
	accessPoints, err := dev.GetAccessPoints()
	if err != nil {
		return nil
	}
	var best gonetworkmanager.AccessPoint
	var bestStrength uint8
	for _, ap := range accessPoints {
		name, err := ap.GetPropertySSID()
		if err != nil || name != ssid {
			continue
		}
		strength, _ := ap.GetPropertyStrength()
		if best == nil || strength > bestStrength {
			best, bestStrength = ap, strength
		}
	}
	return best
}

// JoinNetwork activates the saved profile for ssid, writing a new password
// into it first when one is given. Without a saved profile it creates one.
// Activation is asynchronous, so a bad password usually only shows up as the
// network never becoming current.
func (b *Backend) JoinNetwork(ctx context.Context, ssid string, password string) (wifi.JoinResult, error) {
	dev, err := b.getWirelessDevice()
	if err != nil {
		return wifi.JoinResult{}, err
	}
	ap := b.findAccessPoint(dev, ssid)
	if ap == nil {
		return wifi.JoinResult{}, fmt.Errorf("access point not found for %s: %w", ssid, wifi.ErrNotFound)
	}
	label := securityLabel(ap)

	if known := b.findConnection(ssid); known != nil {
		if password != "" && label != wifi.SecurityNone {
			if err := updateSecret(known, label, password); err != nil {
				return joinError(ssid, password, "updating connection", err)
			}
		}
		if _, err := b.NM.ActivateWirelessConnection(known, dev, ap); err != nil {
			return wifi.JoinResult{}, fmt.Errorf("activating %s: %w", ssid, err)
		}
		return wifi.JoinResult{}, nil
	}

	deviceInterface, _ := dev.GetPropertyInterface()
	connection := map[string]map[string]interface{}{
		"connection": {
			"id":             ssid,
			"uuid":           uuid.New().String(),
			"type":           settingWireless,
			"interface-name": deviceInterface,
			"autoconnect":    true,
		},
		settingWireless: {
			"mode": "infrastructure",
			"ssid": []byte(ssid),
		},
		"ipv4": {"method": "auto"},
		"ipv6": {"method": "auto"},
	}
	if password != "" && label != wifi.SecurityNone {
		setSecret(connection, label, password)
	}

	if _, err := b.NM.AddAndActivateWirelessConnection(connection, dev, ap); err != nil {
		return joinError(ssid, password, "adding connection", err)
	}
	return wifi.JoinResult{}, nil
}

// joinError reports a key NetworkManager refused as a rejected join; it
// validates the key format up front.
func joinError(ssid, password, action string, err error) (wifi.JoinResult, error) {
	if password != "" && strings.Contains(err.Error(), settingWirelessSecurity) {
		return wifi.JoinResult{Output: err.Error(), Rejected: true}, nil
	}
	return wifi.JoinResult{}, fmt.Errorf("%s for %s: %w", action, ssid, err)
}

// setSecret stores password in settings. An existing key-mgmt is kept so WPA3
// and WEP profiles are not rewritten as WPA-PSK.
func setSecret(settings map[string]map[string]interface{}, label, password string) {
	if settings[settingWireless] == nil {
		settings[settingWireless] = make(map[string]interface{})
	}
	settings[settingWireless]["security"] = settingWirelessSecurity
	sec := settings[settingWirelessSecurity]
	if sec == nil {
		sec = make(map[string]interface{})
		settings[settingWirelessSecurity] = sec
	}
	if label == "WEP" {
		if _, ok := sec["key-mgmt"]; !ok {
			sec["key-mgmt"] = "none"
		}
		sec["wep-key0"] = password
		return
	}
	if _, ok := sec["key-mgmt"]; !ok {
		sec["key-mgmt"] = "wpa-psk"
	}
	sec["psk"] = password
	sec["psk-flags"] = uint32(0)
}

// updateSecret writes password into a saved profile.
func updateSecret(conn gonetworkmanager.Connection, label, password string) error {
	settings, err := conn.GetSettings()
	if err != nil {
		return err
	}
	setSecret(settings, label, password)
	applyUpdateWorkaround(settings)
	return conn.Update(settings)
}

func (b *Backend) IPAddress(ctx context.Context) (string, error) {
	dev, err := b.getWirelessDevice()
	if err != nil {
		return "", err
	}
	cfg, err := dev.GetPropertyIP4Config()
	if err != nil || cfg == nil {
		return "", nil
	}
	addrs, err := cfg.GetPropertyAddressData()
	if err != nil || len(addrs) == 0 {
		return "", nil
	}
	return addrs[0].Address, nil
}

// findConnection returns the saved profile whose SSID matches, or nil.
func (b *Backend) findConnection(ssid string) gonetworkmanager.Connection {
	connections, err := b.Settings.ListConnections()
	if err != nil {
		b.logger.Debug("listing saved connections failed", "error", err)
		return nil
	}
	for _, conn := range connections {
		s, err := conn.GetSettings()
		if err != nil {
			continue
		}
		if wireless, ok := s[settingWireless]; ok {
			if ssidBytes, ok := wireless["ssid"].([]byte); ok && string(ssidBytes) == ssid {
				return conn
			}
		}
	}
	return nil
}

func (b *Backend) GetSecret(ctx context.Context, ssid string) (string, error) {
	conn := b.findConnection(ssid)
	if conn == nil {
		return "", fmt.Errorf("no saved connection for %s: %w", ssid, wifi.ErrCredentialNotFound)
	}
	secrets, err := conn.GetSecrets(settingWirelessSecurity)
	if err != nil {
		return "", fmt.Errorf("reading secrets for %s: %w: %w", ssid, wifi.ErrCredentialNotFound, err)
	}
	if s, ok := secrets[settingWirelessSecurity]; ok {
		if psk, ok := s["psk"].(string); ok && psk != "" {
			return psk, nil
		}
	}
	return "", fmt.Errorf("no password stored for %s: %w", ssid, wifi.ErrCredentialNotFound)
}

// applyUpdateWorkaround modifies the settings map to workaround D-Bus type errors.
//
// NetworkManager's D-Bus API can return ipv6.addresses and ipv6.routes as an
// array of array of variants ('aav'), but expects them as an array of structs
// on update ('a(ayuay)' for addresses and 'a(ayuayu)' for routes). Removing
// them avoids a type mismatch when writing fetched settings back.
//
// See: https://github.com/Wifx/gonetworkmanager/issues/13 and https://github.com/godbus/dbus/issues/400
func applyUpdateWorkaround(settings map[string]map[string]interface{}) {
	if ipv6Settings, ok := settings["ipv6"]; ok {
		delete(ipv6Settings, "addresses")
		delete(ipv6Settings, "routes")
	}
}

// TrustSecret writes the password into the saved profile so NetworkManager's
// agent stops asking for it. Profiles created by JoinNetwork already carry it.
func (b *Backend) TrustSecret(ctx context.Context, ssid string, password string) {
	conn := b.findConnection(ssid)
	if conn == nil {
		b.logger.Debug("no saved connection to trust", "ssid", ssid)
		return
	}
	if err := updateSecret(conn, "", password); err != nil {
		b.logger.Debug("updating connection secret failed", "ssid", ssid, "error", err)
	}
}
