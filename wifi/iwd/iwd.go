//go:build linux

// Package iwd drives the radio through iwd over D-Bus.
//
// iwd never hands out stored passphrases, so GetSecret always misses. Joining
// a known network with an empty password lets iwd use what it saved.
package iwd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/shazow/wifiman/wifi"
)

const (
	iwdDest                = "net.connman.iwd"
	iwdPath                = "/"
	iwdAgentManagerIface   = "net.connman.iwd.AgentManager"
	iwdAgentIface          = "net.connman.iwd.Agent"
	iwdDeviceIface         = "net.connman.iwd.Device"
	iwdNetworkIface        = "net.connman.iwd.Network"
	iwdStationIface        = "net.connman.iwd.Station"
	objectManagerIface     = "org.freedesktop.DBus.ObjectManager"
	propertiesIface        = "org.freedesktop.DBus.Properties"
	agentPath              = dbus.ObjectPath("/wifiman/agent")
	errIwdFailed           = "net.connman.iwd.Failed"
	errIwdInvalidFormat    = "net.connman.iwd.InvalidFormat"
	errIwdNotConfigured    = "net.connman.iwd.NotConfigured"
	errIwdNoAgent          = "net.connman.iwd.NoAgent"
	errIwdAgentNotAccepted = "net.connman.iwd.Agent.Error.Canceled"
)

type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// Backend implements wifi.Backend using iwd.
type Backend struct {
	conn   *dbus.Conn
	logger *slog.Logger
	iface  string

	stationOnce sync.Once
	station     dbus.ObjectPath
	deviceName  string
	stationErr  error

	// joinMu serializes agent registration.
	joinMu sync.Mutex
}

var _ wifi.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithInterface selects the station by its device name, such as wlan0.
func WithInterface(name string) Option {
	return func(b *Backend) { b.iface = name }
}

// New connects to the system bus and checks that iwd answers.
func New(logger *slog.Logger, opts ...Option) (*Backend, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to system bus: %w", wifi.ErrNotAvailable)
	}
	b := &Backend{conn: conn, logger: logger}
	for _, opt := range opts {
		opt(b)
	}
	if _, err := b.objects(context.Background()); err != nil {
		return nil, fmt.Errorf("iwd is not available: %w", wifi.ErrNotAvailable)
	}
	return b, nil
}

func (b *Backend) objects(ctx context.Context) (managedObjects, error) {
	var objs managedObjects
	err := b.conn.Object(iwdDest, iwdPath).CallWithContext(ctx, objectManagerIface+".GetManagedObjects", 0).Store(&objs)
	return objs, err
}

// findStation returns the station object whose device matches name, or the
// first station when name is empty.
func findStation(objs managedObjects, name string) (dbus.ObjectPath, string, bool) {
	for path, ifaces := range objs {
		if _, ok := ifaces[iwdStationIface]; !ok {
			continue
		}
		device, ok := ifaces[iwdDeviceIface]
		if !ok {
			continue
		}
		devName, _ := device["Name"].Value().(string)
		if name == "" || devName == name {
			return path, devName, true
		}
	}
	return "", "", false
}

func (b *Backend) getStation(ctx context.Context) (dbus.ObjectPath, error) {
	b.stationOnce.Do(func() {
		objs, err := b.objects(ctx)
		if err != nil {
			b.stationErr = fmt.Errorf("listing iwd objects: %w", err)
			return
		}
		path, name, ok := findStation(objs, b.iface)
		if !ok {
			b.stationErr = fmt.Errorf("no station device %q: %w", b.iface, wifi.ErrInterfaceNotFound)
			return
		}
		b.station, b.deviceName = path, name
	})
	return b.station, b.stationErr
}

func (b *Backend) IsWirelessEnabled(ctx context.Context) (bool, error) {
	station, err := b.getStation(ctx)
	if err != nil {
		return false, err
	}
	poweredVar, err := b.conn.Object(iwdDest, station).GetProperty(iwdDeviceIface + ".Powered")
	if err != nil {
		return false, fmt.Errorf("reading power state: %w", err)
	}
	powered, _ := poweredVar.Value().(bool)
	return powered, nil
}

func (b *Backend) SetWireless(ctx context.Context, enabled bool) error {
	station, err := b.getStation(ctx)
	if err != nil {
		return err
	}
	call := b.conn.Object(iwdDest, station).CallWithContext(ctx, propertiesIface+".Set", 0, iwdDeviceIface, "Powered", dbus.MakeVariant(enabled))
	if call.Err != nil {
		return fmt.Errorf("setting power state: %w", call.Err)
	}
	return nil
}

// securityLabel maps iwd's network type onto the labels the list shows.
func securityLabel(typ string) string {
	switch typ {
	case "open":
		return wifi.SecurityNone
	case "psk":
		return "WPA2 Personal"
	case "8021x":
		return "WPA2 Enterprise"
	case "wep":
		return "WEP"
	}
	return typ
}

type orderedNetwork struct {
	Path   dbus.ObjectPath
	Signal int16 // 100 * dBm
}

func (b *Backend) Scan(ctx context.Context) ([]wifi.Network, error) {
	enabled, err := b.IsWirelessEnabled(ctx)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, nil
	}
	station, _ := b.getStation(ctx)
	stationObj := b.conn.Object(iwdDest, station)

	// Scan returns as soon as the request is queued; a busy station refuses it.
	if err := stationObj.CallWithContext(ctx, iwdStationIface+".Scan", 0).Err; err != nil {
		b.logger.Debug("scan request refused", "error", err)
	}

	var ordered []orderedNetwork
	if err := stationObj.CallWithContext(ctx, iwdStationIface+".GetOrderedNetworks", 0).Store(&ordered); err != nil {
		return nil, fmt.Errorf("listing networks: %w", err)
	}

	sightings := make([]wifi.Sighting, 0, len(ordered))
	for _, n := range ordered {
		obj := b.conn.Object(iwdDest, n.Path)
		nameVar, err := obj.GetProperty(iwdNetworkIface + ".Name")
		if err != nil {
			continue
		}
		typeVar, _ := obj.GetProperty(iwdNetworkIface + ".Type")
		connectedVar, _ := obj.GetProperty(iwdNetworkIface + ".Connected")

		name, _ := nameVar.Value().(string)
		typ, _ := typeVar.Value().(string)
		connected, _ := connectedVar.Value().(bool)
		sightings = append(sightings, wifi.Sighting{
			SSID:      name,
			RSSI:      int(n.Signal) / 100,
			Security:  securityLabel(typ),
			Connected: connected,
		})
	}
	return wifi.Reconcile(sightings), nil
}

func (b *Backend) CurrentNetwork(ctx context.Context) (string, error) {
	station, err := b.getStation(ctx)
	if err != nil {
		return "", err
	}
	pathVar, err := b.conn.Object(iwdDest, station).GetProperty(iwdStationIface + ".ConnectedNetwork")
	if err != nil {
		// The property is absent while disconnected.
		return "", nil
	}
	path, ok := pathVar.Value().(dbus.ObjectPath)
	if !ok || path == "" {
		return "", nil
	}
	nameVar, err := b.conn.Object(iwdDest, path).GetProperty(iwdNetworkIface + ".Name")
	if err != nil {
		return "", fmt.Errorf("reading network name: %w", err)
	}
	name, _ := nameVar.Value().(string)
	return name, nil
}

func (b *Backend) findNetwork(ctx context.Context, ssid string) (dbus.ObjectPath, error) {
	objs, err := b.objects(ctx)
	if err != nil {
		return "", fmt.Errorf("listing iwd objects: %w", err)
	}
	for path, ifaces := range objs {
		network, ok := ifaces[iwdNetworkIface]
		if !ok {
			continue
		}
		if name, _ := network["Name"].Value().(string); name == ssid {
			return path, nil
		}
	}
	return "", fmt.Errorf("network %s: %w", ssid, wifi.ErrNotFound)
}

// agent answers iwd's passphrase requests for a single join.
type agent struct {
	passphrase string
}

func (a *agent) Release() *dbus.Error { return nil }

func (a *agent) RequestPassphrase(network dbus.ObjectPath) (string, *dbus.Error) {
	if a.passphrase == "" {
		return "", dbus.NewError(errIwdAgentNotAccepted, nil)
	}
	return a.passphrase, nil
}

func (a *agent) Cancel(reason string) *dbus.Error { return nil }

// JoinNetwork calls Network.Connect, which blocks until iwd is done. When a
// password is given an agent is registered for the duration of the call to
// supply it.
func (b *Backend) JoinNetwork(ctx context.Context, ssid string, password string) (wifi.JoinResult, error) {
	if _, err := b.getStation(ctx); err != nil {
		return wifi.JoinResult{}, err
	}
	path, err := b.findNetwork(ctx, ssid)
	if err != nil {
		return wifi.JoinResult{}, err
	}

	b.joinMu.Lock()
	defer b.joinMu.Unlock()

	if password != "" {
		if err := b.conn.Export(&agent{passphrase: password}, agentPath, iwdAgentIface); err != nil {
			return wifi.JoinResult{}, fmt.Errorf("exporting agent: %w", err)
		}
		defer b.conn.Export(nil, agentPath, iwdAgentIface)

		manager := b.conn.Object(iwdDest, iwdPath)
		if err := manager.CallWithContext(ctx, iwdAgentManagerIface+".RegisterAgent", 0, agentPath).Err; err != nil {
			return wifi.JoinResult{}, fmt.Errorf("registering agent: %w", err)
		}
		defer manager.Call(iwdAgentManagerIface+".UnregisterAgent", 0, agentPath)
	}

	err = b.conn.Object(iwdDest, path).CallWithContext(ctx, iwdNetworkIface+".Connect", 0).Err
	if err == nil {
		return wifi.JoinResult{}, nil
	}

	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		switch dbusErr.Name {
		case errIwdFailed, errIwdInvalidFormat, errIwdNotConfigured, errIwdNoAgent:
			return wifi.JoinResult{Output: dbusErr.Error(), Rejected: true}, nil
		}
	}
	return wifi.JoinResult{}, fmt.Errorf("connecting to %s: %w", ssid, err)
}

// IPAddress reads the address from the kernel, since iwd may leave network
// configuration to another daemon.
func (b *Backend) IPAddress(ctx context.Context) (string, error) {
	if _, err := b.getStation(ctx); err != nil {
		return "", err
	}
	ifc, err := net.InterfaceByName(b.deviceName)
	if err != nil {
		return "", nil
	}
	addrs, err := ifc.Addrs()
	if err != nil {
		return "", nil
	}
	return firstIPv4(addrs), nil
}

func firstIPv4(addrs []net.Addr) string {
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok {
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return ip4.String()
			}
		}
	}
	return ""
}

func (b *Backend) GetSecret(ctx context.Context, ssid string) (string, error) {
	return "", fmt.Errorf("iwd does not expose stored passphrases: %w", wifi.ErrCredentialNotFound)
}

// TrustSecret is a no-op: iwd saves the passphrase itself after a successful
// connection.
func (b *Backend) TrustSecret(ctx context.Context, ssid string, password string) {
	b.logger.Debug("iwd manages known networks itself", "ssid", ssid)
}
