// Package darwin drives the macOS Wi-Fi interface through networksetup,
// system_profiler, security and ipconfig.
package darwin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shazow/wifiman/wifi"
)

const (
	networksetup   = "networksetup"
	systemProfiler = "system_profiler"
	securityTool   = "security"
	ipconfig       = "ipconfig"
)

// Backend implements the wifi.Backend interface for macOS.
type Backend struct {
	runner Runner
	logger *slog.Logger

	// The interface name is kept once found. Failed discoveries are retried
	// by the next operation.
	ifaceMu sync.Mutex
	iface   string
}

var _ wifi.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithRunner replaces the command runner, mostly for tests.
func WithRunner(r Runner) Option {
	return func(b *Backend) { b.runner = r }
}

// WithInterface skips discovery and uses the given device name (e.g. en0).
func WithInterface(name string) Option {
	return func(b *Backend) { b.iface = name }
}

// New creates a new darwin.Backend. Interface discovery is deferred until the
// first operation that needs it.
func New(logger *slog.Logger, opts ...Option) *Backend {
	b := &Backend{
		runner: ExecRunner{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Interface returns the Wi-Fi device name, discovering it on first use.
func (b *Backend) Interface(ctx context.Context) (string, error) {
	b.ifaceMu.Lock()
	defer b.ifaceMu.Unlock()
	if b.iface != "" {
		return b.iface, nil
	}

	out, err := runWithOutput(ctx, b.runner, networksetup, "-listallhardwareports")
	if err != nil {
		return "", fmt.Errorf("failed to list hardware ports: %w: %w", wifi.ErrInterfaceNotFound, err)
	}
	iface, err := findWifiDevice(string(out))
	if err != nil {
		return "", err
	}
	b.logger.Debug("found wi-fi interface", "device", iface)
	b.iface = iface
	return iface, nil
}

// IsWirelessEnabled checks if the wireless radio is enabled.
func (b *Backend) IsWirelessEnabled(ctx context.Context) (bool, error) {
	iface, err := b.Interface(ctx)
	if err != nil {
		return false, err
	}
	out, err := runWithOutput(ctx, b.runner, networksetup, "-getairportpower", iface)
	if err != nil {
		return false, err
	}
	return isPowerOn(string(out)), nil
}

// SetWireless enables or disables the wireless radio.
func (b *Backend) SetWireless(ctx context.Context, enabled bool) error {
	iface, err := b.Interface(ctx)
	if err != nil {
		return err
	}
	state := "off"
	if enabled {
		state = "on"
	}
	return runOnly(ctx, b.runner, networksetup, "-setairportpower", iface, state)
}

func (b *Backend) profile(ctx context.Context) ([]byte, error) {
	return runWithOutput(ctx, b.runner, systemProfiler, "SPAirPortDataType", "-json")
}

// Scan lists visible networks. The current network and the "other local"
// networks are merged by SSID. Output that cannot be parsed yields an empty
// list, not an error.
func (b *Backend) Scan(ctx context.Context) ([]wifi.Network, error) {
	enabled, err := b.IsWirelessEnabled(ctx)
	if err != nil {
		return nil, err
	}
	if !enabled {
		b.logger.Debug("skipping scan, radio is off")
		return nil, nil
	}
	out, err := b.profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for networks: %w", err)
	}
	networks, err := parseScan(out)
	if errors.Is(err, wifi.ErrParseFailed) {
		b.logger.Warn("could not parse scan results", "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.logger.Debug("scan finished", "networks", len(networks))
	return networks, nil
}

// CurrentNetwork returns the SSID of the connected network, or "" if none.
func (b *Backend) CurrentNetwork(ctx context.Context) (string, error) {
	enabled, err := b.IsWirelessEnabled(ctx)
	if err != nil {
		return "", err
	}
	if !enabled {
		return "", nil
	}
	out, err := b.profile(ctx)
	if err != nil {
		return "", err
	}
	return parseCurrentNetwork(out)
}

// JoinNetwork runs networksetup -setairportnetwork. networksetup can exit
// cleanly while reporting a failure on stdout, so the output is returned for
// the caller to judge.
func (b *Backend) JoinNetwork(ctx context.Context, ssid string, password string) (wifi.JoinResult, error) {
	iface, err := b.Interface(ctx)
	if err != nil {
		return wifi.JoinResult{}, err
	}
	args := []string{"-setairportnetwork", iface, ssid}
	if password != "" {
		args = append(args, password)
	}
	out, stderr, err := b.runner.Run(ctx, networksetup, args...)
	if err != nil {
		// Never echo the password back into an error message.
		return wifi.JoinResult{}, fmt.Errorf("failed to connect to %s: %w: %v: %s", ssid, wifi.ErrCommandFailed, err, strings.TrimSpace(string(stderr)))
	}
	return parseJoinOutput(string(out)), nil
}

// IPAddress returns the IPv4 address of the Wi-Fi interface, or "" if it has none.
func (b *Backend) IPAddress(ctx context.Context) (string, error) {
	iface, err := b.Interface(ctx)
	if err != nil {
		return "", err
	}
	// getifaddr exits non-zero when the interface has no address.
	out, err := runWithOutput(ctx, b.runner, ipconfig, "getifaddr", iface)
	if err != nil {
		b.logger.Debug("no address for interface", "device", iface, "error", err)
		return "", nil
	}
	return strings.TrimSpace(string(out)), nil
}

// GetSecret looks up the AirPort network password in the keychain. The
// account name is the SSID.
func (b *Backend) GetSecret(ctx context.Context, ssid string) (string, error) {
	out, stderr, err := b.runner.Run(ctx, securityTool, "find-generic-password", "-wa", ssid)
	if err != nil || len(strings.TrimSpace(string(stderr))) > 0 {
		// Either missing, or the user denied the keychain prompt.
		return "", fmt.Errorf("password for %s not in keychain or access denied: %w", ssid, wifi.ErrCredentialNotFound)
	}
	password := strings.TrimSpace(string(out))
	if password == "" {
		return "", fmt.Errorf("password for %s not in keychain: %w", ssid, wifi.ErrCredentialNotFound)
	}
	return password, nil
}

// TrustSecret stores the password with /usr/bin/security on the access list so
// later lookups don't prompt. Failures are logged and otherwise ignored.
func (b *Backend) TrustSecret(ctx context.Context, ssid string, password string) {
	err := runOnly(ctx, b.runner, securityTool, "add-generic-password", "-U", "-a", ssid, "-s", ssid, "-w", password, "-T", "/usr/bin/security")
	if err != nil {
		b.logger.Debug("keychain trust registration failed", "ssid", ssid)
	}
}
