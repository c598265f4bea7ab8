// Package mock provides an in-memory wifi.Backend for tests and demo builds.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shazow/wifiman/wifi"
)

var DefaultActionSleep = 300 * time.Millisecond

// MockBackend is a mock implementation of the wifi.Backend interface.
type MockBackend struct {
	mu sync.Mutex

	// Visible is what Scan returns. The Connected flag is derived from Current.
	Visible []wifi.Network
	// Secrets is the fake keychain, keyed by SSID.
	Secrets map[string]string
	// Passwords, when set for an SSID, makes joins with any other non-empty
	// password report a rejection.
	Passwords map[string]string
	// Current is the connected SSID.
	Current         string
	WirelessEnabled bool
	IP              string

	// JoinConnects controls whether a join eventually changes Current. When
	// false the network never shows up as connected, which exercises timeouts.
	JoinConnects bool
	// ConnectAfterPolls delays the Current change by this many CurrentNetwork calls.
	ConnectAfterPolls int
	// AlwaysReject makes every join print the failure text, like networksetup
	// does for some joins that still go through.
	AlwaysReject bool

	ScanError           error
	JoinError           error
	CurrentNetworkError error
	SetWirelessError    error
	IsWirelessError     error

	// Recorded calls.
	Joins       []JoinCall
	Trusted     []string
	Polls       int
	SecretCalls int

	pending      string
	pendingPolls int

	// ActionSleep is a delay before every action, to better emulate a real-world backend for the frontend. Set to 0 during testing.
	ActionSleep time.Duration
}

// JoinCall records one JoinNetwork invocation.
type JoinCall struct {
	SSID     string
	Password string
}

var _ wifi.Backend = (*MockBackend)(nil)

// New creates a new MockBackend with a list of fun wifi networks.
func New() *MockBackend {
	return &MockBackend{
		Visible: []wifi.Network{
			{SSID: "HideYoKidsHideYoWiFi", Strength: 72, Security: "WPA2 Personal"},
			{SSID: "GET off my LAN", Strength: 55, Security: "WPA2 Personal"},
			{SSID: "Unencrypted_Honeypot", Strength: 90, Security: wifi.SecurityNone},
			{SSID: "Dunder MiffLAN", Strength: 40, Security: "WPA3 Personal"},
			{SSID: "Police Surveillance 2", Strength: 48, Security: "WPA2 Personal"},
			{SSID: "Password is password", Strength: 87, Security: "WPA2 Personal"},
			{SSID: "TacoBoutAGoodSignal", Strength: 99, Security: "WPA2 Personal"},
			{SSID: "I Believe Wi Can Fi", Strength: 20, Security: "WEP"},
		},
		Secrets: map[string]string{
			"Password is password": "password",
			"HideYoKidsHideYoWiFi": "hidden",
		},
		Passwords: map[string]string{
			"Password is password": "password",
			"GET off my LAN":       "getoff",
		},
		Current:         "HideYoKidsHideYoWiFi",
		WirelessEnabled: true,
		IP:              "192.168.1.42",
		JoinConnects:    true,
		ActionSleep:     DefaultActionSleep,
	}
}

// NewForTesting creates an empty MockBackend with no artificial latency.
func NewForTesting(networks ...wifi.Network) *MockBackend {
	return &MockBackend{
		Visible:         networks,
		Secrets:         map[string]string{},
		Passwords:       map[string]string{},
		WirelessEnabled: true,
		JoinConnects:    true,
	}
}

func (m *MockBackend) sleep(ctx context.Context) {
	if m.ActionSleep == 0 {
		return
	}
	select {
	case <-time.After(m.ActionSleep):
	case <-ctx.Done():
	}
}

func (m *MockBackend) IsWirelessEnabled(ctx context.Context) (bool, error) {
	m.sleep(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsWirelessError != nil {
		return false, m.IsWirelessError
	}
	return m.WirelessEnabled, nil
}

func (m *MockBackend) SetWireless(ctx context.Context, enabled bool) error {
	m.sleep(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SetWirelessError != nil {
		return m.SetWirelessError
	}
	m.WirelessEnabled = enabled
	if !enabled {
		m.Current = ""
	}
	return nil
}

func (m *MockBackend) Scan(ctx context.Context) ([]wifi.Network, error) {
	m.sleep(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.WirelessEnabled {
		return nil, nil
	}
	if m.ScanError != nil {
		return nil, m.ScanError
	}

	// Re-randomize strengths on each scan when emulating a real backend.
	var r *rand.Rand
	if m.ActionSleep > 0 {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	result := make([]wifi.Network, 0, len(m.Visible))
	for _, n := range m.Visible {
		n.Connected = n.SSID == m.Current
		if r != nil {
			n.Strength = uint8(r.Intn(70) + 30)
		}
		result = append(result, n)
	}
	return result, nil
}

func (m *MockBackend) CurrentNetwork(ctx context.Context) (string, error) {
	m.sleep(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Polls++
	if m.CurrentNetworkError != nil {
		return "", m.CurrentNetworkError
	}
	if m.pending != "" {
		if m.pendingPolls <= 0 {
			m.Current = m.pending
			m.pending = ""
		} else {
			m.pendingPolls--
		}
	}
	if !m.WirelessEnabled {
		return "", nil
	}
	return m.Current, nil
}

func (m *MockBackend) JoinNetwork(ctx context.Context, ssid string, password string) (wifi.JoinResult, error) {
	m.sleep(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Joins = append(m.Joins, JoinCall{SSID: ssid, Password: password})
	if m.JoinError != nil {
		return wifi.JoinResult{}, m.JoinError
	}
	if want, ok := m.Passwords[ssid]; ok && password != "" && password != want {
		return wifi.JoinResult{Output: fmt.Sprintf("Failed to join network %s.", ssid), Rejected: true}, nil
	}
	if m.JoinConnects {
		m.pending = ssid
		m.pendingPolls = m.ConnectAfterPolls
	}
	if m.AlwaysReject {
		return wifi.JoinResult{Output: fmt.Sprintf("Failed to join network %s.", ssid), Rejected: true}, nil
	}
	return wifi.JoinResult{}, nil
}

func (m *MockBackend) IPAddress(ctx context.Context) (string, error) {
	m.sleep(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Current == "" {
		return "", nil
	}
	return m.IP, nil
}

func (m *MockBackend) GetSecret(ctx context.Context, ssid string) (string, error) {
	m.sleep(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SecretCalls++
	if s, ok := m.Secrets[ssid]; ok && s != "" {
		return s, nil
	}
	return "", fmt.Errorf("no secret for %s: %w", ssid, wifi.ErrCredentialNotFound)
}

func (m *MockBackend) TrustSecret(ctx context.Context, ssid string, password string) {
	m.sleep(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Trusted = append(m.Trusted, ssid)
	if m.Secrets == nil {
		m.Secrets = map[string]string{}
	}
	m.Secrets[ssid] = password
}
