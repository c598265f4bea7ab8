// Package manager glues a wifi.Backend, the usage store and the connection
// workflow into the operations the TUI and CLI expose.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shazow/wifiman/usage"
	"github.com/shazow/wifiman/wifi"
	"github.com/shazow/wifiman/wifi/connect"
)

// DefaultRadioSettle is how long ToggleRadio waits after turning the radio on,
// so the next scan has something to find.
const DefaultRadioSettle = time.Second

// Listing is the result of one refresh.
type Listing struct {
	Networks []wifi.RankedNetwork
	// RadioOff is set when the radio is disabled; Networks is empty then.
	RadioOff bool
}

// Manager runs listing, connection and radio operations against one backend.
type Manager struct {
	backend  wifi.Backend
	usage    *usage.Store
	workflow *connect.Workflow
	logger   *slog.Logger
	settle   time.Duration
	sleep    func(context.Context, time.Duration) error

	connectOpts []connect.Option
}

// Option configures a Manager.
type Option func(*Manager)

// WithRadioSettle overrides the wait after turning the radio on. Zero disables it.
func WithRadioSettle(d time.Duration) Option {
	return func(m *Manager) { m.settle = d }
}

// WithConnectOptions passes options through to the connection workflow.
func WithConnectOptions(opts ...connect.Option) Option {
	return func(m *Manager) { m.connectOpts = append(m.connectOpts, opts...) }
}

func New(backend wifi.Backend, store *usage.Store, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		backend: backend,
		usage:   store,
		logger:  logger,
		settle:  DefaultRadioSettle,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.workflow = connect.New(backend, store, logger, m.connectOpts...)
	return m
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh checks the radio and, when it is on, scans, loads usage counts and
// looks up the interface address concurrently. Only a scan failure fails the
// refresh; missing counts or address degrade to zero values.
func (m *Manager) Refresh(ctx context.Context) (Listing, error) {
	enabled, err := m.backend.IsWirelessEnabled(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("checking radio: %w", err)
	}
	if !enabled {
		return Listing{RadioOff: true}, nil
	}

	var (
		networks []wifi.Network
		counts   map[string]int
		ip       string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		networks, err = m.backend.Scan(gctx)
		if err != nil {
			return fmt.Errorf("scanning: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		counts, err = m.usage.Counts(gctx)
		if err != nil {
			m.logger.Warn("could not load usage counts", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ip, err = m.backend.IPAddress(gctx)
		if err != nil {
			m.logger.Debug("could not read IP address", "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Listing{}, err
	}

	return Listing{Networks: wifi.Rank(networks, counts, ip)}, nil
}

// Find scans and returns the visible network named ssid.
func (m *Manager) Find(ctx context.Context, ssid string) (wifi.Network, error) {
	listing, err := m.Refresh(ctx)
	if err != nil {
		return wifi.Network{}, err
	}
	if listing.RadioOff {
		return wifi.Network{}, wifi.ErrWirelessDisabled
	}
	for _, n := range listing.Networks {
		if n.SSID == ssid {
			return n.Network, nil
		}
	}
	return wifi.Network{}, fmt.Errorf("network %q: %w", ssid, wifi.ErrNotFound)
}

// Connect starts a connection attempt. It returns an error wrapping
// wifi.ErrCredentialRequired when the user has to supply a password, after
// which the caller continues with ConnectWithCredential.
func (m *Manager) Connect(ctx context.Context, n wifi.Network) error {
	return m.workflow.Connect(ctx, n)
}

// ConnectWithCredential continues an attempt with a user-supplied password.
func (m *Manager) ConnectWithCredential(ctx context.Context, n wifi.Network, password string) error {
	return m.workflow.ConnectWithCredential(ctx, n, password)
}

// ToggleRadio flips the radio and returns the new state.
func (m *Manager) ToggleRadio(ctx context.Context) (bool, error) {
	enabled, err := m.backend.IsWirelessEnabled(ctx)
	if err != nil {
		return false, fmt.Errorf("checking radio: %w", err)
	}
	if err := m.backend.SetWireless(ctx, !enabled); err != nil {
		return enabled, fmt.Errorf("switching radio: %w", err)
	}
	if !enabled && m.settle > 0 {
		if err := m.sleep(ctx, m.settle); err != nil {
			return true, err
		}
	}
	return !enabled, nil
}

// Usage returns the persisted connection counts.
func (m *Manager) Usage(ctx context.Context) (map[string]int, error) {
	return m.usage.Counts(ctx)
}

// Secret returns the stored password for n. Open networks have none.
func (m *Manager) Secret(ctx context.Context, n wifi.Network) (string, error) {
	if !n.RequiresCredential() {
		return "", nil
	}
	return m.backend.GetSecret(ctx, n.SSID)
}
