package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shazow/wifiman/internal/manager"
	"github.com/shazow/wifiman/wifi"
	"github.com/shazow/wifiman/wifi/connect"
)

// Component is the interface for a TUI component.
type Component interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Component, tea.Cmd)
	View() string
	Resize(width, height int)
	// IsConsumingInput reports whether keys should go to a text field rather
	// than to global bindings.
	IsConsumingInput() bool
}

// networkItem is one row of the network list.
type networkItem struct {
	wifi.RankedNetwork
}

func (i networkItem) Title() string { return i.SSID }
func (i networkItem) Description() string {
	return fmt.Sprintf("%d%%", i.Strength)
}
func (i networkItem) FilterValue() string { return i.Title() }

// TransitionMsg reports a connection workflow state change. It is sent from
// the workflow observer through Program.Send.
type TransitionMsg connect.Transition

// Bubbletea messages are used to communicate between the main loop and commands
type (
	// From the manager
	refreshedMsg struct {
		listing manager.Listing
		err     error
		silent  bool
	}
	connectedMsg struct {
		network wifi.Network
		err     error
	}
	radioToggledMsg struct {
		on  bool
		err error
	}
	secretLoadedMsg struct {
		network wifi.Network
		secret  string
		err     error
	}

	// To the main model
	popViewMsg        struct{}
	refreshRequestMsg struct{ silent bool }
	connectRequestMsg struct{ network wifi.Network }
	credentialMsg     struct {
		network  wifi.Network
		password string
	}
	credentialAbandonedMsg struct{ network wifi.Network }
	toggleRadioMsg         struct{}
	shareRequestMsg        struct{ network wifi.Network }
	showLogsMsg            struct{}
)

func popView() tea.Msg { return popViewMsg{} }

// --- Commands that run manager operations ---

func refreshNetworks(m *manager.Manager, silent bool) tea.Cmd {
	return func() tea.Msg {
		listing, err := m.Refresh(context.Background())
		return refreshedMsg{listing: listing, err: err, silent: silent}
	}
}

func connectNetwork(m *manager.Manager, n wifi.Network) tea.Cmd {
	return func() tea.Msg {
		return connectedMsg{network: n, err: m.Connect(context.Background(), n)}
	}
}

func connectWithCredential(m *manager.Manager, n wifi.Network, password string) tea.Cmd {
	return func() tea.Msg {
		return connectedMsg{network: n, err: m.ConnectWithCredential(context.Background(), n, password)}
	}
}

func toggleRadio(m *manager.Manager) tea.Cmd {
	return func() tea.Msg {
		on, err := m.ToggleRadio(context.Background())
		return radioToggledMsg{on: on, err: err}
	}
}

func loadSecret(m *manager.Manager, n wifi.Network) tea.Cmd {
	return func() tea.Msg {
		secret, err := m.Secret(context.Background(), n)
		return secretLoadedMsg{network: n, secret: secret, err: err}
	}
}

// failureReason turns a workflow error into the short text shown under a
// failure notice.
func failureReason(err error) string {
	switch {
	case errors.Is(err, wifi.ErrBadCredential):
		return "Incorrect password"
	case errors.Is(err, wifi.ErrTimeout):
		return "Timed out waiting for the network"
	case errors.Is(err, wifi.ErrJoinCommandFailed):
		return "The join command failed"
	}
	msg := err.Error()
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		msg = cerr.Err.Error()
	}
	if msg == "" {
		return "Unknown error"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
