package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shazow/wifiman/internal/share"
	"github.com/shazow/wifiman/wifi"
)

// ShareModel shows a QR code that joins the network when scanned.
type ShareModel struct {
	network wifi.Network
	code    string
	err     error
}

func NewShareModel(n wifi.Network, password string) *ShareModel {
	code, err := share.QRCode(n, password)
	return &ShareModel{network: n, code: code, err: err}
}

func (m *ShareModel) Init() tea.Cmd { return nil }

func (m *ShareModel) Resize(width, height int) {}

func (m *ShareModel) IsConsumingInput() bool { return false }

func (m *ShareModel) Update(msg tea.Msg) (Component, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		return m, popView
	}
	return m, nil
}

func (m *ShareModel) View() string {
	var s strings.Builder
	s.WriteString(lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Bold(true).
		Render(fmt.Sprintf("Scan to join %s", m.network.SSID)))
	s.WriteString("\n\n")
	if m.err != nil {
		s.WriteString(lipgloss.NewStyle().Foreground(CurrentTheme.Error).Render(m.err.Error()))
	} else {
		s.WriteString(m.code)
	}
	s.WriteString("\n")
	s.WriteString(lipgloss.NewStyle().Foreground(CurrentTheme.Subtle).Render("Press any key to go back."))
	return lipgloss.NewStyle().Margin(1, 2).Render(s.String())
}
