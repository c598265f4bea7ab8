package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shazow/wifiman/wifi"
)

// PasswordModel asks for the password of a network that has none stored.
type PasswordModel struct {
	network wifi.Network
	input   textinput.Model
}

func NewPasswordModel(n wifi.Network) *PasswordModel {
	ti := textinput.New()
	ti.Placeholder = "Password"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 63
	ti.Width = ssidColumnWidth
	ti.PromptStyle = lipgloss.NewStyle().Foreground(CurrentTheme.Primary)
	ti.Focus()
	return &PasswordModel{network: n, input: ti}
}

func (m *PasswordModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *PasswordModel) Resize(width, height int) {}

func (m *PasswordModel) IsConsumingInput() bool { return true }

func (m *PasswordModel) Update(msg tea.Msg) (Component, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			n, password := m.network, m.input.Value()
			return m, tea.Batch(popView, func() tea.Msg {
				return credentialMsg{network: n, password: password}
			})
		case "esc":
			n := m.network
			return m, tea.Batch(popView, func() tea.Msg {
				return credentialAbandonedMsg{network: n}
			})
		case "ctrl+r":
			if m.input.EchoMode == textinput.EchoPassword {
				m.input.EchoMode = textinput.EchoNormal
			} else {
				m.input.EchoMode = textinput.EchoPassword
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *PasswordModel) View() string {
	var s strings.Builder
	s.WriteString(lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Bold(true).
		Render(fmt.Sprintf("Password for %s", m.network.SSID)))
	s.WriteString("\n")
	s.WriteString(lipgloss.NewStyle().Foreground(CurrentTheme.Subtle).Render(m.network.Security))
	s.WriteString("\n\n")
	s.WriteString(m.input.View())
	s.WriteString("\n\n")
	s.WriteString(lipgloss.NewStyle().Foreground(CurrentTheme.Subtle).
		Render("enter connect • esc cancel • ctrl+r show/hide"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder(), true).
		BorderForeground(CurrentTheme.Border).
		Padding(1, 2)
	return lipgloss.NewStyle().Margin(1, 2).Render(box.Render(s.String()))
}
