package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// WirelessDisabledModel is shown instead of the list while the radio is off.
type WirelessDisabledModel struct{}

func NewWirelessDisabledModel() *WirelessDisabledModel {
	return &WirelessDisabledModel{}
}

func (m *WirelessDisabledModel) Init() tea.Cmd {
	return nil
}

func (m *WirelessDisabledModel) Resize(width, height int) {}

func (m *WirelessDisabledModel) IsConsumingInput() bool {
	return false
}

func (m *WirelessDisabledModel) Update(msg tea.Msg) (Component, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "t", "enter":
			return m, func() tea.Msg { return toggleRadioMsg{} }
		case "r":
			return m, func() tea.Msg { return refreshRequestMsg{} }
		case "l":
			return m, func() tea.Msg { return showLogsMsg{} }
		case "q", "esc":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *WirelessDisabledModel) View() string {
	var s strings.Builder
	s.WriteString(lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Render("Wi-Fi is turned off."))
	s.WriteString("\n\n")
	button := lipgloss.NewStyle().
		Foreground(CurrentTheme.Primary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(CurrentTheme.Border).
		Padding(0, 1).
		Render("Turn Wi-Fi on (t)")

	s.WriteString(button)
	s.WriteString("\n\n")
	s.WriteString("Press 'r' to check again, 'q' to quit.\n")
	return lipgloss.NewStyle().Margin(1, 2).Render(s.String())
}
