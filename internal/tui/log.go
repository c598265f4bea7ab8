package tui

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LogSource returns recent log records, oldest first. *log.TUIHandler
// satisfies it.
type LogSource interface {
	Logs() []slog.Record
}

// LogViewModel is the model for the log view.
type LogViewModel struct {
	source LogSource
}

// NewLogViewModel creates a new LogViewModel.
func NewLogViewModel(source LogSource) *LogViewModel {
	return &LogViewModel{source: source}
}

func (m *LogViewModel) Init() tea.Cmd {
	return nil
}

func (m *LogViewModel) Resize(width, height int) {}

func (m *LogViewModel) IsConsumingInput() bool { return false }

func (m *LogViewModel) Update(msg tea.Msg) (Component, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "l":
			return m, popView
		}
	}
	return m, nil
}

// View renders the UI based on the current model state.
func (m *LogViewModel) View() string {
	var s strings.Builder
	s.WriteString("Latest logs (press 'q' to return):\n\n")

	if m.source == nil {
		return s.String()
	}
	for _, log := range m.source.Logs() {
		var style lipgloss.Style
		switch {
		case log.Level >= slog.LevelError:
			style = lipgloss.NewStyle().Foreground(CurrentTheme.Error)
		case log.Level < slog.LevelInfo:
			style = lipgloss.NewStyle().Foreground(CurrentTheme.Subtle)
		default:
			style = lipgloss.NewStyle().Foreground(CurrentTheme.Normal)
		}
		line := fmt.Sprintf("%s [%s] %s", log.Time.Format("15:04:05"), log.Level, log.Message)
		log.Attrs(func(a slog.Attr) bool {
			line += fmt.Sprintf(" %s=%v", a.Key, a.Value.Any())
			return true
		})
		s.WriteString(style.Render(line))
		s.WriteString("\n")
	}

	return s.String()
}
