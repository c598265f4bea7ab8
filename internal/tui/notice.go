package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// noticeTTL is how long a finished notice stays on screen.
const noticeTTL = 4 * time.Second

type noticeKind int

const (
	noticeInfo noticeKind = iota
	noticeSuccess
	noticeFailure
	// noticeProgress stays until another notice replaces it and shows the spinner.
	noticeProgress
)

// notice is the single status line under the current view.
type notice struct {
	id      int
	kind    noticeKind
	title   string
	message string
}

type expireNoticeMsg struct{ id int }

func (n notice) render(spinner string) string {
	style := lipgloss.NewStyle().Foreground(CurrentTheme.Primary)
	switch n.kind {
	case noticeSuccess:
		style = lipgloss.NewStyle().Foreground(CurrentTheme.Success)
	case noticeFailure:
		style = lipgloss.NewStyle().Foreground(CurrentTheme.Error)
	}
	line := style.Render(n.title)
	if n.kind == noticeProgress {
		line = spinner + " " + line
	}
	if n.message != "" {
		line += lipgloss.NewStyle().Foreground(CurrentTheme.Subtle).Render(": " + n.message)
	}
	return line
}

func expireNotice(id int) tea.Cmd {
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return expireNoticeMsg{id: id}
	})
}
