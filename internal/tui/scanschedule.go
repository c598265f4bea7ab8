package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	ScanOff  = 0
	ScanFast = 2 * time.Second
	ScanSlow = 8 * time.Second
)

// ScanSchedule triggers background revalidation at a regular interval.
type ScanSchedule struct {
	callback func() tea.Msg
	interval time.Duration
	// gen invalidates ticks from an earlier schedule, so changing the
	// interval never leaves two loops running.
	gen int
}

// NewScanSchedule creates a new ScanSchedule. It starts off.
func NewScanSchedule(callback func() tea.Msg) *ScanSchedule {
	return &ScanSchedule{
		callback: callback,
	}
}

// SetSchedule sets the scan interval and returns the command for the first tick.
func (s *ScanSchedule) SetSchedule(interval time.Duration) tea.Cmd {
	if interval == s.interval {
		return nil
	}
	s.interval = interval
	s.gen++
	return s.tick()
}

// Update handles messages for the ScanSchedule.
func (s *ScanSchedule) Update(msg tea.Msg) tea.Cmd {
	tick, ok := msg.(tickMsg)
	if !ok || tick.gen != s.gen || s.interval == ScanOff {
		return nil
	}
	// When we get a tick, call the callback and then schedule the next tick.
	return tea.Batch(s.callback, s.tick())
}

// internal message to trigger a tick
type tickMsg struct{ gen int }

func (s *ScanSchedule) tick() tea.Cmd {
	if s.interval == ScanOff {
		return nil
	}
	gen := s.gen
	return tea.Tick(s.interval, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}
