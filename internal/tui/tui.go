package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	wifilog "github.com/shazow/wifiman/internal/log"
	"github.com/shazow/wifiman/internal/manager"
	"github.com/shazow/wifiman/wifi"
	"github.com/shazow/wifiman/wifi/connect"
)

// Option configures the TUI model.
type Option func(*model)

// WithLogs sets where the log view reads records from.
func WithLogs(source LogSource) Option {
	return func(m *model) { m.logs = source }
}

// WithRescanInterval sets how often the list is revalidated in the
// background. ScanOff disables it.
func WithRescanInterval(d time.Duration) Option {
	return func(m *model) { m.rescan = d }
}

// The main model for our TUI application
type model struct {
	stack    *ComponentStack
	list     *ListModel
	manager  *manager.Manager
	logs     LogSource
	schedule *ScanSchedule
	rescan   time.Duration

	spinner    spinner.Model
	notice     *notice
	nextNotice int
	connecting bool
}

// NewModel creates the starting state of our application
func NewModel(mgr *manager.Manager, opts ...Option) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(CurrentTheme.Primary)

	listModel := NewListModel()
	m := &model{
		stack:   NewComponentStack(listModel),
		list:    listModel,
		manager: mgr,
		rescan:  ScanSlow,
		spinner: s,
	}
	m.schedule = NewScanSchedule(func() tea.Msg { return refreshRequestMsg{silent: true} })
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init is the first command that is run when the program starts
func (m *model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.notify(noticeProgress, "Scanning for networks...", ""),
		refreshNetworks(m.manager, false),
		m.schedule.SetSchedule(m.rescan),
	)
}

// notify replaces the current notice. Progress notices stay until replaced,
// the rest expire after noticeTTL.
func (m *model) notify(kind noticeKind, title, message string) tea.Cmd {
	m.nextNotice++
	m.notice = &notice{id: m.nextNotice, kind: kind, title: title, message: message}
	if kind == noticeProgress {
		return nil
	}
	return expireNotice(m.nextNotice)
}

// Update handles all incoming messages and updates the model accordingly
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.stack.Resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tickMsg:
		return m, m.schedule.Update(msg)
	case expireNoticeMsg:
		if m.notice != nil && m.notice.id == msg.id {
			m.notice = nil
		}
		return m, nil

	case popViewMsg:
		m.stack.Pop()
		return m, nil

	case refreshRequestMsg:
		if msg.silent {
			if m.connecting {
				return m, nil
			}
			return m, refreshNetworks(m.manager, true)
		}
		return m, tea.Batch(
			m.notify(noticeProgress, "Scanning for networks...", ""),
			refreshNetworks(m.manager, false),
		)
	case refreshedMsg:
		return m, m.applyRefresh(msg)

	case connectRequestMsg:
		if m.connecting {
			return m, m.notify(noticeFailure, "Already connecting", "")
		}
		m.connecting = true
		return m, tea.Batch(
			m.notify(noticeProgress, fmt.Sprintf("Connecting to %s...", msg.network.SSID), ""),
			connectNetwork(m.manager, msg.network),
		)
	case TransitionMsg:
		switch msg.To {
		case connect.StateResolvingCredential:
			return m, m.notify(noticeProgress, "Getting saved password...", "")
		case connect.StateJoining:
			return m, m.notify(noticeProgress, fmt.Sprintf("Connecting to %s...", msg.SSID), "")
		}
		return m, nil
	case credentialMsg:
		m.connecting = true
		return m, tea.Batch(
			m.notify(noticeProgress, fmt.Sprintf("Connecting to %s...", msg.network.SSID), ""),
			connectWithCredential(m.manager, msg.network, msg.password),
		)
	case credentialAbandonedMsg:
		m.connecting = false
		m.notice = nil
		return m, nil
	case connectedMsg:
		return m, m.applyConnect(msg)

	case toggleRadioMsg:
		return m, tea.Batch(
			m.notify(noticeProgress, "Toggling Wi-Fi...", ""),
			toggleRadio(m.manager),
		)
	case radioToggledMsg:
		if msg.err != nil {
			return m, m.notify(noticeFailure, "Failed to toggle Wi-Fi", msg.err.Error())
		}
		title := "Wi-Fi turned off"
		if msg.on {
			title = "Wi-Fi turned on"
		}
		return m, tea.Batch(m.notify(noticeSuccess, title, ""), refreshNetworks(m.manager, true))

	case shareRequestMsg:
		return m, loadSecret(m.manager, msg.network)
	case secretLoadedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, wifi.ErrCredentialNotFound) {
				return m, m.notify(noticeFailure, fmt.Sprintf("No saved password for %s", msg.network.SSID), "")
			}
			return m, m.notify(noticeFailure, "Failed to get password", msg.err.Error())
		}
		return m, m.stack.Push(NewShareModel(msg.network, msg.secret))
	case showLogsMsg:
		return m, m.stack.Push(NewLogViewModel(m.logs))

	case wifilog.LogMsg:
		if msg.Level >= slog.LevelWarn {
			kind := noticeInfo
			if msg.Level >= slog.LevelError {
				kind = noticeFailure
			}
			return m, m.notify(kind, msg.Message, "")
		}
		return m, nil
	}

	// Delegate to the component on the stack
	return m, m.stack.Update(msg)
}

func (m *model) applyRefresh(msg refreshedMsg) tea.Cmd {
	if msg.err != nil {
		m.list.SetFailed()
		if msg.silent {
			return nil
		}
		cmds := []tea.Cmd{m.notify(noticeFailure, "Failed to scan for networks", msg.err.Error())}
		if len(m.list.networks) == 0 {
			cmds = append(cmds, m.stack.Push(NewErrorModel(msg.err)))
		}
		return tea.Batch(cmds...)
	}

	_, disabledOnTop := m.stack.Top().(*WirelessDisabledModel)
	if msg.listing.RadioOff {
		cmd := m.list.SetNetworks(nil)
		if !disabledOnTop {
			cmd = tea.Batch(cmd, m.stack.Push(NewWirelessDisabledModel()))
		}
		if !msg.silent {
			cmd = tea.Batch(cmd, m.notify(noticeInfo, "Wi-Fi is turned off", ""))
		}
		return cmd
	}
	if disabledOnTop {
		m.stack.Pop()
	}

	cmd := m.list.SetNetworks(msg.listing.Networks)
	if msg.silent {
		return cmd
	}
	title := "No networks found"
	if n := len(msg.listing.Networks); n > 0 {
		title = fmt.Sprintf("Found %d networks", n)
	}
	return tea.Batch(cmd, m.notify(noticeSuccess, title, ""))
}

func (m *model) applyConnect(msg connectedMsg) tea.Cmd {
	ssid := msg.network.SSID
	switch {
	case msg.err == nil:
		m.connecting = false
		return tea.Batch(
			m.notify(noticeSuccess, fmt.Sprintf("Connected to %s", ssid), ""),
			refreshNetworks(m.manager, true),
		)
	case errors.Is(msg.err, wifi.ErrCredentialRequired):
		// Still connecting until the password view is submitted or abandoned.
		m.notice = nil
		return m.stack.Push(NewPasswordModel(msg.network))
	case errors.Is(msg.err, wifi.ErrBusy):
		return m.notify(noticeFailure, "Already connecting", "")
	case errors.Is(msg.err, wifi.ErrBadCredential):
		// Ask again; the attempt stays open until the view is submitted or abandoned.
		return tea.Batch(
			m.notify(noticeFailure, fmt.Sprintf("Failed to connect to %s", ssid), failureReason(msg.err)),
			m.stack.Push(NewPasswordModel(msg.network)),
		)
	}
	m.connecting = false
	return tea.Batch(
		m.notify(noticeFailure, fmt.Sprintf("Failed to connect to %s", ssid), failureReason(msg.err)),
		refreshNetworks(m.manager, true),
	)
}

// View renders the UI based on the current model state
func (m *model) View() string {
	var s strings.Builder
	s.WriteString(m.stack.View())
	if m.notice != nil {
		s.WriteString("\n")
		s.WriteString(lipgloss.NewStyle().MarginLeft(2).Render(m.notice.render(m.spinner.View())))
	}
	return s.String()
}

// Program runs the TUI. Send is safe to call before Run starts and after it
// returns; messages sent then are dropped. Send blocks until the event loop
// takes the message, so it must not be called from Update.
type Program struct {
	p atomic.Pointer[tea.Program]
}

// Send delivers msg to the running program, if any.
func (p *Program) Send(msg tea.Msg) {
	if tp := p.p.Load(); tp != nil {
		tp.Send(msg)
	}
}

// Run starts the TUI for mgr and blocks until it exits.
func (p *Program) Run(mgr *manager.Manager, opts ...Option) error {
	tp := tea.NewProgram(NewModel(mgr, opts...), tea.WithAltScreen())
	p.p.Store(tp)
	defer p.p.Store(nil)

	_, err := tp.Run()
	return err
}
