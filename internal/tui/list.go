package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shazow/wifiman/internal/manager"
	"github.com/shazow/wifiman/wifi"
)

const ssidColumnWidth = 30

var (
	connectKey = key.NewBinding(key.WithKeys("enter", "c"), key.WithHelp("enter", "connect"))
	toggleKey  = key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "toggle wi-fi"))
	refreshKey = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh"))
	shareKey   = key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "share"))
	logsKey    = key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "logs"))
	nextKey    = key.NewBinding(key.WithKeys("ctrl+j"), key.WithHelp("ctrl+j", "next"))
	prevKey    = key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "previous"))
	quitKey    = key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit"))
)

// strengthBars renders strength as four bars. Buckets are >75, >50, >25 and
// everything else.
func strengthBars(strength uint8) (filled, empty string) {
	const bars = "▂▄▆█"
	n := 1
	switch {
	case strength > 75:
		n = 4
	case strength > 50:
		n = 3
	case strength > 25:
		n = 2
	}
	runes := []rune(bars)
	return string(runes[:n]), strings.Repeat("▁", len(runes)-n)
}

// itemDelegate is our custom list delegate
type itemDelegate struct {
	list.DefaultDelegate
}

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(networkItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, listItem)
		return
	}

	icon := CurrentTheme.NetworkOpenIcon
	if i.RequiresCredential() {
		icon = CurrentTheme.NetworkSecureIcon
	}

	title := i.SSID
	if len([]rune(title)) > ssidColumnWidth {
		title = string([]rune(title)[:ssidColumnWidth-1]) + "…"
	}
	padding := strings.Repeat(" ", ssidColumnWidth-len([]rune(title)))

	titleStyle := lipgloss.NewStyle().Foreground(CurrentTheme.Normal)
	if i.Connected {
		titleStyle = lipgloss.NewStyle().Foreground(CurrentTheme.Success)
	}
	title = icon + titleStyle.Render(title) + padding

	filled, empty := strengthBars(i.Strength)
	desc := lipgloss.NewStyle().Foreground(CurrentTheme.signalColor(i.Strength)).Render(filled) +
		lipgloss.NewStyle().Foreground(CurrentTheme.Subtle).Render(empty)

	subtle := lipgloss.NewStyle().Foreground(CurrentTheme.Subtle)
	if i.Usage > 0 {
		desc += subtle.Render(fmt.Sprintf(" %3d×", i.Usage))
	} else {
		desc += "     "
	}
	if i.Connected {
		ip := i.IPAddress
		if ip == "" {
			ip = "..."
		}
		desc += subtle.Render(" (Connected) IP: " + ip)
	}

	if index == m.Index() {
		fmt.Fprint(w, lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Render("▶ ")+title+" "+desc)
		return
	}
	fmt.Fprint(w, "  "+title+" "+desc)
}

// ListModel is the ranked network list.
type ListModel struct {
	list     CustomHelpList
	cursor   manager.Cursor
	networks []wifi.RankedNetwork
	loaded   bool
	failed   bool
}

func NewListModel() *ListModel {
	m := &ListModel{}
	l := list.New([]list.Item{}, itemDelegate{}, 0, 0)
	l.Title = fmt.Sprintf("%-*s %s", ssidColumnWidth+2, CurrentTheme.TitleIcon+"Wi-Fi Network", "Signal")
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	// Make 'q' the only quit key
	l.KeyMap.Quit = quitKey
	l.AdditionalShortHelpKeys = func() []key.Binding {
		if sel, ok := m.selected(); ok && sel.Connected {
			return []key.Binding{toggleKey, refreshKey, shareKey}
		}
		return []key.Binding{connectKey, toggleKey, refreshKey, shareKey}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{nextKey, prevKey, logsKey}
	}

	// Enable the fuzzy finder
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Bold(true)
	l.Styles.FilterPrompt = lipgloss.NewStyle().Foreground(CurrentTheme.Normal)
	l.Styles.FilterCursor = lipgloss.NewStyle().Foreground(CurrentTheme.Primary)
	m.list = CustomHelpList{Model: l}
	return m
}

func (m *ListModel) Init() tea.Cmd { return nil }

func (m *ListModel) Resize(width, height int) {
	h, v := lipgloss.NewStyle().Margin(1, 2).GetFrameSize()
	bh, bv := lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true).GetFrameSize()
	// Room for the help line, the status line and the notice below the list.
	extraVerticalSpace := 6
	m.list.SetSize(max(width-h-bh, 0), max(height-v-bv-extraVerticalSpace, 0))
}

// IsConsumingInput returns whether the filter prompt is open.
func (m *ListModel) IsConsumingInput() bool {
	return m.list.FilterState() == list.Filtering
}

// SetNetworks replaces the rows. The selection stays on the same SSID when it
// is still listed and otherwise re-anchors on the connected network.
func (m *ListModel) SetNetworks(networks []wifi.RankedNetwork) tea.Cmd {
	m.loaded = true
	m.failed = false
	m.networks = networks
	items := make([]list.Item, len(networks))
	for i, n := range networks {
		items[i] = networkItem{RankedNetwork: n}
	}
	cmd := m.list.SetItems(items)
	m.cursor.Anchor(networks)
	m.syncSelection()
	return cmd
}

// SetFailed marks the last refresh as failed. Rows already shown stay.
func (m *ListModel) SetFailed() {
	m.loaded = true
	m.failed = true
}

// Selected returns the highlighted network.
func (m *ListModel) Selected() (wifi.RankedNetwork, bool) {
	return m.selected()
}

func (m *ListModel) selected() (wifi.RankedNetwork, bool) {
	item, ok := m.list.SelectedItem().(networkItem)
	if !ok {
		return wifi.RankedNetwork{}, false
	}
	return item.RankedNetwork, true
}

func (m *ListModel) visible() []wifi.RankedNetwork {
	items := m.list.VisibleItems()
	networks := make([]wifi.RankedNetwork, 0, len(items))
	for _, it := range items {
		if n, ok := it.(networkItem); ok {
			networks = append(networks, n.RankedNetwork)
		}
	}
	return networks
}

// syncSelection moves the list highlight onto the cursor's SSID.
func (m *ListModel) syncSelection() {
	if i := m.cursor.Index(m.visible()); i >= 0 {
		m.list.Select(i)
	}
}

func (m *ListModel) Update(msg tea.Msg) (Component, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, quitKey):
			return m, tea.Quit
		case key.Matches(msg, connectKey):
			sel, ok := m.selected()
			if !ok || sel.Connected {
				return m, nil
			}
			return m, func() tea.Msg { return connectRequestMsg{network: sel.Network} }
		case key.Matches(msg, toggleKey):
			return m, func() tea.Msg { return toggleRadioMsg{} }
		case key.Matches(msg, refreshKey):
			return m, func() tea.Msg { return refreshRequestMsg{} }
		case key.Matches(msg, shareKey):
			sel, ok := m.selected()
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg { return shareRequestMsg{network: sel.Network} }
		case key.Matches(msg, logsKey):
			return m, func() tea.Msg { return showLogsMsg{} }
		case key.Matches(msg, nextKey):
			m.cursor.Next(m.visible())
			m.syncSelection()
			return m, nil
		case key.Matches(msg, prevKey):
			m.cursor.Prev(m.visible())
			m.syncSelection()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	if sel, ok := m.selected(); ok {
		m.cursor.Select(sel.SSID)
	}
	return m, cmd
}

func (m *ListModel) View() string {
	var viewBuilder strings.Builder
	listBorderStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true).BorderForeground(CurrentTheme.Border)

	body := m.list.View()
	if len(m.networks) == 0 && m.loaded {
		empty := "No Wi-Fi networks found"
		if m.failed {
			empty = "Could not fetch networks"
		}
		body = m.list.Styles.Title.Render(m.list.Title) + "\n\n  " +
			lipgloss.NewStyle().Foreground(CurrentTheme.Subtle).Render(empty)
	}
	help := fmt.Sprintf("\n\n %s ", m.list.Help.View(m.list))
	viewBuilder.WriteString(listBorderStyle.Render(body + help))

	// Custom status bar
	if n := len(m.list.VisibleItems()); n > 0 {
		viewBuilder.WriteString(fmt.Sprintf("\n%d/%d", m.list.Index()+1, n))
	}
	return lipgloss.NewStyle().Margin(1, 2).Render(viewBuilder.String())
}
