package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shazow/wifiman/wifi"
)

func TestStrengthBars(t *testing.T) {
	tests := []struct {
		strength uint8
		want     int
	}{
		{100, 4},
		{76, 4},
		{75, 3},
		{51, 3},
		{50, 2},
		{26, 2},
		{25, 1},
		{0, 1},
	}
	for _, tt := range tests {
		filled, empty := strengthBars(tt.strength)
		if got := len([]rune(filled)); got != tt.want {
			t.Errorf("strengthBars(%d) filled %d bars, want %d", tt.strength, got, tt.want)
		}
		if got := len([]rune(filled + empty)); got != 4 {
			t.Errorf("strengthBars(%d) rendered %d bars in total", tt.strength, got)
		}
	}
}

func rankedNetworks(connected string, ssids ...string) []wifi.RankedNetwork {
	var networks []wifi.RankedNetwork
	for _, s := range ssids {
		networks = append(networks, wifi.RankedNetwork{
			Network: wifi.Network{SSID: s, Strength: 50, Security: "WPA2", Connected: s == connected},
		})
	}
	return networks
}

func TestListSelectionFollowsSSID(t *testing.T) {
	m := NewListModel()
	m.Resize(100, 30)

	m.SetNetworks(rankedNetworks("B", "A", "B", "C"))
	if sel, _ := m.Selected(); sel.SSID != "B" {
		t.Fatalf("initial selection %q, want the connected network", sel.SSID)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlJ})
	if sel, _ := m.Selected(); sel.SSID != "C" {
		t.Fatalf("ctrl+j selected %q, want C", sel.SSID)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlJ})
	if sel, _ := m.Selected(); sel.SSID != "C" {
		t.Fatalf("ctrl+j wrapped to %q", sel.SSID)
	}

	// C moves to the top but stays selected.
	m.SetNetworks(rankedNetworks("B", "C", "B", "A"))
	if sel, _ := m.Selected(); sel.SSID != "C" {
		t.Fatalf("selection moved to %q after a reorder", sel.SSID)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlK})
	if sel, _ := m.Selected(); sel.SSID != "C" {
		t.Fatalf("ctrl+k wrapped to %q", sel.SSID)
	}

	// C vanishes, so the selection goes back to the connected network.
	m.SetNetworks(rankedNetworks("B", "A", "B"))
	if sel, _ := m.Selected(); sel.SSID != "B" {
		t.Fatalf("selection %q after the selected network vanished, want B", sel.SSID)
	}
}

func TestListRendersRows(t *testing.T) {
	m := NewListModel()
	m.Resize(100, 30)
	networks := rankedNetworks("Home", "Home", "Cafe")
	networks[0].IPAddress = ""
	networks[1].Usage = 7
	m.SetNetworks(networks)

	view := m.View()
	for _, want := range []string{"Home", "Cafe", "7×", "(Connected) IP: ...", "1/2"} {
		if !strings.Contains(view, want) {
			t.Errorf("view does not contain %q in\n%s", want, view)
		}
	}
}

func TestListKeysEmitRequests(t *testing.T) {
	m := NewListModel()
	m.Resize(100, 30)
	m.SetNetworks(rankedNetworks("", "Cafe"))

	tests := []struct {
		key  tea.KeyMsg
		want tea.Msg
	}{
		{tea.KeyMsg{Type: tea.KeyEnter}, connectRequestMsg{}},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")}, toggleRadioMsg{}},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")}, refreshRequestMsg{}},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")}, shareRequestMsg{}},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")}, showLogsMsg{}},
	}
	for _, tt := range tests {
		_, cmd := m.Update(tt.key)
		if cmd == nil {
			t.Errorf("%s: no command", tt.key)
			continue
		}
		got := cmd()
		switch tt.want.(type) {
		case connectRequestMsg:
			req, ok := got.(connectRequestMsg)
			if !ok || req.network.SSID != "Cafe" {
				t.Errorf("%s: got %#v", tt.key, got)
			}
		case shareRequestMsg:
			req, ok := got.(shareRequestMsg)
			if !ok || req.network.SSID != "Cafe" {
				t.Errorf("%s: got %#v", tt.key, got)
			}
		default:
			if got != tt.want {
				t.Errorf("%s: got %#v, want %#v", tt.key, got, tt.want)
			}
		}
	}
}
