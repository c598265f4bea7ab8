package darwin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shazow/wifiman/wifi"
)

// joinFailureText is what networksetup prints when it refuses a join.
const joinFailureText = "Failed to join network"

// profilerReport is the subset of `system_profiler SPAirPortDataType -json`
// that we read.
type profilerReport struct {
	DataType []struct {
		Interfaces []airportInterface `json:"spairport_airport_interfaces"`
	} `json:"SPAirPortDataType"`
}

type airportInterface struct {
	// Current is an object on some macOS versions and a one-element array on others.
	Current json.RawMessage `json:"spairport_current_network_information"`
	Others  []rawNetwork    `json:"spairport_airport_other_local_wireless_networks"`
}

type rawNetwork struct {
	SSID         string          `json:"SSID"`
	Name         string          `json:"_name"`
	RSSI         json.RawMessage `json:"RSSI"`
	SignalNoise  string          `json:"spairport_signal_noise"`
	Security     string          `json:"SECURITY"`
	SecurityType string          `json:"SECURITY_TYPE"`
	SecurityMode string          `json:"spairport_security_mode"`
}

var intRe = regexp.MustCompile(`-?\d+`)

func (n rawNetwork) name() string {
	if n.SSID != "" {
		return n.SSID
	}
	return n.Name
}

// rssi reads the signal from RSSI when present, else from the first number in
// spairport_signal_noise ("-55 dBm / -95 dBm").
func (n rawNetwork) rssi() (int, bool) {
	if len(n.RSSI) > 0 && string(n.RSSI) != "null" {
		s := strings.Trim(string(n.RSSI), `"`)
		if m := intRe.FindString(s); m != "" {
			v, err := strconv.Atoi(m)
			return v, err == nil
		}
		return 0, false
	}
	if n.SignalNoise != "" {
		if m := intRe.FindString(n.SignalNoise); m != "" {
			v, err := strconv.Atoi(m)
			return v, err == nil
		}
	}
	return 0, false
}

func (n rawNetwork) security() string {
	for _, s := range []string{n.Security, n.SecurityType, n.SecurityMode} {
		if s != "" {
			return s
		}
	}
	return wifi.SecurityNone
}

func (n rawNetwork) sighting(connected bool) (wifi.Sighting, bool) {
	name := n.name()
	if name == "" {
		return wifi.Sighting{}, false
	}
	rssi, ok := n.rssi()
	if !ok {
		return wifi.Sighting{}, false
	}
	return wifi.Sighting{SSID: name, RSSI: rssi, Security: n.security(), Connected: connected}, true
}

// decodeCurrent handles both the object and the array form of the current
// network block. A missing or empty block returns ok=false.
func decodeCurrent(raw json.RawMessage) (rawNetwork, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return rawNetwork{}, false, nil
	}
	if raw[0] == '[' {
		var list []rawNetwork
		if err := json.Unmarshal(raw, &list); err != nil {
			return rawNetwork{}, false, err
		}
		if len(list) == 0 {
			return rawNetwork{}, false, nil
		}
		return list[0], true, nil
	}
	var n rawNetwork
	if err := json.Unmarshal(raw, &n); err != nil {
		return rawNetwork{}, false, err
	}
	return n, true, nil
}

// parseProfilerJSON reads the first wireless interface out of a system_profiler
// report. Missing keys produce no networks rather than an error.
func parseProfilerJSON(data []byte) (current *rawNetwork, others []rawNetwork, err error) {
	var report profilerReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, nil, fmt.Errorf("system_profiler output: %w: %v", wifi.ErrParseFailed, err)
	}
	if len(report.DataType) == 0 || len(report.DataType[0].Interfaces) == 0 {
		return nil, nil, nil
	}
	iface := report.DataType[0].Interfaces[0]
	cur, ok, err := decodeCurrent(iface.Current)
	if err != nil {
		return nil, nil, fmt.Errorf("current network information: %w: %v", wifi.ErrParseFailed, err)
	}
	if ok {
		current = &cur
	}
	return current, iface.Others, nil
}

// parseScan turns a system_profiler report into de-duplicated networks.
func parseScan(data []byte) ([]wifi.Network, error) {
	current, others, err := parseProfilerJSON(data)
	if err != nil {
		return nil, err
	}
	var sightings []wifi.Sighting
	if current != nil {
		if s, ok := current.sighting(true); ok {
			sightings = append(sightings, s)
		}
	}
	for _, n := range others {
		if s, ok := n.sighting(false); ok {
			sightings = append(sightings, s)
		}
	}
	return wifi.Reconcile(sightings), nil
}

// parseCurrentNetwork returns the connected SSID from a system_profiler report.
func parseCurrentNetwork(data []byte) (string, error) {
	current, _, err := parseProfilerJSON(data)
	if err != nil {
		return "", err
	}
	if current == nil {
		return "", nil
	}
	return current.name(), nil
}

// isPowerOn parses `networksetup -getairportpower`, e.g. "Wi-Fi Power (en0): On".
func isPowerOn(output string) bool {
	return strings.Contains(output, "On")
}

// parseJoinOutput inspects what `networksetup -setairportnetwork` printed.
func parseJoinOutput(output string) wifi.JoinResult {
	return wifi.JoinResult{
		Output:   strings.TrimSpace(output),
		Rejected: strings.Contains(output, joinFailureText),
	}
}

// findWifiDevice parses the output of `networksetup -listallhardwareports` to find the Wi-Fi device.
func findWifiDevice(output string) (string, error) {
	// The output is a series of stanzas, separated by blank lines.
	// Each stanza describes a hardware port.
	stanzas := strings.Split(output, "\n\n")
	for _, stanza := range stanzas {
		var device string
		isWifiPort := false
		for _, line := range strings.Split(stanza, "\n") {
			line = strings.TrimSpace(line)
			if port, ok := strings.CutPrefix(line, "Hardware Port: "); ok {
				if strings.Contains(port, "Wi-Fi") || strings.Contains(port, "AirPort") {
					isWifiPort = true
				}
			}
			if d, ok := strings.CutPrefix(line, "Device: "); ok {
				device = d
			}
		}
		if isWifiPort && device != "" {
			return device, nil
		}
	}
	return "", fmt.Errorf("no Wi-Fi hardware port listed: %w", wifi.ErrInterfaceNotFound)
}
