package wifi

import (
	"math"
	"strings"
)

// SecurityNone is the security label reported for open networks.
const SecurityNone = "None"

// Network is a single network seen in one scan.
type Network struct {
	SSID      string
	Strength  uint8 // 0-100
	Security  string
	Connected bool
}

// RequiresCredential reports whether joining the network needs a password.
func (n Network) RequiresCredential() bool {
	return RequiresCredential(n.Security)
}

// RequiresCredential reports whether a security label describes a protected
// network. Any label that does not mention "none" is treated as protected.
func RequiresCredential(security string) bool {
	return !strings.Contains(strings.ToLower(security), "none")
}

// RankedNetwork is a Network merged with its persisted usage count and, for
// the connected network only, the interface address.
type RankedNetwork struct {
	Network
	Usage     int
	IPAddress string
}

// Sighting is one raw observation of a network before de-duplication.
type Sighting struct {
	SSID      string
	RSSI      int // dBm
	Security  string
	Connected bool
}

// RSSIToStrength maps a dBm reading onto a 0-100 scale. Readings are clamped to
// [-100, -50] first, so anything at or below -100 is 0 and anything at or above
// -50 is 100.
func RSSIToStrength(rssi int) uint8 {
	clamped := max(-100, min(rssi, -50))
	return uint8(math.Round(2 * float64(clamped+100)))
}

// Reconcile collapses duplicate sightings of the same SSID into one Network.
// A connected sighting beats an unconnected one; among sightings with the same
// connection state the stronger RSSI wins, compared before clamping. Order of
// first appearance is kept. At most one returned network is marked connected.
func Reconcile(sightings []Sighting) []Network {
	kept := collapse(sightings,
		func(s Sighting) (string, bool) { return s.SSID, s.Connected },
		func(a, b Sighting) bool { return a.RSSI > b.RSSI },
	)
	networks := make([]Network, 0, len(kept))
	for _, s := range kept {
		networks = append(networks, Network{
			SSID:      s.SSID,
			Strength:  RSSIToStrength(s.RSSI),
			Security:  s.Security,
			Connected: s.Connected,
		})
	}
	return singleConnected(networks)
}

// Dedupe applies the Reconcile rules to networks whose strength is already on
// the 0-100 scale, as reported by NetworkManager and iwd.
func Dedupe(networks []Network) []Network {
	kept := collapse(networks,
		func(n Network) (string, bool) { return n.SSID, n.Connected },
		func(a, b Network) bool { return a.Strength > b.Strength },
	)
	return singleConnected(kept)
}

// collapse keeps the best item per SSID in order of first appearance. Items
// with an empty SSID are dropped.
func collapse[T any](items []T, key func(T) (ssid string, connected bool), stronger func(a, b T) bool) []T {
	best := make(map[string]T, len(items))
	var order []string
	for _, item := range items {
		ssid, connected := key(item)
		if ssid == "" {
			continue
		}
		existing, ok := best[ssid]
		if !ok {
			order = append(order, ssid)
			best[ssid] = item
			continue
		}
		_, existingConnected := key(existing)
		if connected && !existingConnected ||
			connected == existingConnected && stronger(item, existing) {
			best[ssid] = item
		}
	}

	result := make([]T, 0, len(order))
	for _, ssid := range order {
		result = append(result, best[ssid])
	}
	return result
}

// singleConnected clears Connected on every network after the first connected one.
func singleConnected(networks []Network) []Network {
	seen := false
	for i := range networks {
		if networks[i].Connected {
			networks[i].Connected = !seen
			seen = true
		}
	}
	return networks
}
