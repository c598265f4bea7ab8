package wifi

import "sort"

// SortRanked sorts networks in place for display.
// The sorting order is:
// 1. The connected network first.
// 2. Usage count, most used first.
// 3. Signal strength, strongest first.
// 4. Fallback to SSID alphabetically.
func SortRanked(networks []RankedNetwork) {
	sort.SliceStable(networks, func(i, j int) bool {
		a := networks[i]
		b := networks[j]

		if a.Connected != b.Connected {
			return a.Connected
		}
		if a.Usage != b.Usage {
			return a.Usage > b.Usage
		}
		if a.Strength != b.Strength {
			return a.Strength > b.Strength
		}
		return a.SSID < b.SSID
	})
}

// Rank merges scanned networks with usage counts and the current IP address,
// then sorts them for display. Missing counts default to zero and the address
// is only attached to the connected network.
func Rank(networks []Network, counts map[string]int, ip string) []RankedNetwork {
	ranked := make([]RankedNetwork, 0, len(networks))
	for _, n := range networks {
		r := RankedNetwork{Network: n, Usage: counts[n.SSID]}
		if n.Connected {
			r.IPAddress = ip
		}
		ranked = append(ranked, r)
	}
	SortRanked(ranked)
	return ranked
}
