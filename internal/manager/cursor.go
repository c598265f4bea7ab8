package manager

import "github.com/shazow/wifiman/wifi"

// Cursor tracks the selected network by SSID across refreshes.
type Cursor struct {
	ssid string
}

// Selected returns the selected SSID, or "" when the list is empty.
func (c *Cursor) Selected() string {
	return c.ssid
}

// Select moves the selection to ssid.
func (c *Cursor) Select(ssid string) {
	c.ssid = ssid
}

// Anchor keeps the selection if it is still listed. Otherwise it moves to the
// connected network, or to the first row when nothing is connected.
func (c *Cursor) Anchor(networks []wifi.RankedNetwork) {
	if len(networks) == 0 {
		c.ssid = ""
		return
	}
	if c.ssid != "" && indexOf(networks, c.ssid) >= 0 {
		return
	}
	c.ssid = networks[0].SSID
	for _, n := range networks {
		if n.Connected {
			c.ssid = n.SSID
			return
		}
	}
}

// Next moves one row down. It stops at the last row.
func (c *Cursor) Next(networks []wifi.RankedNetwork) {
	i := indexOf(networks, c.ssid)
	if i < 0 || i >= len(networks)-1 {
		return
	}
	c.ssid = networks[i+1].SSID
}

// Prev moves one row up. It stops at the first row.
func (c *Cursor) Prev(networks []wifi.RankedNetwork) {
	i := indexOf(networks, c.ssid)
	if i <= 0 {
		return
	}
	c.ssid = networks[i-1].SSID
}

// Index returns the position of the selection in networks, or -1.
func (c *Cursor) Index(networks []wifi.RankedNetwork) int {
	return indexOf(networks, c.ssid)
}

func indexOf(networks []wifi.RankedNetwork, ssid string) int {
	for i, n := range networks {
		if n.SSID == ssid {
			return i
		}
	}
	return -1
}
