// Package share renders a network's join details as a Wi-Fi QR code.
package share

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/shazow/wifiman/wifi"
)

// EscapeWifiString handles the special character escaping for SSID and Password.
func EscapeWifiString(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`;`, `\;`,
		`,`, `\,`,
		`:`, `\:`,
		`"`, `\"`,
	)
	return r.Replace(s)
}

// authType maps a security label onto the T field of the Wi-Fi QR format.
func authType(security string) string {
	switch {
	case !wifi.RequiresCredential(security):
		return "nopass"
	case strings.Contains(strings.ToLower(security), "wep"):
		return "WEP"
	}
	// WPA covers WPA2 and WPA3 personal networks too.
	return "WPA"
}

// Payload builds the WIFI: string that phone cameras understand.
func Payload(n wifi.Network, password string) string {
	var b strings.Builder
	b.WriteString("WIFI:S:")
	b.WriteString(EscapeWifiString(n.SSID))
	b.WriteString(";")

	switch t := authType(n.Security); t {
	case "nopass":
		b.WriteString("T:nopass;")
	default:
		b.WriteString("T:" + t + ";P:")
		b.WriteString(EscapeWifiString(password))
		b.WriteString(";")
	}

	b.WriteString(";")
	return b.String()
}

// QRCode returns the payload for n as a terminal-friendly QR code.
func QRCode(n wifi.Network, password string) (string, error) {
	q, err := qrcode.New(Payload(n, password), qrcode.Medium)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}
