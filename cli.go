package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/shazow/wifiman/internal/manager"
	"github.com/shazow/wifiman/internal/share"
	"github.com/shazow/wifiman/wifi"
)

// networkJSON is the machine-readable form of one listed network.
type networkJSON struct {
	SSID      string `json:"ssid"`
	Strength  uint8  `json:"strength"`
	Security  string `json:"security"`
	Connected bool   `json:"connected"`
	Usage     int    `json:"usage"`
	IPAddress string `json:"ip_address,omitempty"`
}

func formatNetwork(n wifi.RankedNetwork) string {
	parts := []string{fmt.Sprintf("%d%%", n.Strength), n.Security}
	if n.Usage > 0 {
		parts = append(parts, fmt.Sprintf("used %d times", n.Usage))
	}
	if n.Connected {
		parts = append(parts, "connected")
		if n.IPAddress != "" {
			parts = append(parts, n.IPAddress)
		}
	}
	return strings.Join(parts, ", ")
}

func runList(ctx context.Context, w io.Writer, asJSON bool, mgr *manager.Manager) error {
	listing, err := mgr.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to list networks: %w", err)
	}
	if listing.RadioOff {
		return fmt.Errorf("failed to list networks: %w", wifi.ErrWirelessDisabled)
	}

	if asJSON {
		out := make([]networkJSON, 0, len(listing.Networks))
		for _, n := range listing.Networks {
			out = append(out, networkJSON{
				SSID:      n.SSID,
				Strength:  n.Strength,
				Security:  n.Security,
				Connected: n.Connected,
				Usage:     n.Usage,
				IPAddress: n.IPAddress,
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, n := range listing.Networks {
		fmt.Fprintf(w, "%s\t%s\n", n.SSID, formatNetwork(n))
	}
	return nil
}

// passwordPrompt asks the user for the password of ssid.
type passwordPrompt func(ssid string) (string, error)

// terminalPrompt reads a password from the terminal without echo.
func terminalPrompt(ssid string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no saved password for %s, use -password: %w", ssid, wifi.ErrCredentialRequired)
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", ssid)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

func runConnect(ctx context.Context, w io.Writer, ssid, password string, prompt passwordPrompt, mgr *manager.Manager) error {
	n, err := mgr.Find(ctx, ssid)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Connecting to %s...\n", n.SSID)
	if password != "" {
		err = mgr.ConnectWithCredential(ctx, n, password)
	} else {
		err = mgr.Connect(ctx, n)
		// A stored password that no longer works is asked for again.
		if errors.Is(err, wifi.ErrCredentialRequired) || errors.Is(err, wifi.ErrBadCredential) {
			password, err = prompt(n.SSID)
			if err != nil {
				return err
			}
			err = mgr.ConnectWithCredential(ctx, n, password)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Connected to %s\n", n.SSID)
	return nil
}

func runToggle(ctx context.Context, w io.Writer, mgr *manager.Manager) error {
	on, err := mgr.ToggleRadio(ctx)
	if err != nil {
		return fmt.Errorf("failed to toggle Wi-Fi: %w", err)
	}
	if on {
		fmt.Fprintln(w, "Wi-Fi turned on")
	} else {
		fmt.Fprintln(w, "Wi-Fi turned off")
	}
	return nil
}

func runShare(ctx context.Context, w io.Writer, ssid string, mgr *manager.Manager) error {
	n, err := mgr.Find(ctx, ssid)
	if err != nil {
		return err
	}
	secret, err := mgr.Secret(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to get password for %s: %w", ssid, err)
	}
	code, err := share.QRCode(n, secret)
	if err != nil {
		return err
	}
	fmt.Fprint(w, code)
	return nil
}

func runUsage(ctx context.Context, w io.Writer, asJSON bool, mgr *manager.Manager) error {
	counts, err := mgr.Usage(ctx)
	if err != nil {
		return fmt.Errorf("failed to read usage: %w", err)
	}
	if asJSON {
		return json.NewEncoder(w).Encode(counts)
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		fmt.Fprintf(w, "%d\t%s\n", counts[name], name)
	}
	return nil
}
