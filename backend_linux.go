//go:build linux && !mock

package main

import (
	"log/slog"

	"github.com/shazow/wifiman/wifi"
	"github.com/shazow/wifiman/wifi/iwd"
	"github.com/shazow/wifiman/wifi/networkmanager"
)

func GetBackend(logger *slog.Logger, iface string) (wifi.Backend, error) {
	b, err := networkmanager.New(logger, networkmanager.WithInterface(iface))
	if err == nil {
		return b, nil
	}
	logger.Warn("failed to initialize networkmanager backend, falling back to iwd", "error", err)
	// If networkmanager dbus backend failed to initialize, try the iwd backend
	return iwd.New(logger, iwd.WithInterface(iface))
}
