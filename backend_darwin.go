//go:build darwin && !mock

package main

import (
	"log/slog"

	"github.com/shazow/wifiman/wifi"
	"github.com/shazow/wifiman/wifi/darwin"
)

func GetBackend(logger *slog.Logger, iface string) (wifi.Backend, error) {
	return darwin.New(logger, darwin.WithInterface(iface)), nil
}
