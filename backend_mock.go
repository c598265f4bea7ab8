//go:build mock

package main

import (
	"log/slog"

	"github.com/shazow/wifiman/wifi"
	"github.com/shazow/wifiman/wifi/mock"
)

func GetBackend(logger *slog.Logger, iface string) (wifi.Backend, error) {
	logger.Debug("using mock backend", "interface", iface)
	return mock.New(), nil
}
