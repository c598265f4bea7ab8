package wifi

import "context"

// JoinResult is what the join command reported about itself. It is advisory:
// callers confirm the connection independently.
type JoinResult struct {
	// Output is the raw text the join command printed.
	Output string
	// Rejected is true when the output explicitly reports a join failure.
	Rejected bool
}

// Backend defines the operations used to inspect and drive the wireless
// interface. Implementations wrap OS tools or system services.
type Backend interface {
	// IsWirelessEnabled checks if the wireless radio is enabled.
	IsWirelessEnabled(ctx context.Context) (bool, error)
	// SetWireless enables or disables the wireless radio.
	SetWireless(ctx context.Context, enabled bool) error
	// Scan returns the visible networks, de-duplicated by SSID. It returns an
	// empty list without error when the radio is off.
	Scan(ctx context.Context) ([]Network, error)
	// CurrentNetwork returns the SSID of the connected network, or "" if none.
	CurrentNetwork(ctx context.Context) (string, error)
	// JoinNetwork issues the join command. An error means the command itself
	// could not be run; a completed command is described by JoinResult.
	JoinNetwork(ctx context.Context, ssid string, password string) (JoinResult, error)
	// IPAddress returns the address of the wireless interface, or "" if none.
	IPAddress(ctx context.Context) (string, error)
	// GetSecret retrieves a stored password for the network.
	GetSecret(ctx context.Context, ssid string) (string, error)
	// TrustSecret stores the password so the OS stops prompting for it. It is
	// best-effort and reports nothing.
	TrustSecret(ctx context.Context, ssid string, password string)
}
