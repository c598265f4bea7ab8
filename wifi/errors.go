package wifi

import "errors"

var (
	ErrNotSupported      = errors.New("not supported")
	ErrNotFound          = errors.New("not found")
	ErrNotAvailable      = errors.New("not available")
	ErrInterfaceNotFound = errors.New("wi-fi interface not found")
	ErrCommandFailed     = errors.New("command failed")
	ErrParseFailed       = errors.New("could not parse command output")
	ErrWirelessDisabled  = errors.New("wireless is disabled")

	// Connection workflow outcomes.
	ErrCredentialNotFound = errors.New("credential not found")
	ErrCredentialRequired = errors.New("credential required")
	ErrBadCredential      = errors.New("incorrect password")
	ErrJoinCommandFailed  = errors.New("join command failed")
	ErrTimeout            = errors.New("connection timed out")
	ErrBusy               = errors.New("another connection is in progress")
)
