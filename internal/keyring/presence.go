package keyring

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPresenceDenied means the device owner failed authentication.
	ErrPresenceDenied = errors.New("user presence denied")
	// ErrPresenceCancelled means the prompt was dismissed by the user or the system.
	ErrPresenceCancelled = errors.New("user presence prompt cancelled")
	// ErrPresenceTimeout means nobody answered the prompt in time.
	ErrPresenceTimeout = errors.New("user presence prompt timed out")
)

// PresenceTimeout bounds how long a presence prompt waits for an answer.
const PresenceTimeout = 60 * time.Second

// Result codes of the native prompt. Negative values below -99 are ours;
// anything else is a LocalAuthentication LAError code.
const (
	presenceOK          = 0
	presenceNoContext   = -100
	presenceUnavailable = -101
	presenceTimedOut    = -103
	presenceNoReply     = -104

	laAuthenticationFailed = -1
	laUserCancel           = -2
	laUserFallback         = -3
	laSystemCancel         = -4
	laAppCancel            = -9
)

// presenceError maps a native prompt result to an error. A device without
// any owner authentication configured reports ErrUnsupported so the key is
// released the same way as on platforms without a prompt.
func presenceError(code int) error {
	switch code {
	case presenceOK:
		return nil
	case presenceUnavailable:
		return fmt.Errorf("device owner authentication unavailable: %w", ErrUnsupported)
	case presenceTimedOut:
		return ErrPresenceTimeout
	case laAuthenticationFailed:
		return ErrPresenceDenied
	case laUserCancel, laUserFallback, laSystemCancel, laAppCancel:
		return ErrPresenceCancelled
	case presenceNoContext, presenceNoReply:
		return fmt.Errorf("device owner authentication failed (code %d)", code)
	default:
		return fmt.Errorf("device owner authentication failed (LAError %d)", code)
	}
}
