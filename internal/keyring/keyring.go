// Package keyring resolves the per-identity key that encrypts a vault at rest.
//
// On macOS the key lives in the login Keychain as a device-only item that is
// readable only while the device is unlocked. Elsewhere it is kept in a 0600
// key file next to the vault.
package keyring

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Hussein-Mazeh/PinVault/krypto"
	"github.com/Hussein-Mazeh/PinVault/store"
)

// ErrUnsupported signals that a platform facility is not available.
var ErrUnsupported = errors.New("not supported on this platform")

// Keyring hands out vault keys.
type Keyring interface {
	// GetOrCreateKey returns the 32-byte key for identity, creating it on first use.
	GetOrCreateKey(identity string) ([]byte, error)
	// DeleteKey forgets the key for identity. Missing keys are not an error.
	DeleteKey(identity string) error
}

func newKey() ([]byte, error) {
	key := make([]byte, krypto.DataKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate vault key: %w", err)
	}
	return key, nil
}

func checkIdentity(identity string) error {
	if strings.TrimSpace(identity) == "" {
		return errors.New("vault identity is required")
	}
	return store.ValidateIdentity(identity)
}

// Static returns the same key for every identity. Tests only.
type Static []byte

func (s Static) GetOrCreateKey(string) ([]byte, error) {
	if len(s) != krypto.DataKeySize {
		return nil, errors.New("static key must be 32 bytes")
	}
	return append([]byte(nil), s...), nil
}

func (Static) DeleteKey(string) error { return nil }

// PresenceGated asks the user to authenticate before every key release when
// the platform supports it.
type PresenceGated struct {
	Keyring
	Reason string
}

func (p PresenceGated) GetOrCreateKey(identity string) ([]byte, error) {
	if err := Authenticate(p.Reason); err != nil && !errors.Is(err, ErrUnsupported) {
		return nil, fmt.Errorf("user presence check: %w", err)
	}
	return p.Keyring.GetOrCreateKey(identity)
}
