// Package store persists one opaque credential record per vault identity,
// encrypted at rest.
//
// Every backend seals records with AES-256-GCM under a data key derived with
// HKDF-SHA256 from the keyring key and the identity, and binds the identity
// as associated data so a record copied between identities fails to open.
package store

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/Hussein-Mazeh/PinVault/krypto"
)

// ErrNotFound is returned by ReadAll when no record exists.
var ErrNotFound = errors.New("vault record not found")

// Vault is an encrypted single-record store bound to one identity.
type Vault interface {
	// ReadAll returns the decrypted record or ErrNotFound.
	ReadAll() ([]byte, error)
	// WriteAll atomically replaces the record.
	WriteAll(data []byte) error
	// Delete removes the record and reports whether one existed.
	Delete() (bool, error)
	// Exists reports whether a non-empty record is present.
	Exists() (bool, error)
}

// Error wraps a backend failure with the operation and identity.
type Error struct {
	Op       string
	Identity string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "vault " + e.Op + " " + e.Identity + ": no error provided"
	}
	return "vault " + e.Op + " " + e.Identity + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

const dataKeyInfo = "pinvault-record-key-v1"

var identityPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateIdentity rejects identities that cannot be used as file or key names.
func ValidateIdentity(identity string) error {
	if !identityPattern.MatchString(identity) {
		return fmt.Errorf("invalid vault identity %q", identity)
	}
	return nil
}

type sealer struct {
	key []byte
	aad []byte
}

func newSealer(masterKey []byte, identity string) (*sealer, error) {
	if len(masterKey) != krypto.DataKeySize {
		return nil, errors.New("vault key must be 32 bytes")
	}
	dk, err := krypto.HKDFSHA256(masterKey, []byte(identity), []byte(dataKeyInfo), krypto.DataKeySize)
	if err != nil {
		return nil, fmt.Errorf("derive data key: %w", err)
	}
	return &sealer{key: dk, aad: []byte(identity)}, nil
}

func (s *sealer) seal(plaintext []byte) (nonce, ciphertext []byte, err error) {
	return krypto.EncryptAESGCM(s.key, plaintext, s.aad)
}

func (s *sealer) open(nonce, ciphertext []byte) ([]byte, error) {
	return krypto.DecryptAESGCM(s.key, nonce, ciphertext, s.aad)
}
