package krypto

import (
	"crypto/rand"
	"fmt"
	"io"
)

const (
	// SaltLengthBytes is the length of every freshly generated salt.
	SaltLengthBytes = 16
	// MinSaltLengthBytes is the shortest salt accepted from a stored record.
	MinSaltLengthBytes = 8
	// MaxSaltLengthBytes is the longest salt accepted from a stored record.
	MaxSaltLengthBytes = 64
)

// SaltGenerator produces salts from a cryptographically secure source.
// The zero value reads from crypto/rand.
type SaltGenerator struct {
	// Rand overrides the entropy source. Tests only.
	Rand io.Reader
}

// Generate returns a fresh SaltLengthBytes salt.
func (g SaltGenerator) Generate() ([]byte, error) {
	src := g.Rand
	if src == nil {
		src = rand.Reader
	}
	salt := make([]byte, SaltLengthBytes)
	if _, err := io.ReadFull(src, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// NewRandomSalt returns a cryptographically secure random salt.
func NewRandomSalt() ([]byte, error) {
	return SaltGenerator{}.Generate()
}

// Zeroize overwrites sensitive byte slices in place.
func Zeroize(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
