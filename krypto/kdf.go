package krypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// MaxArgon2MemoryKiB caps the memory a stored record may request (1 GiB).
	MaxArgon2MemoryKiB = 1 << 20
	// MaxArgon2Time caps the number of passes a stored record may request.
	MaxArgon2Time = 16
	// MaxArgon2Parallelism caps the lane count a stored record may request.
	MaxArgon2Parallelism = 16

	minArgon2KeyLen = 16
	maxArgon2KeyLen = 64
)

// Argon2Params captures tunable parameters for Argon2id.
type Argon2Params struct {
	MemoryKiB   uint32
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

// DefaultArgon2Params returns the production cost parameters for PIN hashing.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryKiB:   64 * 1024,
		Time:        3,
		Parallelism: 1,
		KeyLen:      32,
	}
}

// Validate reports whether p is usable for derivation. Parameters read back
// from storage pass through here before any memory is allocated.
func (p Argon2Params) Validate() error {
	switch {
	case p.Time == 0 || p.Time > MaxArgon2Time:
		return fmt.Errorf("argon2 time must be in [1,%d], got %d", MaxArgon2Time, p.Time)
	case p.Parallelism == 0 || p.Parallelism > MaxArgon2Parallelism:
		return fmt.Errorf("argon2 parallelism must be in [1,%d], got %d", MaxArgon2Parallelism, p.Parallelism)
	case p.MemoryKiB < 8*uint32(p.Parallelism):
		return fmt.Errorf("argon2 memory must be at least %d KiB, got %d", 8*uint32(p.Parallelism), p.MemoryKiB)
	case p.MemoryKiB > MaxArgon2MemoryKiB:
		return fmt.Errorf("argon2 memory must be at most %d KiB, got %d", MaxArgon2MemoryKiB, p.MemoryKiB)
	case p.KeyLen < minArgon2KeyLen || p.KeyLen > maxArgon2KeyLen:
		return fmt.Errorf("argon2 key length must be in [%d,%d], got %d", minArgon2KeyLen, maxArgon2KeyLen, p.KeyLen)
	}
	return nil
}

// DeriveKeyArgon2id derives a key using Argon2id with the provided parameters.
func DeriveKeyArgon2id(secret []byte, salt []byte, p Argon2Params) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("secret is required")
	}
	if len(salt) < MinSaltLengthBytes {
		return nil, fmt.Errorf("salt must be at least %d bytes", MinSaltLengthBytes)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	key := argon2.IDKey(secret, salt, p.Time, p.MemoryKiB, p.Parallelism, p.KeyLen)
	if uint32(len(key)) != p.KeyLen {
		return nil, fmt.Errorf("derived key has unexpected length %d", len(key))
	}
	return key, nil
}
