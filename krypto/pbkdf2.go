package krypto

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"

	"golang.org/x/crypto/pbkdf2"
)

// Algorithm identifiers written by earlier releases of the vault.
const (
	PBKDF2HmacSHA1   = "PBKDF2WithHmacSHA1"
	PBKDF2HmacSHA256 = "PBKDF2WithHmacSHA256"
	PBKDF2HmacSHA512 = "PBKDF2WithHmacSHA512"

	// MaxPBKDF2Iterations bounds the work a stored record can ask for.
	MaxPBKDF2Iterations = 10_000_000
)

// ErrUnknownPBKDF2Algorithm is returned for algorithm ids outside the registry.
var ErrUnknownPBKDF2Algorithm = errors.New("unknown pbkdf2 algorithm")

var pbkdf2Registry = map[string]func() hash.Hash{
	PBKDF2HmacSHA1:   sha1.New,
	PBKDF2HmacSHA256: sha256.New,
	PBKDF2HmacSHA512: sha512.New,
}

// KnownPBKDF2Algorithm reports whether alg names a supported PRF.
func KnownPBKDF2Algorithm(alg string) bool {
	_, ok := pbkdf2Registry[alg]
	return ok
}

// DeriveKeyPBKDF2 re-derives a legacy key with the named PRF.
func DeriveKeyPBKDF2(secret, salt []byte, alg string, iterations uint32, keyLen int) ([]byte, error) {
	prf, ok := pbkdf2Registry[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPBKDF2Algorithm, alg)
	}
	if iterations == 0 || iterations > MaxPBKDF2Iterations {
		return nil, fmt.Errorf("pbkdf2 iterations must be in [1,%d], got %d", MaxPBKDF2Iterations, iterations)
	}
	if keyLen <= 0 {
		return nil, errors.New("pbkdf2 key length must be positive")
	}
	return pbkdf2.Key(secret, salt, int(iterations), keyLen, prf), nil
}
