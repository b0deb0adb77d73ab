package krypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDFSHA256 derives outLen bytes of key material using HKDF (RFC 5869) with SHA-256.
func HKDFSHA256(key, salt, info []byte, outLen int) ([]byte, error) {
	if len(key) == 0 {
		return nil, errors.New("hkdf input key is required")
	}
	if outLen <= 0 || outLen > 255*sha256.Size {
		return nil, errors.New("invalid hkdf length")
	}

	out := make([]byte, outLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, key, salt, info), out); err != nil {
		return nil, fmt.Errorf("hkdf expand: %w", err)
	}
	return out, nil
}
