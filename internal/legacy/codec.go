// Package legacy reads and verifies PBKDF2 records written by earlier
// releases. It never produces new legacy records; a verified legacy PIN is
// re-hashed into the current format by the caller.
package legacy

import (
	"crypto/subtle"
	"fmt"

	"github.com/Hussein-Mazeh/PinVault/internal/credential"
	"github.com/Hussein-Mazeh/PinVault/krypto"
)

// Codec decodes and verifies legacy records. The zero value is ready to use.
type Codec struct{}

// Decode parses raw vault bytes as a legacy record.
func (Codec) Decode(b []byte) (credential.Legacy, error) {
	return credential.DecodeLegacy(b)
}

// Verify re-derives the key with the record's own algorithm, iteration count
// and salt, and compares it in constant time.
func (Codec) Verify(rec credential.Legacy, candidate []byte) (bool, error) {
	if len(candidate) == 0 {
		return false, nil
	}

	derived, err := krypto.DeriveKeyPBKDF2(candidate, rec.Salt, rec.Algorithm, rec.Iterations, len(rec.DerivedKey))
	if err != nil {
		return false, fmt.Errorf("%w: %v", credential.ErrMalformedHash, err)
	}
	defer krypto.Zeroize(derived)

	return subtle.ConstantTimeCompare(derived, rec.DerivedKey) == 1, nil
}
