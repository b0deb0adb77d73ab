// Package legacytest builds legacy vault records for tests. Production code
// has no way to write the legacy format.
package legacytest

import (
	"bytes"
	"testing"

	"golang.org/x/crypto/cryptobyte"

	"github.com/Hussein-Mazeh/PinVault/internal/credential"
	"github.com/Hussein-Mazeh/PinVault/krypto"
)

// Iterations is kept low so fixtures derive quickly.
const Iterations = 1000

// Encode lays out rec in the legacy wire format.
func Encode(t testing.TB, rec credential.Legacy) []byte {
	t.Helper()

	b := cryptobyte.NewBuilder(nil)
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(rec.Salt) })
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes([]byte(rec.Algorithm)) })
	b.AddUint32(rec.Iterations)
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(rec.DerivedKey) })

	out, err := b.Bytes()
	if err != nil {
		t.Fatalf("encode legacy record: %v", err)
	}
	return out
}

// Record derives a legacy record for pin with the given PRF.
func Record(t testing.TB, pin, alg string) credential.Legacy {
	t.Helper()

	salt := bytes.Repeat([]byte{0x5a}, krypto.SaltLengthBytes)
	key, err := krypto.DeriveKeyPBKDF2([]byte(pin), salt, alg, Iterations, 32)
	if err != nil {
		t.Fatalf("derive legacy key: %v", err)
	}
	return credential.Legacy{
		Salt:       salt,
		Algorithm:  alg,
		Iterations: Iterations,
		DerivedKey: key,
	}
}

// Bytes is Encode(Record(pin, PBKDF2WithHmacSHA256)).
func Bytes(t testing.TB, pin string) []byte {
	t.Helper()
	return Encode(t, Record(t, pin, krypto.PBKDF2HmacSHA256))
}
