package credential

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/cryptobyte"

	"github.com/Hussein-Mazeh/PinVault/krypto"
)

const (
	// FormatTag marks a current-format record.
	FormatTag byte = 0xA2
	// ParamsVersionArgon2id is argon2id v=19 with explicit m/t/p fields.
	ParamsVersionArgon2id uint8 = 1

	minHashLen       = 16
	maxHashLen       = 64
	minLegacyKeyLen  = 16
	maxLegacyKeyLen  = 64
	maxAlgorithmName = 64
)

// EncodeCurrent serialises a current record:
//
//	u8 tag | u8 paramsVersion | u32 memoryKiB | u32 time | u8 parallelism |
//	u8 saltLen | salt | u8 hashLen | hash
func EncodeCurrent(c Current) ([]byte, error) {
	if c.ParamsVersion != ParamsVersionArgon2id {
		return nil, fmt.Errorf("unsupported params version %d", c.ParamsVersion)
	}
	if err := c.Params.Validate(); err != nil {
		return nil, err
	}
	if len(c.Salt) < krypto.MinSaltLengthBytes || len(c.Salt) > krypto.MaxSaltLengthBytes {
		return nil, fmt.Errorf("salt length %d out of range", len(c.Salt))
	}
	if len(c.Hash) < minHashLen || len(c.Hash) > maxHashLen {
		return nil, fmt.Errorf("hash length %d out of range", len(c.Hash))
	}

	b := cryptobyte.NewBuilder(nil)
	b.AddUint8(FormatTag)
	b.AddUint8(c.ParamsVersion)
	b.AddUint32(c.Params.MemoryKiB)
	b.AddUint32(c.Params.Time)
	b.AddUint8(c.Params.Parallelism)
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(c.Salt) })
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(c.Hash) })

	out, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode current record: %w", err)
	}
	return out, nil
}

// DecodeCurrent parses a current record, rejecting trailing bytes and
// out-of-range parameters.
func DecodeCurrent(b []byte) (Current, error) {
	const format = "current"
	s := cryptobyte.String(b)

	var (
		tag, version, parallelism uint8
		memory, time              uint32
		salt, hash                cryptobyte.String
	)
	if !s.ReadUint8(&tag) || tag != FormatTag {
		return Current{}, malformed(format, "missing format tag")
	}
	if !s.ReadUint8(&version) {
		return Current{}, malformed(format, "truncated params version")
	}
	if version != ParamsVersionArgon2id {
		return Current{}, malformed(format, fmt.Sprintf("unknown params version %d", version))
	}
	if !s.ReadUint32(&memory) || !s.ReadUint32(&time) || !s.ReadUint8(&parallelism) {
		return Current{}, malformed(format, "truncated parameters")
	}
	if !s.ReadUint8LengthPrefixed(&salt) {
		return Current{}, malformed(format, "truncated salt")
	}
	if !s.ReadUint8LengthPrefixed(&hash) {
		return Current{}, malformed(format, "truncated hash")
	}
	if !s.Empty() {
		return Current{}, malformed(format, "trailing bytes")
	}

	if len(salt) < krypto.MinSaltLengthBytes || len(salt) > krypto.MaxSaltLengthBytes {
		return Current{}, malformed(format, fmt.Sprintf("salt length %d", len(salt)))
	}
	if len(hash) < minHashLen || len(hash) > maxHashLen {
		return Current{}, malformed(format, fmt.Sprintf("hash length %d", len(hash)))
	}

	params := krypto.Argon2Params{
		MemoryKiB:   memory,
		Time:        time,
		Parallelism: parallelism,
		KeyLen:      uint32(len(hash)),
	}
	if err := params.Validate(); err != nil {
		return Current{}, malformed(format, err.Error())
	}

	return Current{
		ParamsVersion: version,
		Params:        params,
		Salt:          bytes.Clone(salt),
		Hash:          bytes.Clone(hash),
	}, nil
}

// DecodeLegacy parses the layout written by earlier releases:
//
//	u16 saltLen | salt | u8 algLen | algorithm | u32 iterations | u16 keyLen | key
//
// There is deliberately no encoder: legacy records are only ever read.
func DecodeLegacy(b []byte) (Legacy, error) {
	const format = "legacy"
	s := cryptobyte.String(b)

	var (
		salt, alg, key cryptobyte.String
		iterations     uint32
	)
	if !s.ReadUint16LengthPrefixed(&salt) {
		return Legacy{}, malformed(format, "truncated salt")
	}
	if !s.ReadUint8LengthPrefixed(&alg) {
		return Legacy{}, malformed(format, "truncated algorithm")
	}
	if !s.ReadUint32(&iterations) {
		return Legacy{}, malformed(format, "truncated iteration count")
	}
	if !s.ReadUint16LengthPrefixed(&key) {
		return Legacy{}, malformed(format, "truncated derived key")
	}
	if !s.Empty() {
		return Legacy{}, malformed(format, "trailing bytes")
	}

	switch {
	case len(salt) < krypto.MinSaltLengthBytes || len(salt) > krypto.MaxSaltLengthBytes:
		return Legacy{}, malformed(format, fmt.Sprintf("salt length %d", len(salt)))
	case len(alg) == 0 || len(alg) > maxAlgorithmName:
		return Legacy{}, malformed(format, "algorithm id length")
	case !krypto.KnownPBKDF2Algorithm(string(alg)):
		return Legacy{}, malformed(format, fmt.Sprintf("unknown algorithm %q", string(alg)))
	case iterations == 0 || iterations > krypto.MaxPBKDF2Iterations:
		return Legacy{}, malformed(format, fmt.Sprintf("iteration count %d", iterations))
	case len(key) < minLegacyKeyLen || len(key) > maxLegacyKeyLen:
		return Legacy{}, malformed(format, fmt.Sprintf("derived key length %d", len(key)))
	}

	return Legacy{
		Salt:       bytes.Clone(salt),
		Algorithm:  string(alg),
		Iterations: iterations,
		DerivedKey: bytes.Clone(key),
	}, nil
}
