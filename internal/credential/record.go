// Package credential defines the record persisted in a PIN vault and its
// binary wire formats.
//
// A record is either Current (Argon2id, produced today) or Legacy (PBKDF2,
// written by earlier releases and only ever read). Decode inspects the bytes
// and returns the matching variant so callers switch on Record.Kind instead of
// retrying parsers.
package credential

import (
	"errors"
	"fmt"

	"github.com/Hussein-Mazeh/PinVault/krypto"
)

// ErrMalformedHash is returned when bytes do not parse under the expected format.
var ErrMalformedHash = errors.New("malformed hash record")

// Kind identifies the format of a stored record.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindCurrent
	KindLegacy
)

func (k Kind) String() string {
	switch k {
	case KindCurrent:
		return "current"
	case KindLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Current is an Argon2id record. It carries every parameter needed to verify it.
type Current struct {
	ParamsVersion uint8
	Params        krypto.Argon2Params
	Salt          []byte
	Hash          []byte
}

// Legacy is a PBKDF2 record from earlier releases.
type Legacy struct {
	Salt       []byte
	Algorithm  string
	Iterations uint32
	DerivedKey []byte
}

// Record is the decoded, tagged form of the vault contents. Exactly one of
// Current or Legacy is populated, as indicated by Kind.
type Record struct {
	Kind    Kind
	Current Current
	Legacy  Legacy
}

// Decode dispatches on the leading byte. Current records start with FormatTag;
// legacy records start with the high byte of a small salt length, which is
// always zero. Anything that fails its format's parser is corrupt and reported
// as ErrMalformedHash.
func Decode(b []byte) (Record, error) {
	if len(b) == 0 {
		return Record{}, fmt.Errorf("%w: empty record", ErrMalformedHash)
	}

	if b[0] == FormatTag {
		cur, err := DecodeCurrent(b)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: KindCurrent, Current: cur}, nil
	}

	leg, err := DecodeLegacy(b)
	if err != nil {
		return Record{}, err
	}
	return Record{Kind: KindLegacy, Legacy: leg}, nil
}

func malformed(format, detail string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedHash, format, detail)
}
