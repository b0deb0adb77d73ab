package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/nbutton23/zxcvbn-go"
)

// ErrPinFormat is returned when a PIN does not meet the format rules.
var ErrPinFormat = errors.New("pin does not meet format requirements")

// PinPolicy describes which PINs the CLI accepts.
type PinPolicy struct {
	MinLength int
	MaxLength int
}

// DefaultPinPolicy accepts 4 to 12 decimal digits.
func DefaultPinPolicy() PinPolicy {
	return PinPolicy{MinLength: 4, MaxLength: 12}
}

// Validate applies the format rules.
func (p PinPolicy) Validate(pin []byte) error {
	if len(pin) < p.MinLength || len(pin) > p.MaxLength {
		return fmt.Errorf("%w: must be %d to %d digits", ErrPinFormat, p.MinLength, p.MaxLength)
	}
	if !allDigits(pin) {
		return fmt.Errorf("%w: digits only", ErrPinFormat)
	}
	return nil
}

func allDigits(pin []byte) bool {
	for _, b := range pin {
		if !unicode.IsDigit(rune(b)) {
			return false
		}
	}
	return true
}

// Weakness reports why pin is trivially guessable, or "" when zxcvbn finds
// no single pattern (repeat, sequence, date, common password) covering it.
// The result is advisory; the vault stores weak PINs if asked to.
func Weakness(pin string) string {
	if pin == "" {
		return ""
	}
	res := zxcvbn.PasswordStrength(pin, nil)
	if len(res.MatchSequence) != 1 {
		return ""
	}
	m := res.MatchSequence[0]
	if m.I != 0 || m.J != len(pin)-1 || m.Pattern == "bruteforce" {
		return ""
	}
	return fmt.Sprintf("pin is a %s pattern", strings.ReplaceAll(m.Pattern, "_", " "))
}
