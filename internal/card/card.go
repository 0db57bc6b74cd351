// internal/card/card.go
package card

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// ErrEmptySecret is returned by Protector.Hash when given a blank value.
// Validated input never triggers it.
var ErrEmptySecret = errors.New("secret must not be empty")

// Mask replaces all but the last four characters of a card number with
// asterisks. Inputs shorter than four characters mask to the empty string.
func Mask(cardNumber string) string {
	if strings.TrimSpace(cardNumber) == "" || len(cardNumber) < 4 {
		return ""
	}
	return strings.Repeat("*", len(cardNumber)-4) + cardNumber[len(cardNumber)-4:]
}

// ValidNumber strips non-digit characters and applies the Luhn checksum.
// Card numbers must carry 13 to 19 digits.
func ValidNumber(cardNumber string) bool {
	var digits []byte
	for i := 0; i < len(cardNumber); i++ {
		if c := cardNumber[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}

	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		n := int(digits[i] - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}

	return sum%10 == 0
}

// ValidExpiry reports whether month/year is the current UTC month or later.
// Expiry is month-granular.
func ValidExpiry(month, year int) bool {
	return validExpiryAt(month, year, time.Now().UTC())
}

func validExpiryAt(month, year int, now time.Time) bool {
	if month < 1 || month > 12 {
		return false
	}
	if year < now.Year() {
		return false
	}
	if year == now.Year() && month < int(now.Month()) {
		return false
	}
	return true
}

// Protector derives display- and transport-safe forms of card data. The
// pepper is a process-wide secret supplied at construction, not per-record.
type Protector struct {
	pepper string
}

func NewProtector(pepper string) *Protector {
	return &Protector{pepper: pepper}
}

// Hash returns the base64-encoded SHA-256 digest of secret||pepper.
func (p *Protector) Hash(secret string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrEmptySecret
	}
	sum := sha256.Sum256([]byte(secret + p.pepper))
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}
