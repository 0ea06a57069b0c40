// Package money holds the fixed-point rules for posted amounts: two
// fractional digits, a ±999,999,999.99 range and banker's rounding.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits stored for every amount.
const Scale int32 = 2

// MaxMagnitude is the largest absolute amount a S9(9)V99 field can carry.
var MaxMagnitude = decimal.New(99999999999, -Scale)

var (
	ErrEmpty     = errors.New("amount is empty")
	ErrMalformed = errors.New("amount is not a decimal number")
	ErrScale     = errors.New("amount has more than two fractional digits")
	ErrRange     = errors.New("amount exceeds representable range")
)

// maxIntegerDigits is the width of the integer part of a S9(9)V99 field.
const maxIntegerDigits = 9

// Parse converts decoded amount text into a scale-2 decimal. Trailing zeros
// beyond the scale are accepted; any other extra precision is an error.
// Exponent notation is refused: a fixed-point field never carries one, and
// comparing a value with a large exponent costs memory in its size.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmpty
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	if !d.IsZero() && d.NumDigits()+int(d.Exponent()) > maxIntegerDigits {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrRange, s)
	}
	if !d.Equal(d.Truncate(Scale)) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrScale, s)
	}
	if !InRange(d) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrRange, s)
	}
	return Round(d), nil
}

// Round rounds d to Scale digits with HALF_EVEN.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Scale)
}

func InRange(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(MaxMagnitude)
}

// Format renders d with exactly Scale fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixedBank(Scale)
}
