// Package amount provides exact fixed-point arithmetic for ledger amounts.
//
// Every amount carries 18 fractional digits. Multiplication and division
// truncate toward zero, and any result that does not fit in 256 bits (scaled)
// is reported as ErrArithmetic instead of panicking.
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"cosmossdk.io/math"
)

// Precision is the number of fractional digits carried by every amount.
const Precision = math.LegacyPrecision

// maxBitLen bounds the scaled integer behind an amount.
const maxBitLen = 256

var (
	// ErrArithmetic is returned on division by zero or overflow.
	ErrArithmetic = errors.New("arithmetic error")
	// ErrInvalidAmount is returned when a string is not a decimal amount.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Zero returns a fresh zero amount.
func Zero() math.LegacyDec {
	return math.LegacyZeroDec()
}

// One returns a fresh amount equal to 1.
func One() math.LegacyDec {
	return math.LegacyOneDec()
}

// FromInt64 returns the amount equal to v.
func FromInt64(v int64) math.LegacyDec {
	return math.LegacyNewDec(v)
}

// Parse converts a decimal string such as "1000" or "0.003".
func Parse(s string) (math.LegacyDec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.LegacyDec{}, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := math.LegacyNewDecFromStr(s)
	if err != nil {
		return math.LegacyDec{}, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	if err := checkRange(d); err != nil {
		return math.LegacyDec{}, err
	}
	return d, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) math.LegacyDec {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders an amount without trailing zeros.
func Format(d math.LegacyDec) string {
	if d.IsNil() {
		return "0"
	}
	s := d.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// IsValid reports whether d is set and non-negative.
func IsValid(d math.LegacyDec) bool {
	return !d.IsNil() && !d.IsNegative()
}

// Add returns a + b.
func Add(a, b math.LegacyDec) (math.LegacyDec, error) {
	return guard("add", func() math.LegacyDec { return a.Add(b) })
}

// Sub returns a - b.
func Sub(a, b math.LegacyDec) (math.LegacyDec, error) {
	return guard("sub", func() math.LegacyDec { return a.Sub(b) })
}

// Mul returns a * b truncated to Precision digits.
func Mul(a, b math.LegacyDec) (math.LegacyDec, error) {
	return guard("mul", func() math.LegacyDec { return a.MulTruncate(b) })
}

// Quo returns a / b truncated to Precision digits.
func Quo(a, b math.LegacyDec) (math.LegacyDec, error) {
	if b.IsZero() {
		return math.LegacyDec{}, fmt.Errorf("%w: division by zero", ErrArithmetic)
	}
	return guard("quo", func() math.LegacyDec { return a.QuoTruncate(b) })
}

// MulQuo returns a * b / c with a single truncation at the end.
func MulQuo(a, b, c math.LegacyDec) (math.LegacyDec, error) {
	if c.IsZero() {
		return math.LegacyDec{}, fmt.Errorf("%w: division by zero", ErrArithmetic)
	}
	// Scaled integers: (A*B)/C keeps the 10^18 factor of exactly one operand.
	n := new(big.Int).Mul(a.BigInt(), b.BigInt())
	n.Quo(n, c.BigInt())
	if n.BitLen() > maxBitLen {
		return math.LegacyDec{}, fmt.Errorf("%w: mulquo overflow", ErrArithmetic)
	}
	return math.LegacyNewDecFromBigIntWithPrec(n, Precision), nil
}

// CompareRatios compares a/b with c/d exactly. Denominators must be positive.
func CompareRatios(a, b, c, d math.LegacyDec) int {
	lhs := new(big.Int).Mul(a.BigInt(), d.BigInt())
	rhs := new(big.Int).Mul(c.BigInt(), b.BigInt())
	return lhs.Cmp(rhs)
}

// Min returns the smaller of a and b.
func Min(a, b math.LegacyDec) math.LegacyDec {
	if a.LT(b) {
		return a
	}
	return b
}

func guard(op string, fn func() math.LegacyDec) (d math.LegacyDec, err error) {
	defer func() {
		if r := recover(); r != nil {
			d = math.LegacyDec{}
			err = fmt.Errorf("%w: %s: %v", ErrArithmetic, op, r)
		}
	}()
	d = fn()
	if err := checkRange(d); err != nil {
		return math.LegacyDec{}, err
	}
	return d, nil
}

func checkRange(d math.LegacyDec) error {
	if d.BigInt().BitLen() > maxBitLen {
		return fmt.Errorf("%w: amount out of range", ErrArithmetic)
	}
	return nil
}
