// Package types provides the value types shared across tokenledger.
package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest display precision a token may declare.
const MaxDecimals = 18

// MaxAmountDigits bounds the decimal digits of a parsed amount
// (2^256 has 78).
const MaxAmountDigits = 78

var (
	errNegativeAmount   = errors.New("amount must not be negative")
	errFractionalAmount = errors.New("amount must be a whole number of base units")
	errMalformedAmount  = errors.New("amount must be a string of decimal digits")
	errAmountTooLarge   = errors.New("amount has too many digits")
)

// Amount is a non-negative integer quantity of token base units.
// The zero value is a valid zero amount.
//
// Amounts are not bounded by a machine word: supplies such as
// 1000 * 10^18 are common and exceed uint64.
type Amount struct {
	d decimal.Decimal
}

// Zero returns the zero amount.
func Zero() Amount { return Amount{} }

// NewAmount creates an Amount from a uint64 number of base units.
func NewAmount(units uint64) Amount {
	return Amount{d: decimal.NewFromBigInt(new(big.Int).SetUint64(units), 0)}
}

// AmountFromBig creates an Amount from a big integer. It returns an error
// for negative values.
func AmountFromBig(v *big.Int) (Amount, error) {
	if v == nil {
		return Amount{}, nil
	}
	if v.Sign() < 0 {
		return Amount{}, errNegativeAmount
	}
	return Amount{d: decimal.NewFromBigInt(new(big.Int).Set(v), 0)}, nil
}

// ParseAmount parses a base-unit integer string such as "1000000".
// Only plain decimal digits are accepted; signs, fractions and exponent
// notation are rejected.
func ParseAmount(s string) (Amount, error) {
	if err := checkDigits(s, false); err != nil {
		return Amount{}, fmt.Errorf("types: parse amount %q: %w", s, err)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("types: parse amount %q: %w", s, errMalformedAmount)
	}
	return Amount{d: decimal.NewFromBigInt(v, 0)}, nil
}

// MustParseAmount is like ParseAmount but panics on error.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseUnits converts a human-readable quantity ("1.5") into base units
// for a token with the given decimals ("1500000000000000000" for 18).
func ParseUnits(s string, decimals uint8) (Amount, error) {
	if decimals > MaxDecimals {
		return Amount{}, fmt.Errorf("types: decimals %d out of range", decimals)
	}
	if err := checkDigits(s, true); err != nil {
		return Amount{}, fmt.Errorf("types: parse units %q: %w", s, err)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("types: parse units %q: %w", s, err)
	}
	return fromDecimal(d.Shift(int32(decimals)))
}

// checkDigits accepts at most MaxAmountDigits decimal digits with an
// optional single '.' when fraction is set.
func checkDigits(s string, fraction bool) error {
	if s == "" {
		return errMalformedAmount
	}
	digits, dot := 0, false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && fraction && !dot:
			dot = true
		case c == '-':
			return errNegativeAmount
		case c == '.':
			return errFractionalAmount
		default:
			return errMalformedAmount
		}
	}
	if digits == 0 {
		return errMalformedAmount
	}
	if digits > MaxAmountDigits {
		return errAmountTooLarge
	}
	return nil
}

func fromDecimal(d decimal.Decimal) (Amount, error) {
	if d.Sign() < 0 {
		return Amount{}, errNegativeAmount
	}
	if !d.IsInteger() {
		return Amount{}, errFractionalAmount
	}
	return Amount{d: d}, nil
}

// Add returns a + other.
func (a Amount) Add(other Amount) Amount {
	return Amount{d: a.d.Add(other.d)}
}

// Sub returns a - other. It panics if the result would be negative;
// callers check balances before subtracting.
func (a Amount) Sub(other Amount) Amount {
	if a.d.Cmp(other.d) < 0 {
		panic(fmt.Sprintf("types: amount underflow: %s - %s", a, other))
	}
	return Amount{d: a.d.Sub(other.d)}
}

// Cmp compares a and other and returns -1, 0 or +1.
func (a Amount) Cmp(other Amount) int { return a.d.Cmp(other.d) }

// LessThan reports whether a < other.
func (a Amount) LessThan(other Amount) bool { return a.d.Cmp(other.d) < 0 }

// Equal reports whether a == other.
func (a Amount) Equal(other Amount) bool { return a.d.Equal(other.d) }

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.d.IsZero() }

// IsPositive reports whether the amount is greater than zero.
func (a Amount) IsPositive() bool { return a.d.Sign() > 0 }

// BigInt returns the amount as a newly allocated big integer.
func (a Amount) BigInt() *big.Int { return a.d.BigInt() }

// String returns the base-unit integer representation.
func (a Amount) String() string { return a.d.String() }

// FormatUnits renders the amount in display units with exactly
// decimals fractional digits: NewAmount(999990).FormatUnits(2) == "9999.90".
func (a Amount) FormatUnits(decimals uint8) string {
	return a.d.Shift(-int32(decimals)).StringFixed(int32(decimals))
}

// MarshalJSON encodes the amount as a decimal string so that values
// beyond 2^53 survive JavaScript consumers.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.d.String())
}

// UnmarshalJSON accepts either a quoted or a bare integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	text := string(data)
	if text == "null" {
		return nil
	}
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	parsed, err := ParseAmount(text)
	if err != nil {
		return fmt.Errorf("types: decode amount: %w", err)
	}
	*a = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer. Amounts are stored as TEXT to keep
// full precision on every backend.
func (a Amount) Value() (driver.Value, error) {
	return a.d.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	var text string
	switch v := src.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("types: scan amount: %w", errNegativeAmount)
		}
		*a = NewAmount(uint64(v))
		return nil
	case nil:
		*a = Amount{}
		return nil
	default:
		return fmt.Errorf("types: scan amount: unsupported type %T", src)
	}
	parsed, err := ParseAmount(text)
	if err != nil {
		return fmt.Errorf("types: scan amount: %w", err)
	}
	*a = parsed
	return nil
}

// Sum adds all values.
func Sum(values ...Amount) Amount {
	total := Amount{}
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
