package types

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressLength is the number of bytes in an account address.
const AddressLength = 20

// Address identifies an account holding tokens.
//
// Addresses are compared by value and are safe to use as map keys.
type Address [AddressLength]byte

// NullAddress is the reserved "no account" identity. Transfers to it are
// rejected so that tokens cannot be burned by accident.
var NullAddress Address

// ParseAddress parses a 0x-prefixed, 40 hex digit address. Mixed-case
// input is accepted without checksum validation.
func ParseAddress(s string) (Address, error) {
	var a Address

	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != AddressLength*2 {
		return a, fmt.Errorf("types: parse address %q: want %d hex digits, got %d", s, AddressLength*2, len(raw))
	}
	if _, err := hex.Decode(a[:], []byte(raw)); err != nil {
		return NullAddress, fmt.Errorf("types: parse address %q: %w", s, err)
	}
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error. Use for
// hardcoded addresses.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsNull reports whether a is the null sentinel.
func (a Address) IsNull() bool { return a == NullAddress }

// Hex returns the lowercase 0x-prefixed form, used as the storage key.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String returns the EIP-55 mixed-case checksum encoding.
func (a Address) String() string {
	lower := hex.EncodeToString(a[:])

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 32
		}
	}
	return "0x" + string(out)
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer.
func (a Address) Value() (driver.Value, error) {
	return a.Hex(), nil
}

// Scan implements sql.Scanner.
func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case nil:
		*a = NullAddress
		return nil
	default:
		return fmt.Errorf("types: cannot scan %T into Address", src)
	}
}
