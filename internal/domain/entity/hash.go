package entity

import (
	"encoding/hex"
	"fmt"
	"strings"

	domainwf "github.com/garyjia/approval-ledger/internal/domain/workflow"
)

// HashLength is the size of every off-chain content reference
const HashLength = 32

// accountHashPrefix is the formatted-string prefix used for account identities
const accountHashPrefix = "account-hash-"

// Hash is an opaque 32-byte reference to off-chain content (template, business data, comment)
type Hash [HashLength]byte

// AccountHash identifies the account that made a call
type AccountHash [HashLength]byte

// ParseHash decodes a 64-character hex string, with or without a 0x prefix
func ParseHash(s string) (Hash, error) {
	var h Hash
	if err := decodeHex32(h[:], strings.TrimPrefix(s, "0x")); err != nil {
		return Hash{}, err
	}
	return h, nil
}

// String returns the lowercase hex encoding
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether every byte is zero
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// MarshalText implements encoding.TextMarshaler
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseAccountHash accepts "account-hash-<hex>" or bare hex
func ParseAccountHash(s string) (AccountHash, error) {
	var a AccountHash
	if err := decodeHex32(a[:], strings.TrimPrefix(s, accountHashPrefix)); err != nil {
		return AccountHash{}, err
	}
	return a, nil
}

// String returns the "account-hash-<hex>" form
func (a AccountHash) String() string {
	return accountHashPrefix + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler
func (a AccountHash) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *AccountHash) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountHash(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func decodeHex32(dst []byte, s string) error {
	if len(s) != HashLength*2 {
		return fmt.Errorf("%w: expected %d hex characters, got %d", domainwf.ErrInvalidArgument, HashLength*2, len(s))
	}
	if _, err := hex.Decode(dst, []byte(s)); err != nil {
		return fmt.Errorf("%w: %v", domainwf.ErrInvalidArgument, err)
	}
	return nil
}
