// Package identity normalizes profile identities so that two spellings of the
// same address compare equal.
package identity

import (
	"encoding/hex"
	"strings"

	"day.glimpse/internal/models"
)

const addressHexLen = 40

// Normalize trims and lower-cases s. A 40 char hex string gets a 0x prefix so
// "ABCD..." and "0xabcd..." map to the same identity.
func Normalize(s string) models.Identity {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == addressHexLen && isHex(s) {
		s = "0x" + s
	}
	return models.Identity(s)
}

// Parse normalizes s and rejects the empty identity.
func Parse(s string) (models.Identity, error) {
	id := Normalize(s)
	if id == "" {
		return "", models.ErrInvalidInput
	}
	return id, nil
}

func Equal(a, b models.Identity) bool {
	return Normalize(string(a)) == Normalize(string(b))
}

// Bytes returns the packed form used for token id derivation: the 20 raw
// bytes for an address, the UTF-8 bytes otherwise.
func Bytes(id models.Identity) []byte {
	s := string(Normalize(string(id)))
	if len(s) == addressHexLen+2 && strings.HasPrefix(s, "0x") {
		if b, err := hex.DecodeString(s[2:]); err == nil {
			return b
		}
	}
	return []byte(s)
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
