package models

import (
	"encoding/hex"
	"time"
)

// TokenID is the 32-byte Keccak-256 digest identifying an access token.
type TokenID [32]byte

func (id TokenID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// ParseTokenID accepts a 0x-prefixed or bare 64 char hex string.
func ParseTokenID(s string) (TokenID, error) {
	var id TokenID
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if len(s) != 64 {
		return id, ErrInvalidInput
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, ErrInvalidInput
	}
	return id, nil
}

func (id TokenID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *TokenID) UnmarshalText(b []byte) error {
	parsed, err := ParseTokenID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// AccessToken is immutable once minted.
type AccessToken struct {
	ID                TokenID   `json:"token_id"`
	Holder            Identity  `json:"holder"`
	Profile           Identity  `json:"profile"`
	SourceStorageHash []byte    `json:"source_storage_hash"`
	MintedAt          time.Time `json:"minted_at"`
	// Force and Data are carried through untouched for the metadata encoder.
	Force bool   `json:"force"`
	Data  []byte `json:"data,omitempty"`
}

// TokenRef is the holder-index entry for a token.
type TokenRef struct {
	ID      TokenID  `json:"token_id"`
	Profile Identity `json:"profile"`
}

// TokenData is the metadata snapshot returned by Ledger.DataOf.
type TokenData struct {
	StorageHash []byte    `json:"storage_hash"`
	Profile     Identity  `json:"profile"`
	MintedAt    time.Time `json:"minted_at"`
}
