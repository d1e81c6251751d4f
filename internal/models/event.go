package models

import "time"

type EventKind string

const (
	EventGlimpseCreated EventKind = "glimpse_created"
	EventGlimpseDeleted EventKind = "glimpse_deleted"
	EventGlimpseExpired EventKind = "glimpse_expired"
	EventTokenMinted    EventKind = "token_minted"
)

// Event is emitted after a mutation commits.
type Event struct {
	Kind        EventKind `json:"kind"`
	Profile     Identity  `json:"profile"`
	Minter      Identity  `json:"minter,omitempty"`
	StorageHash []byte    `json:"storage_hash,omitempty"`
	IsPrivate   bool      `json:"is_private,omitempty"`
	TokenID     *TokenID  `json:"token_id,omitempty"`
	At          time.Time `json:"at"`
}
