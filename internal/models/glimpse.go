package models

import "time"

// Identity is a normalized profile identity (see package identity).
type Identity string

// Glimpse is the single ephemeral record owned by a profile. It is
// overwritten in place on replacement and never physically removed.
type Glimpse struct {
	Profile     Identity  `json:"profile"`
	StorageHash []byte    `json:"storage_hash"`
	CreatedAt   time.Time `json:"created_at"`
	IsPrivate   bool      `json:"is_private"`
	IsActive    bool      `json:"is_active"`
}

// ExpiredAt reports whether the record is past ttl at now. Inactive records
// never expire.
func (g *Glimpse) ExpiredAt(now time.Time, ttl time.Duration) bool {
	if g == nil || !g.IsActive {
		return false
	}
	return now.Sub(g.CreatedAt) > ttl
}

func (g *Glimpse) Clone() *Glimpse {
	if g == nil {
		return nil
	}
	c := *g
	c.StorageHash = append([]byte(nil), g.StorageHash...)
	return &c
}

// View is what a successful read hands back.
type View struct {
	Glimpse *Glimpse
	// Fresh is true while less than half of the TTL has elapsed.
	Fresh     bool
	ExpiresAt time.Time
}
