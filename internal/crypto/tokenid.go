package crypto

import (
	"encoding/binary"
	"time"

	"golang.org/x/crypto/sha3"

	"day.glimpse/internal/identity"
	"day.glimpse/internal/models"
)

const uint256Size = 32

// TokenID derives the access token id as keccak256(issuer ‖ profile ‖ uint256(ts)),
// the same packing an ABI-encoded (address, address, uint256) tuple uses.
// ts is the mint time in unix seconds.
func TokenID(issuer, profile models.Identity, ts uint64) models.TokenID {
	h := sha3.NewLegacyKeccak256()
	h.Write(identity.Bytes(issuer))
	h.Write(identity.Bytes(profile))

	var word [uint256Size]byte
	binary.BigEndian.PutUint64(word[uint256Size-8:], ts)
	h.Write(word[:])

	var id models.TokenID
	copy(id[:], h.Sum(nil))
	return id
}

// MintTimestamp folds t onto the mint epoch grid. Two mints by the same issuer
// against the same profile inside one epoch share a timestamp and therefore a
// token id.
func MintTimestamp(t time.Time, epoch time.Duration) uint64 {
	if epoch > time.Second {
		t = t.Truncate(epoch)
	}
	u := t.Unix()
	if u < 0 {
		return 0
	}
	return uint64(u)
}
