package store

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// SwapID is the opaque, time-ordered primary key of spec.md §3.1. It is
// built from a millisecond timestamp prefix (for sort order) followed by
// random entropy (for uniqueness), the way a ULID would be, but kept as a
// plain hex string so it round-trips through the store and the HTTP API
// without a dedicated codec.
type SwapID string

func NewSwapID() SwapID {
	ts := uint64(time.Now().UnixMilli())
	tsBytes := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		tsBytes[i] = byte(ts)
		ts >>= 8
	}

	entropy := uuid.New()
	buf := append(tsBytes, entropy[:]...)
	return SwapID(hex.EncodeToString(buf))
}

func (id SwapID) String() string { return string(id) }
