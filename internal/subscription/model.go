package subscription

import (
	"fmt"
	"math/bits"
	"time"

	"priceoracle/internal/apperr"
)

const (
	SecondsPerMonth uint64 = 2_592_000
	CallsPerMonth   uint64 = 1_000_000
)

type State string

const (
	StateActive  State = "active"
	StateExpired State = "expired"
)

// Subscription is a time- and call-bounded access credential. It is never
// deleted; an expired credential stays renewable.
type Subscription struct {
	ID               string    `json:"id"`
	ExpirationTime   uint64    `json:"expiration_time"`
	CurNonce         uint64    `json:"cur_nonce"`
	MaxNonce         uint64    `json:"max_nonce"`
	AuthorizedPubKey string    `json:"authorized_pub_key"`
	OwnerHash        string    `json:"-"`
	Version          int64     `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
}

// State is Active while expiration_time >= now.
func (s *Subscription) State(now uint64) State {
	if s.ExpirationTime >= now {
		return StateActive
	}
	return StateExpired
}

// Update is emitted whenever a credential's expiration time changes.
type Update struct {
	CredentialID      string `json:"credential_id"`
	NewExpirationTime uint64 `json:"new_expiration_time"`
}

// AddMonths returns base + months*per, failing with apperr.ErrDurationOverflow
// if the result does not fit in a u64.
func AddMonths(base, months, per uint64) (uint64, error) {
	hi, lo := bits.Mul64(months, per)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d months", apperr.ErrDurationOverflow, months)
	}
	sum, carry := bits.Add64(base, lo, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d months", apperr.ErrDurationOverflow, months)
	}
	return sum, nil
}
