// Package replay keeps the set of price-quote nonces that have already been
// accepted. Every backend implements TryConsume as a single test-and-set, so
// two concurrent submissions of the same nonce see exactly one acceptance.
//
// Consumed nonces are never evicted.
package replay

import (
	"context"
	"encoding/binary"
	"sync"
)

// Guard is the shared replay set.
type Guard interface {
	// TryConsume records nonce and reports true if it was not seen before.
	TryConsume(ctx context.Context, nonce uint64) (bool, error)
}

// MemoryGuard is an in-process Guard.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[uint64]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{seen: make(map[uint64]struct{})}
}

func (g *MemoryGuard) TryConsume(_ context.Context, nonce uint64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[nonce]; ok {
		return false, nil
	}
	g.seen[nonce] = struct{}{}
	return true, nil
}

// Size returns the number of consumed nonces.
func (g *MemoryGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

func nonceKey(prefix string, nonce uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], nonce)
	return key
}
