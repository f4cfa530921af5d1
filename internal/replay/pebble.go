package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
)

const pebblePrefix = "nonce/"

// PebbleGuard persists consumed nonces in a local pebble store so the replay
// set survives restarts of a single node.
type PebbleGuard struct {
	db *pebble.DB
	// pebble has no conditional put; the lookup and the write share this lock.
	mu sync.Mutex
}

// OpenPebble opens (or creates) the store at path.
func OpenPebble(path string) (*PebbleGuard, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", path, err)
	}
	return &PebbleGuard{db: db}, nil
}

func (g *PebbleGuard) TryConsume(ctx context.Context, nonce uint64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := nonceKey(pebblePrefix, nonce)

	g.mu.Lock()
	defer g.mu.Unlock()

	_, closer, err := g.db.Get(key)
	if err == nil {
		closer.Close()
		return false, nil
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return false, fmt.Errorf("pebble get: %w", err)
	}

	if err := g.db.Set(key, []byte{1}, pebble.Sync); err != nil {
		return false, fmt.Errorf("pebble set: %w", err)
	}
	return true, nil
}

func (g *PebbleGuard) Close() error {
	return g.db.Close()
}
