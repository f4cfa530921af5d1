package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"priceoracle/internal/apperr"
	"priceoracle/internal/subscription"
)

type entry struct {
	mu  sync.Mutex
	sub subscription.Subscription
}

// MemoryRepository keeps credentials in process. Updates to one id are
// serialized; different ids do not contend.
type MemoryRepository struct {
	mu   sync.RWMutex
	subs map[string]*entry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{subs: make(map[string]*entry)}
}

func (r *MemoryRepository) Create(_ context.Context, sub *subscription.Subscription) error {
	sub.ID = uuid.NewString()
	sub.Version = 1
	sub.CreatedAt = time.Now().UTC()

	r.mu.Lock()
	r.subs[sub.ID] = &entry{sub: *sub}
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) get(id string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.subs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return e, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*subscription.Subscription, error) {
	e, err := r.get(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	sub := e.sub
	e.mu.Unlock()
	return &sub, nil
}

func (r *MemoryRepository) Update(_ context.Context, id string, fn func(*subscription.Subscription) error) (*subscription.Subscription, error) {
	e, err := r.get(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.sub
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.ID = e.sub.ID
	next.Version = e.sub.Version + 1
	e.sub = next

	out := next
	return &out, nil
}

func (r *MemoryRepository) CountByState(_ context.Context, now uint64) (map[subscription.State]int, error) {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.subs))
	for _, e := range r.subs {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	counts := map[subscription.State]int{subscription.StateActive: 0, subscription.StateExpired: 0}
	for _, e := range entries {
		e.mu.Lock()
		counts[e.sub.State(now)]++
		e.mu.Unlock()
	}
	return counts, nil
}
