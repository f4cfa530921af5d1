// Package freshness is the consumer-side age check on verified price quotes.
// The oracle guarantees authenticity and non-replay only; recency is up to
// whoever uses the price.
package freshness

import (
	"fmt"
	"time"

	"priceoracle/internal/apperr"
	"priceoracle/internal/message"
)

type Gate struct {
	lifetime uint64
}

func NewGate(lifetime time.Duration) *Gate {
	return &Gate{lifetime: uint64(lifetime / time.Second)}
}

// Check accepts the quote while created_at + lifetime >= now.
func (g *Gate) Check(quote message.PriceQuote, now time.Time) error {
	n := uint64(now.Unix())
	deadline := quote.CreatedAt + g.lifetime
	if deadline < quote.CreatedAt {
		// Overflow means the deadline is beyond any representable time.
		return nil
	}
	if deadline < n {
		return fmt.Errorf("%w: created at %d, lifetime %ds, now %d", apperr.ErrStalePrice, quote.CreatedAt, g.lifetime, n)
	}
	return nil
}
