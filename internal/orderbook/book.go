// Package orderbook maintains a concurrently-updated, depth-sorted view of
// one instrument's bid/ask ladder. Updates are full replacements of both
// sides; readers always observe either the complete previous book or the
// complete new one, never a mix.
package orderbook

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/okquant/costsim/internal/domain"
)

// timestampLayout is the wire format used by the feed, e.g.
// "2025-03-01T14:05:00Z".
const timestampLayout = "2006-01-02T15:04:05Z"

// Book holds the live ladder for one (exchange, symbol) pair. It is created
// once and lives for the process lifetime; a single feed goroutine writes to
// it while any number of estimator goroutines read from it.
type Book struct {
	exchange string
	symbol   string

	mu        sync.RWMutex
	bids      []domain.PriceLevel // descending by price
	asks      []domain.PriceLevel // ascending by price
	updatedAt time.Time
}

// New creates an empty Book for the given exchange and symbol.
func New(exchange, symbol string) *Book {
	return &Book{exchange: exchange, symbol: symbol}
}

// Exchange returns the exchange identifier the book was created with.
func (b *Book) Exchange() string { return b.exchange }

// Symbol returns the instrument identifier the book was created with.
func (b *Book) Symbol() string { return b.symbol }

// Update replaces both sides of the book from raw feed strings. Every level
// is parsed before any state is touched: a malformed price, quantity, or
// timestamp rejects the whole update with domain.ErrMalformedUpdate and the
// previous book is kept intact. Levels with quantity <= 0 are dropped rather
// than stored. A crossed result (best bid above best ask) is accepted; it is
// a legitimate transient state on a fast feed.
func (b *Book) Update(timestamp string, asks, bids [][2]string) error {
	ts, err := time.Parse(timestampLayout, timestamp)
	if err != nil {
		return fmt.Errorf("orderbook: parse timestamp %q: %w", timestamp, domain.ErrMalformedUpdate)
	}

	newAsks, err := parseSide(asks)
	if err != nil {
		return fmt.Errorf("orderbook: asks: %w", err)
	}
	newBids, err := parseSide(bids)
	if err != nil {
		return fmt.Errorf("orderbook: bids: %w", err)
	}

	sort.Slice(newAsks, func(i, j int) bool { return newAsks[i].Price < newAsks[j].Price })
	sort.Slice(newBids, func(i, j int) bool { return newBids[i].Price > newBids[j].Price })

	b.mu.Lock()
	b.asks = newAsks
	b.bids = newBids
	b.updatedAt = ts
	b.mu.Unlock()
	return nil
}

// parseSide converts raw (price, quantity) string pairs into sorted-ready
// levels, skipping quantity <= 0 and failing the whole side on any
// unparsable number. Duplicate prices within one message keep the last
// quantity seen, matching a full-replacement feed.
func parseSide(levels [][2]string) ([]domain.PriceLevel, error) {
	out := make([]domain.PriceLevel, 0, len(levels))
	seen := make(map[float64]int, len(levels))
	for _, lvl := range levels {
		price, err := strconv.ParseFloat(lvl[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", lvl[0], domain.ErrMalformedUpdate)
		}
		qty, err := strconv.ParseFloat(lvl[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse quantity %q: %w", lvl[1], domain.ErrMalformedUpdate)
		}
		if qty <= 0 {
			continue
		}
		if i, ok := seen[price]; ok {
			out[i].Quantity = qty
			continue
		}
		seen[price] = len(out)
		out = append(out, domain.PriceLevel{Price: price, Quantity: qty})
	}
	return out, nil
}

// BestAsk returns the lowest ask, or ok=false when the ask side is empty.
func (b *Book) BestAsk() (domain.PriceLevel, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.asks) == 0 {
		return domain.PriceLevel{}, false
	}
	return b.asks[0], true
}

// BestBid returns the highest bid, or ok=false when the bid side is empty.
func (b *Book) BestBid() (domain.PriceLevel, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bids) == 0 {
		return domain.PriceLevel{}, false
	}
	return b.bids[0], true
}

// AsksAtDepth returns up to n ask levels in ascending price order. A side
// shallower than n yields fewer levels, never an error.
func (b *Book) AsksAtDepth(n int) []domain.PriceLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyLevels(b.asks, n)
}

// BidsAtDepth returns up to n bid levels in descending price order.
func (b *Book) BidsAtDepth(n int) []domain.PriceLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyLevels(b.bids, n)
}

func copyLevels(side []domain.PriceLevel, n int) []domain.PriceLevel {
	if n > len(side) {
		n = len(side)
	}
	if n < 0 {
		n = 0
	}
	out := make([]domain.PriceLevel, n)
	copy(out, side[:n])
	return out
}

// MidPrice returns the midpoint of the best bid and ask. ok is false while
// either side is empty so callers can tell "no data" apart from a genuine
// zero price.
func (b *Book) MidPrice() (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.asks) == 0 || len(b.bids) == 0 {
		return 0, false
	}
	return (b.asks[0].Price + b.bids[0].Price) / 2, true
}

// Spread returns best ask minus best bid; ok is false while either side is
// empty. The value may be negative on a crossed book.
func (b *Book) Spread() (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.asks) == 0 || len(b.bids) == 0 {
		return 0, false
	}
	return b.asks[0].Price - b.bids[0].Price, true
}

// VolumeAtPrice returns the resting quantity at an exact price on either
// side, or 0 when no level exists there.
func (b *Book) VolumeAtPrice(price float64) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, lvl := range b.asks {
		if lvl.Price == price {
			return lvl.Quantity
		}
	}
	for _, lvl := range b.bids {
		if lvl.Price == price {
			return lvl.Quantity
		}
	}
	return 0
}

// VolumeBetween sums quantity across both sides for levels with
// lo <= price <= hi.
func (b *Book) VolumeBetween(lo, hi float64) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var total float64
	for _, lvl := range b.asks {
		if lvl.Price >= lo && lvl.Price <= hi {
			total += lvl.Quantity
		}
	}
	for _, lvl := range b.bids {
		if lvl.Price >= lo && lvl.Price <= hi {
			total += lvl.Quantity
		}
	}
	return total
}

// BidVolume returns the total resting quantity on the bid side.
func (b *Book) BidVolume() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sumQuantity(b.bids)
}

// AskVolume returns the total resting quantity on the ask side.
func (b *Book) AskVolume() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sumQuantity(b.asks)
}

func sumQuantity(side []domain.PriceLevel) float64 {
	var total float64
	for _, lvl := range side {
		total += lvl.Quantity
	}
	return total
}

// UpdatedAt returns the timestamp of the last applied update.
func (b *Book) UpdatedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updatedAt
}

// Snapshot takes one consistent read of the book: up to depth levels per
// side plus whole-side volume totals, all from the same applied update. The
// estimation engine works from a snapshot so a single estimate never mixes
// two book versions even while the feed keeps writing.
func (b *Book) Snapshot(depth int) domain.BookSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return domain.BookSnapshot{
		Exchange:  b.exchange,
		Symbol:    b.symbol,
		Bids:      copyLevels(b.bids, depth),
		Asks:      copyLevels(b.asks, depth),
		BidVolume: sumQuantity(b.bids),
		AskVolume: sumQuantity(b.asks),
		UpdatedAt: b.updatedAt,
	}
}
