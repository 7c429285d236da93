package domain

import "time"

// PriceLevel is a single price+quantity rung of an orderbook side.
type PriceLevel struct {
	Price    float64
	Quantity float64
}

// BookSnapshot is a consistent point-in-time view of the orderbook: the best
// few levels per side plus whole-side volume totals. It is taken under one
// read lock, so every value in it belongs to the same fully-applied update.
type BookSnapshot struct {
	Exchange  string
	Symbol    string
	Bids      []PriceLevel // descending by price
	Asks      []PriceLevel // ascending by price
	BidVolume float64      // total quantity across all bid levels
	AskVolume float64      // total quantity across all ask levels
	UpdatedAt time.Time
}

// BestBid returns the highest bid level, or ok=false when the side is empty.
func (s BookSnapshot) BestBid() (PriceLevel, bool) {
	if len(s.Bids) == 0 {
		return PriceLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest ask level, or ok=false when the side is empty.
func (s BookSnapshot) BestAsk() (PriceLevel, bool) {
	if len(s.Asks) == 0 {
		return PriceLevel{}, false
	}
	return s.Asks[0], true
}

// Mid returns the midpoint of the best bid and ask. ok is false while either
// side is empty; callers must treat that as "no data", not as a zero price.
func (s BookSnapshot) Mid() (float64, bool) {
	if len(s.Bids) == 0 || len(s.Asks) == 0 {
		return 0, false
	}
	return (s.Bids[0].Price + s.Asks[0].Price) / 2, true
}

// Spread returns best ask minus best bid. ok is false while either side is
// empty. A negative spread (crossed book) is a valid transient state.
func (s BookSnapshot) Spread() (float64, bool) {
	if len(s.Bids) == 0 || len(s.Asks) == 0 {
		return 0, false
	}
	return s.Asks[0].Price - s.Bids[0].Price, true
}

// RawBookUpdate is one full-replacement book message as delivered by the
// market data feed: a timestamp string plus (price, quantity) string pairs
// for both sides. Parsing and validation happen in the orderbook package.
type RawBookUpdate struct {
	Timestamp string
	Asks      [][2]string
	Bids      [][2]string
}
