package domain

import "time"

// TradeMetrics is the forecast bundle produced by one Estimate call. It has
// no identity and is recomputed from a single book snapshot on every call.
// When the snapshot is missing a side, every field is at its neutral zero
// value except MakerProbability, which defaults to 0.5.
type TradeMetrics struct {
	Spread             float64
	MidPrice           float64
	Imbalance          float64 // (bidVol10 - askVol10) / (bidVol10 + askVol10), in [-1, 1]
	ExpectedSlippage   float64
	ExpectedImpact     float64
	ExpectedFees       float64
	NetCost            float64 // slippage + fees + impact
	MakerProbability   float64
	SlippageConfidence float64
	ImpactConfidence   float64
	InternalLatency    time.Duration
}

// EstimateRecord is a persisted TradeMetrics bundle together with the probe
// order that produced it.
type EstimateRecord struct {
	ID         string
	Exchange   string
	Symbol     string
	OrderSize  float64
	LimitPrice float64
	OrderType  string
	Horizon    float64 // seconds
	Metrics    TradeMetrics
	CreatedAt  time.Time
}

// TradeResult is the outcome of one simulated execution against the ledger.
type TradeResult struct {
	ID            string
	OrderSize     float64
	LimitPrice    float64
	OrderType     string
	Slippage      float64
	MarketImpact  float64
	Fees          float64
	ExecutedPrice float64
	ExecutedSize  float64
	TotalCost     float64
	ExecutedAt    time.Time
}
