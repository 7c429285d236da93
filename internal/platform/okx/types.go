package okx

import "github.com/okquant/costsim/internal/domain"

// BookMessage is one full L2 snapshot frame from the depth stream. Prices
// and quantities arrive as strings and are parsed downstream so a rejected
// level can reject the whole update.
type BookMessage struct {
	Timestamp string      `json:"timestamp"`
	Exchange  string      `json:"exchange"`
	Symbol    string      `json:"symbol"`
	Asks      [][2]string `json:"asks"`
	Bids      [][2]string `json:"bids"`
}

// ToRawUpdate converts a wire message into the domain update consumed by
// the orderbook.
func ToRawUpdate(msg *BookMessage) domain.RawBookUpdate {
	return domain.RawBookUpdate{
		Timestamp: msg.Timestamp,
		Asks:      msg.Asks,
		Bids:      msg.Bids,
	}
}
