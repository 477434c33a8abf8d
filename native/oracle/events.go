package oracle

import (
	"math/big"
	"strconv"

	"liquidroute/core/types"
)

const (
	// EventTypeQuoteUpdated is emitted whenever the updater pushes a new quote.
	EventTypeQuoteUpdated = "oracle.quote.updated"
)

type quoteUpdated struct {
	Price *big.Int
	Risk  uint32
}

func (q quoteUpdated) EventType() string { return EventTypeQuoteUpdated }

// Event returns the canonical payload for downstream subscribers.
func (q quoteUpdated) Event() *types.Event {
	attrs := map[string]string{
		"risk": strconv.FormatUint(uint64(q.Risk), 10),
	}
	if q.Price != nil {
		attrs["price"] = q.Price.String()
	}
	return &types.Event{Type: EventTypeQuoteUpdated, Attributes: attrs}
}
