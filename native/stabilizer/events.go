package stabilizer

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"liquidroute/core/types"
)

const (
	EventTypeLiquidityProvided = "stabilizer.liquidity_provided"
	EventTypeFunded            = "stabilizer.funded"
	EventTypeFeesWithdrawn     = "stabilizer.fees_withdrawn"
)

type liquidityProvided struct {
	Seller    [20]byte
	AssetIn   *big.Int
	StableOut *big.Int
	FeeBps    uint32
}

func (l liquidityProvided) EventType() string { return EventTypeLiquidityProvided }

func (l liquidityProvided) Event() *types.Event {
	attrs := map[string]string{
		"seller": hex.EncodeToString(l.Seller[:]),
		"feeBps": strconv.FormatUint(uint64(l.FeeBps), 10),
	}
	if l.AssetIn != nil {
		attrs["assetIn"] = l.AssetIn.String()
	}
	if l.StableOut != nil {
		attrs["stableOut"] = l.StableOut.String()
	}
	return &types.Event{Type: EventTypeLiquidityProvided, Attributes: attrs}
}

type funded struct {
	Funder [20]byte
	Symbol string
	Amount *big.Int
}

func (f funded) EventType() string { return EventTypeFunded }

func (f funded) Event() *types.Event {
	attrs := map[string]string{
		"funder": hex.EncodeToString(f.Funder[:]),
		"symbol": f.Symbol,
	}
	if f.Amount != nil {
		attrs["amount"] = f.Amount.String()
	}
	return &types.Event{Type: EventTypeFunded, Attributes: attrs}
}

type feesWithdrawn struct {
	Operator [20]byte
	Amount   *big.Int
}

func (f feesWithdrawn) EventType() string { return EventTypeFeesWithdrawn }

func (f feesWithdrawn) Event() *types.Event {
	attrs := map[string]string{
		"operator": hex.EncodeToString(f.Operator[:]),
	}
	if f.Amount != nil {
		attrs["amount"] = f.Amount.String()
	}
	return &types.Event{Type: EventTypeFeesWithdrawn, Attributes: attrs}
}
