package pool

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"liquidroute/core/types"
)

const (
	EventTypeLiquidityAdded     = "pool.liquidity_added"
	EventTypeLiquidityRemoved   = "pool.liquidity_removed"
	EventTypeSwapBuy            = "pool.swap_buy"
	EventTypeSwapSell           = "pool.swap_sell"
	EventTypeSourceRegistered   = "pool.source_registered"
	EventTypeSourceUnregistered = "pool.source_unregistered"
)

type poolEvent struct {
	evt *types.Event
}

func (p poolEvent) EventType() string {
	if p.evt == nil {
		return ""
	}
	return p.evt.Type
}

func (p poolEvent) Event() *types.Event { return p.evt }

func newLiquidityAddedEvent(provider [20]byte, stableAmount, assetAmount, shares *big.Int) *types.Event {
	attrs := map[string]string{
		"provider": hex.EncodeToString(provider[:]),
	}
	putAmount(attrs, "stableAmount", stableAmount)
	putAmount(attrs, "assetAmount", assetAmount)
	putAmount(attrs, "shares", shares)
	return &types.Event{Type: EventTypeLiquidityAdded, Attributes: attrs}
}

func newLiquidityRemovedEvent(provider [20]byte, stableOut, assetOut, shares *big.Int) *types.Event {
	attrs := map[string]string{
		"provider": hex.EncodeToString(provider[:]),
	}
	putAmount(attrs, "stableOut", stableOut)
	putAmount(attrs, "assetOut", assetOut)
	putAmount(attrs, "shares", shares)
	return &types.Event{Type: EventTypeLiquidityRemoved, Attributes: attrs}
}

func newSwapBuyEvent(buyer [20]byte, stableIn, assetOut, fairPrice, poolPrice *big.Int, feeBps uint32) *types.Event {
	attrs := map[string]string{
		"buyer":  hex.EncodeToString(buyer[:]),
		"feeBps": strconv.FormatUint(uint64(feeBps), 10),
	}
	putAmount(attrs, "stableIn", stableIn)
	putAmount(attrs, "assetOut", assetOut)
	putAmount(attrs, "fairPrice", fairPrice)
	putAmount(attrs, "poolPrice", poolPrice)
	return &types.Event{Type: EventTypeSwapBuy, Attributes: attrs}
}

func newSwapSellEvent(seller [20]byte, assetIn, stableOut, fromPool, fromExternal, fairPrice, poolPrice *big.Int, feeBps uint32, externalUsed bool) *types.Event {
	attrs := map[string]string{
		"seller":       hex.EncodeToString(seller[:]),
		"feeBps":       strconv.FormatUint(uint64(feeBps), 10),
		"externalUsed": strconv.FormatBool(externalUsed),
	}
	putAmount(attrs, "assetIn", assetIn)
	putAmount(attrs, "stableOut", stableOut)
	putAmount(attrs, "fromPool", fromPool)
	putAmount(attrs, "fromExternal", fromExternal)
	putAmount(attrs, "fairPrice", fairPrice)
	putAmount(attrs, "poolPrice", poolPrice)
	return &types.Event{Type: EventTypeSwapSell, Attributes: attrs}
}

func newSourceRegisteredEvent(source [20]byte) *types.Event {
	return &types.Event{Type: EventTypeSourceRegistered, Attributes: map[string]string{
		"source": hex.EncodeToString(source[:]),
	}}
}

func newSourceUnregisteredEvent(source [20]byte) *types.Event {
	return &types.Event{Type: EventTypeSourceUnregistered, Attributes: map[string]string{
		"source": hex.EncodeToString(source[:]),
	}}
}

func putAmount(attrs map[string]string, key string, amount *big.Int) {
	if amount == nil {
		return
	}
	attrs[key] = amount.String()
}
