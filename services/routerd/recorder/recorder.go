// Package recorder subscribes to engine events and fans them out to the
// structured log, the trade history database, and prometheus.
package recorder

import (
	"context"
	"encoding/hex"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"liquidroute/core/events"
	"liquidroute/core/types"
	"liquidroute/crypto"
	"liquidroute/native/pool"
	"liquidroute/observability"
	"liquidroute/services/routerd/storage"
)

// ReserveReader reports the current pool reserves after each state change.
type ReserveReader interface {
	Reserves() (*big.Int, *big.Int, error)
}

// Recorder implements events.Emitter.
type Recorder struct {
	logger   *slog.Logger
	trades   *storage.Storage
	metrics  *observability.RouterMetrics
	reserves ReserveReader
	timeout  time.Duration
}

// New builds a recorder. Both trades and reserves may be nil; the
// corresponding sink is skipped.
func New(logger *slog.Logger, trades *storage.Storage, reserves ReserveReader) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		logger:   logger,
		trades:   trades,
		metrics:  observability.Router(),
		reserves: reserves,
		timeout:  5 * time.Second,
	}
}

// Emit implements events.Emitter. Sink failures are logged, never propagated:
// a slow trade-history write must not fail a swap.
func (r *Recorder) Emit(evt events.Event) {
	if r == nil || evt == nil {
		return
	}
	carrier, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		r.logger.Info("engine event", "type", evt.EventType())
		return
	}
	payload := carrier.Event()
	if payload == nil {
		return
	}
	attrs := make([]any, 0, 2*len(payload.Attributes))
	for k, v := range payload.Attributes {
		attrs = append(attrs, k, v)
	}
	r.logger.Info(payload.Type, attrs...)

	switch payload.Type {
	case pool.EventTypeSwapSell:
		r.recordTrade(storage.TradeKindSell, payload, "seller", "assetIn", "stableOut")
		fromPool := bigAttr(payload, "fromPool")
		fromExternal := bigAttr(payload, "fromExternal")
		feeBps := uintAttr(payload, "feeBps")
		r.metrics.RecordSellVolume(fromPool, fromExternal, feeBps)
		r.updateReserves()
	case pool.EventTypeSwapBuy:
		r.recordTrade(storage.TradeKindBuy, payload, "buyer", "stableIn", "assetOut")
		r.updateReserves()
	case pool.EventTypeLiquidityAdded:
		r.recordTrade(storage.TradeKindDeposit, payload, "provider", "stableAmount", "shares")
		r.updateReserves()
	case pool.EventTypeLiquidityRemoved:
		r.recordTrade(storage.TradeKindWithdraw, payload, "provider", "shares", "stableOut")
		r.updateReserves()
	}
}

func (r *Recorder) recordTrade(kind string, payload *types.Event, accountKey, inKey, outKey string) {
	if r.trades == nil {
		return
	}
	record := storage.TradeRecord{
		Kind:         kind,
		Account:      encodeAccount(payload.Attributes[accountKey]),
		AmountIn:     payload.Attributes[inKey],
		AmountOut:    payload.Attributes[outKey],
		FeeBps:       uintAttr(payload, "feeBps"),
		ExternalUsed: payload.Attributes["externalUsed"] == "true",
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if _, err := r.trades.RecordTrade(ctx, record); err != nil {
		r.logger.Error("record trade", "kind", kind, "error", err)
	}
}

func (r *Recorder) updateReserves() {
	if r.reserves == nil {
		return
	}
	stable, asset, err := r.reserves.Reserves()
	if err != nil {
		r.logger.Error("read reserves", "error", err)
		return
	}
	r.metrics.SetReserves(stable, asset)
}

func encodeAccount(raw string) string {
	decoded, err := hex.DecodeString(raw)
	if err != nil || len(decoded) != 20 {
		return raw
	}
	return crypto.NewAddress(crypto.LiqPrefix, decoded).String()
}

func bigAttr(payload *types.Event, key string) *big.Int {
	value, ok := new(big.Int).SetString(payload.Attributes[key], 10)
	if !ok {
		return big.NewInt(0)
	}
	return value
}

func uintAttr(payload *types.Event, key string) uint32 {
	value, err := strconv.ParseUint(payload.Attributes[key], 10, 32)
	if err != nil {
		return 0
	}
	return uint32(value)
}
