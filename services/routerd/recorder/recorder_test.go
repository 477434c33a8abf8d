package recorder

import (
	"bytes"
	"context"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"liquidroute/core/types"
	"liquidroute/crypto"
	"liquidroute/native/pool"
	"liquidroute/observability/logging"
	"liquidroute/services/routerd/storage"
)

type stubEvent struct {
	evt *types.Event
}

func (s stubEvent) EventType() string   { return s.evt.Type }
func (s stubEvent) Event() *types.Event { return s.evt }

type bareEvent struct{}

func (bareEvent) EventType() string { return "pool.noop" }

func newTestRecorder(t *testing.T) (*Recorder, *storage.Storage, *bytes.Buffer) {
	t.Helper()
	trades, err := storage.Open(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)
	t.Cleanup(func() { trades.Close() })

	var buf bytes.Buffer
	logger := logging.SetupWithWriter(&buf, "recorder-test", "test")
	return New(logger, trades, nil), trades, &buf
}

func TestEmitRecordsSellTrade(t *testing.T) {
	rec, trades, _ := newTestRecorder(t)
	var seller [20]byte
	seller[19] = 0x07

	rec.Emit(stubEvent{evt: &types.Event{
		Type: pool.EventTypeSwapSell,
		Attributes: map[string]string{
			"seller":       hex.EncodeToString(seller[:]),
			"assetIn":      "500000000",
			"stableOut":    "480000000",
			"fromPool":     "480000000",
			"fromExternal": "0",
			"feeBps":       "400",
			"externalUsed": "false",
		},
	}})

	records, err := trades.ListTrades(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, storage.TradeKindSell, records[0].Kind)
	require.Equal(t, crypto.NewAddress(crypto.LiqPrefix, seller[:]).String(), records[0].Account)
	require.Equal(t, "500000000", records[0].AmountIn)
	require.Equal(t, "480000000", records[0].AmountOut)
	require.Equal(t, uint32(400), records[0].FeeBps)
	require.False(t, records[0].ExternalUsed)
}

func TestEmitRecordsDeposit(t *testing.T) {
	rec, trades, _ := newTestRecorder(t)
	var provider [20]byte
	provider[19] = 0x09

	rec.Emit(stubEvent{evt: &types.Event{
		Type: pool.EventTypeLiquidityAdded,
		Attributes: map[string]string{
			"provider":     hex.EncodeToString(provider[:]),
			"stableAmount": "1000000000",
			"assetAmount":  "1000000000",
			"shares":       "1000000000",
		},
	}})

	records, err := trades.ListTrades(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, storage.TradeKindDeposit, records[0].Kind)
	require.Equal(t, "1000000000", records[0].AmountIn)
}

func TestEmitIgnoresRegistryEvents(t *testing.T) {
	rec, trades, _ := newTestRecorder(t)

	rec.Emit(stubEvent{evt: &types.Event{
		Type:       pool.EventTypeSourceRegistered,
		Attributes: map[string]string{"source": "00"},
	}})

	records, err := trades.ListTrades(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestEmitLogsPlainEvents(t *testing.T) {
	rec, _, buf := newTestRecorder(t)
	rec.Emit(bareEvent{})
	require.Contains(t, buf.String(), "pool.noop")
}
