package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Storage {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "routerd-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.ErrorIs(t, err, ErrPathRequired)
}

func TestRecordAndListTrades(t *testing.T) {
	store := openTest(t)
	ctx := context.Background()

	id, err := store.RecordTrade(ctx, TradeRecord{
		Kind:      TradeKindSell,
		Account:   "liq1example",
		AmountIn:  "1000000000",
		AmountOut: "960000000",
		FeeBps:    400,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = store.RecordTrade(ctx, TradeRecord{
		Kind:         TradeKindSell,
		Account:      "liq1other",
		AmountIn:     "500000000",
		AmountOut:    "450000000",
		FeeBps:       1000,
		ExternalUsed: true,
	})
	require.NoError(t, err)

	records, err := store.ListTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, record := range records {
		require.NotEmpty(t, record.ID)
		require.Equal(t, TradeKindSell, record.Kind)
		require.False(t, record.CreatedAt.IsZero())
	}
}

func TestListTradesDefaultLimit(t *testing.T) {
	store := openTest(t)
	records, err := store.ListTrades(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, records)
}
