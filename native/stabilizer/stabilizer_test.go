package stabilizer

import (
	"errors"
	"math/big"
	"testing"

	"liquidroute/native/token"
	"liquidroute/storage"
)

const unit = 10_000_000

func amt(units int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(units), big.NewInt(unit))
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

type feedStub struct {
	price *big.Int
	risk  uint32
}

func (f *feedStub) FairPrice() (*big.Int, error) { return new(big.Int).Set(f.price), nil }
func (f *feedStub) RiskBps() (uint32, error)     { return f.risk, nil }

type harness struct {
	stab     *Stabilizer
	tokens   *token.Ledger
	feed     *feedStub
	account  [20]byte
	router   [20]byte
	operator [20]byte
	minter   [20]byte
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	state := storage.NewState(storage.NewMemDB())
	tokens := token.NewLedger(state)
	minter := addr(1)
	tokens.AddController(minter)
	feed := &feedStub{price: big.NewInt(unit), risk: 1000}
	account := addr(0xC1)
	router := addr(0xAA)
	operator := addr(0xBB)
	stab := New(state, tokens, feed, account, router, operator)
	return &harness{stab: stab, tokens: tokens, feed: feed, account: account, router: router, operator: operator, minter: minter}
}

func (h *harness) fund(t *testing.T, holder [20]byte, symbol string, amount *big.Int) {
	t.Helper()
	if err := h.tokens.Mint(symbol, h.minter, holder, amount); err != nil {
		t.Fatalf("fund: %v", err)
	}
}

func TestFeeTiers(t *testing.T) {
	cases := []struct {
		risk uint32
		want uint32
	}{
		{0, 500}, {1000, 500}, {1499, 500},
		{1500, 1000}, {2000, 1000}, {2999, 1000},
		{3000, 2000}, {3500, 2000}, {4999, 2000},
		{5000, 3000}, {9000, 3000}, {10000, 3000},
	}
	for _, tc := range cases {
		if got := feeTierBps(tc.risk); got != tc.want {
			t.Fatalf("risk %d: expected fee %d, got %d", tc.risk, tc.want, got)
		}
	}
}

func TestRequestQuoteAppliesTierAndBalanceCheck(t *testing.T) {
	h := newHarness(t)
	h.fund(t, h.account, token.SymbolStable, amt(1000))

	// risk 1000 -> tier 500 bps; 100 asset at par nets 95 stable.
	provided, feeBps, err := h.stab.RequestQuote(amt(100))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if feeBps != 500 {
		t.Fatalf("expected fee 500, got %d", feeBps)
	}
	want := new(big.Int).Div(new(big.Int).Mul(amt(100), big.NewInt(9500)), big.NewInt(10000))
	if provided.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want, provided)
	}

	// An order beyond inventory is declined, not partially filled.
	if _, _, err := h.stab.RequestQuote(amt(2000)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if _, _, err := h.stab.RequestQuote(big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestExecuteMatchesQuoteAndAccruesFees(t *testing.T) {
	h := newHarness(t)
	seller := addr(2)
	h.fund(t, h.account, token.SymbolStable, amt(1000))

	quoted, _, err := h.stab.RequestQuote(amt(100))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	executed, err := h.stab.ExecuteLiquidity(h.router, seller, amt(100))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if executed.Cmp(quoted) != 0 {
		t.Fatalf("execute %s diverged from quote %s", executed, quoted)
	}
	sellerBal, _ := h.tokens.BalanceOf(token.SymbolStable, seller)
	if sellerBal.Cmp(quoted) != 0 {
		t.Fatalf("seller received %s, want %s", sellerBal, quoted)
	}
	fees, err := h.stab.TotalFeesEarned()
	if err != nil {
		t.Fatalf("fees: %v", err)
	}
	spread := new(big.Int).Sub(amt(100), quoted)
	if fees.Cmp(spread) != 0 {
		t.Fatalf("expected accrued spread %s, got %s", spread, fees)
	}
}

func TestExecuteRequiresRouter(t *testing.T) {
	h := newHarness(t)
	h.fund(t, h.account, token.SymbolStable, amt(1000))
	if _, err := h.stab.ExecuteLiquidity(addr(9), addr(2), amt(10)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRoutedSourceAdapter(t *testing.T) {
	h := newHarness(t)
	seller := addr(2)
	h.fund(t, h.account, token.SymbolStable, amt(1000))

	source := h.stab.Source(h.router)
	quote, err := source.Quote(amt(100))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	provided, err := source.Execute(seller, amt(100))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if provided.Cmp(quote.StableOffered) != 0 {
		t.Fatalf("adapter execute %s diverged from quote %s", provided, quote.StableOffered)
	}

	// An adapter bound to the wrong caller cannot execute.
	impostor := h.stab.Source(addr(9))
	if _, err := impostor.Execute(seller, amt(10)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestProvideDirect(t *testing.T) {
	h := newHarness(t)
	seller := addr(2)
	h.fund(t, h.account, token.SymbolStable, amt(1000))
	h.fund(t, seller, token.SymbolYield, amt(100))

	quoted, feeBps, err := h.stab.QuoteDirect(amt(100))
	if err != nil {
		t.Fatalf("quoteDirect: %v", err)
	}
	if feeBps != 500 {
		t.Fatalf("expected tier 500, got %d", feeBps)
	}
	provided, err := h.stab.ProvideDirect(seller, amt(100))
	if err != nil {
		t.Fatalf("provideDirect: %v", err)
	}
	if provided.Cmp(quoted) != 0 {
		t.Fatalf("provision %s diverged from quote %s", provided, quoted)
	}
	sellerAsset, _ := h.tokens.BalanceOf(token.SymbolYield, seller)
	if sellerAsset.Sign() != 0 {
		t.Fatalf("seller asset not absorbed, holds %s", sellerAsset)
	}
	_, assetInv, err := h.stab.Balances()
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if assetInv.Cmp(amt(100)) != 0 {
		t.Fatalf("inventory asset %s, want %s", assetInv, amt(100))
	}
}

func TestFundingMovesInventory(t *testing.T) {
	h := newHarness(t)
	funder := addr(2)
	h.fund(t, funder, token.SymbolStable, amt(500))
	h.fund(t, funder, token.SymbolYield, amt(300))

	if err := h.stab.FundStable(funder, amt(500)); err != nil {
		t.Fatalf("fundStable: %v", err)
	}
	if err := h.stab.FundAsset(funder, amt(300)); err != nil {
		t.Fatalf("fundAsset: %v", err)
	}
	stable, asset, err := h.stab.Balances()
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if stable.Cmp(amt(500)) != 0 || asset.Cmp(amt(300)) != 0 {
		t.Fatalf("unexpected inventory %s/%s", stable, asset)
	}
	if err := h.stab.FundStable(funder, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestWithdrawFees(t *testing.T) {
	h := newHarness(t)
	seller := addr(2)
	h.fund(t, h.account, token.SymbolStable, amt(1000))
	if _, err := h.stab.ExecuteLiquidity(h.router, seller, amt(100)); err != nil {
		t.Fatalf("execute: %v", err)
	}
	accrued, err := h.stab.TotalFeesEarned()
	if err != nil {
		t.Fatalf("fees: %v", err)
	}
	if accrued.Sign() <= 0 {
		t.Fatalf("expected accrued fees, got %s", accrued)
	}

	if _, err := h.stab.WithdrawFees(addr(9)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	withdrawn, err := h.stab.WithdrawFees(h.operator)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if withdrawn.Cmp(accrued) != 0 {
		t.Fatalf("withdrew %s, want %s", withdrawn, accrued)
	}
	operatorBal, _ := h.tokens.BalanceOf(token.SymbolStable, h.operator)
	if operatorBal.Cmp(accrued) != 0 {
		t.Fatalf("operator holds %s, want %s", operatorBal, accrued)
	}
	again, err := h.stab.WithdrawFees(h.operator)
	if err != nil {
		t.Fatalf("second withdraw: %v", err)
	}
	if again.Sign() != 0 {
		t.Fatalf("expected zero on empty counter, got %s", again)
	}
}
