package token

import (
	"errors"
	"math/big"
	"testing"

	"liquidroute/storage"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedger(storage.NewState(storage.NewMemDB()))
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func TestMintRequiresController(t *testing.T) {
	ledger := newTestLedger(t)
	minter := addr(1)
	holder := addr(2)
	if err := ledger.Mint(SymbolYield, minter, holder, big.NewInt(100)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	ledger.AddController(minter)
	if err := ledger.Mint(SymbolYield, minter, holder, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	balance, err := ledger.BalanceOf(SymbolYield, holder)
	if err != nil {
		t.Fatalf("balanceOf: %v", err)
	}
	if balance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected balance 100, got %s", balance)
	}
	supply, err := ledger.TotalSupply(SymbolYield)
	if err != nil {
		t.Fatalf("totalSupply: %v", err)
	}
	if supply.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected supply 100, got %s", supply)
	}
}

func TestTransferMovesBalance(t *testing.T) {
	ledger := newTestLedger(t)
	minter := addr(1)
	ledger.AddController(minter)
	from := addr(2)
	to := addr(3)
	if err := ledger.Mint(SymbolStable, minter, from, big.NewInt(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(SymbolStable, from, to, big.NewInt(120)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	fromBal, _ := ledger.BalanceOf(SymbolStable, from)
	toBal, _ := ledger.BalanceOf(SymbolStable, to)
	if fromBal.Cmp(big.NewInt(380)) != 0 || toBal.Cmp(big.NewInt(120)) != 0 {
		t.Fatalf("unexpected balances %s/%s", fromBal, toBal)
	}
	if err := ledger.Transfer(SymbolStable, from, to, big.NewInt(1000)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := ledger.Transfer(SymbolStable, from, to, big.NewInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestTransferUnknownSymbol(t *testing.T) {
	ledger := newTestLedger(t)
	if err := ledger.Transfer("DOGE", addr(1), addr(2), big.NewInt(1)); !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("expected ErrUnknownSymbol, got %v", err)
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	ledger := newTestLedger(t)
	minter := addr(1)
	ledger.AddController(minter)
	owner := addr(2)
	spender := addr(3)
	recipient := addr(4)
	if err := ledger.Mint(SymbolYield, minter, owner, big.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.TransferFrom(SymbolYield, spender, owner, recipient, big.NewInt(10)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if err := ledger.Approve(SymbolYield, owner, spender, big.NewInt(250)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.TransferFrom(SymbolYield, spender, owner, recipient, big.NewInt(200)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	remaining, err := ledger.Allowance(SymbolYield, owner, spender)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if remaining.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected allowance 50, got %s", remaining)
	}
	if err := ledger.TransferFrom(SymbolYield, spender, owner, recipient, big.NewInt(51)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
}

func TestBurnReducesSupply(t *testing.T) {
	ledger := newTestLedger(t)
	minter := addr(1)
	ledger.AddController(minter)
	holder := addr(2)
	if err := ledger.Mint(SymbolYield, minter, holder, big.NewInt(300)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Burn(SymbolYield, minter, holder, big.NewInt(120)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	balance, _ := ledger.BalanceOf(SymbolYield, holder)
	supply, _ := ledger.TotalSupply(SymbolYield)
	if balance.Cmp(big.NewInt(180)) != 0 {
		t.Fatalf("expected balance 180, got %s", balance)
	}
	if supply.Cmp(big.NewInt(180)) != 0 {
		t.Fatalf("expected supply 180, got %s", supply)
	}
	if err := ledger.Burn(SymbolYield, minter, holder, big.NewInt(500)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}
