// Package token implements the fungible asset ledger backing the router. Two
// assets share one key-value keyspace: the yield token sold into the router
// and the stable token paid out for it. Balances are persisted as decimal
// strings so amounts survive RLP round trips without precision loss.
package token

import (
	"fmt"
	"math/big"
	"strings"
)

// Well-known ledger symbols.
const (
	SymbolYield  = "YLD"
	SymbolStable = "USDC"
)

// Storage abstracts the subset of state manager functionality required by the
// token ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type storedAmount struct {
	Amount string
}

// Ledger persists balances, allowances, and total supply per symbol. Mint and
// burn are restricted to registered controller addresses; transfers are open
// to any holder.
type Ledger struct {
	store       Storage
	controllers map[[20]byte]bool
}

// NewLedger constructs a ledger bound to the provided storage backend.
func NewLedger(store Storage) *Ledger {
	return &Ledger{store: store, controllers: make(map[[20]byte]bool)}
}

// AddController authorizes the address to mint and burn on this ledger.
func (l *Ledger) AddController(addr [20]byte) {
	if l == nil {
		return
	}
	l.controllers[addr] = true
}

func knownSymbol(symbol string) bool {
	switch symbol {
	case SymbolYield, SymbolStable:
		return true
	default:
		return false
	}
}

// BalanceOf returns the current balance for the account. Unknown accounts
// report zero.
func (l *Ledger) BalanceOf(symbol string, addr [20]byte) (*big.Int, error) {
	if l == nil {
		return nil, errNotInitialised()
	}
	if !knownSymbol(symbol) {
		return nil, ErrUnknownSymbol
	}
	return l.readAmount(balanceKey(symbol, addr))
}

// Allowance returns the remaining amount the spender may move from the owner.
func (l *Ledger) Allowance(symbol string, owner, spender [20]byte) (*big.Int, error) {
	if l == nil {
		return nil, errNotInitialised()
	}
	if !knownSymbol(symbol) {
		return nil, ErrUnknownSymbol
	}
	return l.readAmount(allowanceKey(symbol, owner, spender))
}

// TotalSupply returns the outstanding supply for the symbol.
func (l *Ledger) TotalSupply(symbol string) (*big.Int, error) {
	if l == nil {
		return nil, errNotInitialised()
	}
	if !knownSymbol(symbol) {
		return nil, ErrUnknownSymbol
	}
	return l.readAmount(supplyKey(symbol))
}

// Transfer moves amount from one holder to another. A zero amount is a no-op
// that still validates the symbol.
func (l *Ledger) Transfer(symbol string, from, to [20]byte, amount *big.Int) error {
	if l == nil {
		return errNotInitialised()
	}
	if !knownSymbol(symbol) {
		return ErrUnknownSymbol
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	fromBal, err := l.readAmount(balanceKey(symbol, from))
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBal, err := l.readAmount(balanceKey(symbol, to))
	if err != nil {
		return err
	}
	if err := l.writeAmount(balanceKey(symbol, from), new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return l.writeAmount(balanceKey(symbol, to), new(big.Int).Add(toBal, amount))
}

// Approve sets the allowance the spender may draw from the owner. The value
// replaces any prior allowance.
func (l *Ledger) Approve(symbol string, owner, spender [20]byte, amount *big.Int) error {
	if l == nil {
		return errNotInitialised()
	}
	if !knownSymbol(symbol) {
		return ErrUnknownSymbol
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return l.writeAmount(allowanceKey(symbol, owner, spender), amount)
}

// TransferFrom moves amount from the owner to the recipient on behalf of the
// spender, consuming allowance.
func (l *Ledger) TransferFrom(symbol string, spender, owner, to [20]byte, amount *big.Int) error {
	if l == nil {
		return errNotInitialised()
	}
	if !knownSymbol(symbol) {
		return ErrUnknownSymbol
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	allowance, err := l.readAmount(allowanceKey(symbol, owner, spender))
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.Transfer(symbol, owner, to, amount); err != nil {
		return err
	}
	return l.writeAmount(allowanceKey(symbol, owner, spender), new(big.Int).Sub(allowance, amount))
}

// Mint credits freshly issued tokens to the recipient. Caller must be a
// registered controller.
func (l *Ledger) Mint(symbol string, caller, to [20]byte, amount *big.Int) error {
	if l == nil {
		return errNotInitialised()
	}
	if !knownSymbol(symbol) {
		return ErrUnknownSymbol
	}
	if !l.controllers[caller] {
		return ErrUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.readAmount(balanceKey(symbol, to))
	if err != nil {
		return err
	}
	supply, err := l.readAmount(supplyKey(symbol))
	if err != nil {
		return err
	}
	if err := l.writeAmount(balanceKey(symbol, to), new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	return l.writeAmount(supplyKey(symbol), new(big.Int).Add(supply, amount))
}

// Burn destroys tokens held by the target account. Caller must be a
// registered controller.
func (l *Ledger) Burn(symbol string, caller, from [20]byte, amount *big.Int) error {
	if l == nil {
		return errNotInitialised()
	}
	if !knownSymbol(symbol) {
		return ErrUnknownSymbol
	}
	if !l.controllers[caller] {
		return ErrUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.readAmount(balanceKey(symbol, from))
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	supply, err := l.readAmount(supplyKey(symbol))
	if err != nil {
		return err
	}
	if err := l.writeAmount(balanceKey(symbol, from), new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	return l.writeAmount(supplyKey(symbol), new(big.Int).Sub(supply, amount))
}

func (l *Ledger) readAmount(key []byte) (*big.Int, error) {
	var stored storedAmount
	ok, err := l.store.KVGet(key, &stored)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(stored.Amount) == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(stored.Amount), 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	return amount, nil
}

func (l *Ledger) writeAmount(key []byte, amount *big.Int) error {
	return l.store.KVPut(key, storedAmount{Amount: amount.String()})
}

func errNotInitialised() error {
	return fmt.Errorf("token: ledger not initialised")
}
