// Package stabilizer implements an external liquidity source: an
// independently operated counterparty holding its own stable inventory that
// absorbs asset on demand in exchange for a risk-tiered fee. It answers the
// router's quoting protocol and also serves sellers directly.
package stabilizer

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"liquidroute/core/events"
	"liquidroute/native/pool"
	"liquidroute/native/token"
)

const (
	priceScale = 10_000_000
	bpsDenom   = 10_000
)

var (
	// ErrInvalidAmount indicates a nil or non-positive quantity.
	ErrInvalidAmount = errors.New("stabilizer: invalid amount")
	// ErrInsufficientBalance indicates the stabilizer's stable inventory cannot cover the quote.
	ErrInsufficientBalance = errors.New("stabilizer: insufficient balance")
	// ErrUnauthorized indicates the caller is neither the bound router nor the operator.
	ErrUnauthorized = errors.New("stabilizer: unauthorized")
)

// PriceFeed supplies the fair price and risk score used for fee tiering.
type PriceFeed interface {
	FairPrice() (*big.Int, error)
	RiskBps() (uint32, error)
}

// AssetLedger is the token primitive the stabilizer settles against.
type AssetLedger interface {
	Transfer(symbol string, from, to [20]byte, amount *big.Int) error
	BalanceOf(symbol string, addr [20]byte) (*big.Int, error)
}

// Storage abstracts the subset of state manager functionality required for
// fee accounting.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type storedAmount struct {
	Amount string
}

// Stabilizer holds stable and asset inventory under its account address and
// accrues the spread between gross value and disbursed stable as fee revenue.
type Stabilizer struct {
	state   Storage
	tokens  AssetLedger
	feed    PriceFeed
	emitter events.Emitter

	account  [20]byte
	router   [20]byte
	operator [20]byte
}

// New constructs a stabilizer. The account address holds its inventory, the
// router address is the only caller allowed to execute routed fills, and the
// operator may withdraw accrued fees.
func New(state Storage, tokens AssetLedger, feed PriceFeed, account, router, operator [20]byte) *Stabilizer {
	return &Stabilizer{
		state:    state,
		tokens:   tokens,
		feed:     feed,
		emitter:  events.NoopEmitter{},
		account:  account,
		router:   router,
		operator: operator,
	}
}

// SetEmitter overrides the event emitter.
func (s *Stabilizer) SetEmitter(emitter events.Emitter) {
	if s == nil || emitter == nil {
		return
	}
	s.emitter = emitter
}

// Account returns the stabilizer's inventory address, the identity it
// registers with the router under.
func (s *Stabilizer) Account() [20]byte {
	if s == nil {
		return [20]byte{}
	}
	return s.account
}

// feeTierBps maps the oracle risk score onto the four-step fee schedule.
func feeTierBps(risk uint32) uint32 {
	switch {
	case risk < 1500:
		return 500
	case risk < 3000:
		return 1000
	case risk < 5000:
		return 2000
	default:
		return 3000
	}
}

// derive computes the gross value, fee tier, and stable disbursement for an
// asset quantity at the current oracle readings. Quote and execute both go
// through here so a quote can never diverge from its execution.
func (s *Stabilizer) derive(assetAmount *big.Int) (gross, provided *big.Int, feeBps uint32, err error) {
	fairPrice, err := s.feed.FairPrice()
	if err != nil {
		return nil, nil, 0, err
	}
	risk, err := s.feed.RiskBps()
	if err != nil {
		return nil, nil, 0, err
	}
	feeBps = feeTierBps(risk)
	gross = new(big.Int).Div(new(big.Int).Mul(assetAmount, fairPrice), big.NewInt(priceScale))
	provided = new(big.Int).Div(new(big.Int).Mul(gross, big.NewInt(int64(bpsDenom-feeBps))), big.NewInt(bpsDenom))
	return gross, provided, feeBps, nil
}

// RequestQuote answers the router's solicitation: the stable it will disburse
// for the asset quantity and the fee tier applied. Fails with
// ErrInsufficientBalance when inventory cannot cover the disbursement; the
// router downgrades that to "no quote".
func (s *Stabilizer) RequestQuote(assetAmount *big.Int) (*big.Int, uint32, error) {
	if s == nil {
		return nil, 0, fmt.Errorf("stabilizer: not initialised")
	}
	if assetAmount == nil || assetAmount.Sign() <= 0 {
		return nil, 0, ErrInvalidAmount
	}
	_, provided, feeBps, err := s.derive(assetAmount)
	if err != nil {
		return nil, 0, err
	}
	balance, err := s.tokens.BalanceOf(token.SymbolStable, s.account)
	if err != nil {
		return nil, 0, err
	}
	if balance.Cmp(provided) < 0 {
		return nil, 0, ErrInsufficientBalance
	}
	return provided, feeBps, nil
}

// ExecuteLiquidity fulfils a routed fill: it re-derives the quoted numbers,
// pays the seller directly, and accrues the spread. Only the bound router may
// call it; the router has already moved the asset into the stabilizer's
// account.
func (s *Stabilizer) ExecuteLiquidity(caller, seller [20]byte, assetAmount *big.Int) (*big.Int, error) {
	if s == nil {
		return nil, fmt.Errorf("stabilizer: not initialised")
	}
	if caller != s.router {
		return nil, ErrUnauthorized
	}
	return s.disburse(seller, assetAmount)
}

// ProvideDirect sells asset straight to the stabilizer, bypassing the router:
// the seller's asset moves into inventory and the stable disbursement flows
// back, at the same fee schedule as routed fills.
func (s *Stabilizer) ProvideDirect(seller [20]byte, assetAmount *big.Int) (*big.Int, error) {
	if s == nil {
		return nil, fmt.Errorf("stabilizer: not initialised")
	}
	if assetAmount == nil || assetAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	// Balance is checked before custody moves so a failed direct provision
	// leaves the seller untouched.
	_, provided, _, err := s.derive(assetAmount)
	if err != nil {
		return nil, err
	}
	balance, err := s.tokens.BalanceOf(token.SymbolStable, s.account)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(provided) < 0 {
		return nil, ErrInsufficientBalance
	}
	if err := s.tokens.Transfer(token.SymbolYield, seller, s.account, assetAmount); err != nil {
		return nil, err
	}
	return s.disburse(seller, assetAmount)
}

// QuoteDirect previews a direct provision without moving funds.
func (s *Stabilizer) QuoteDirect(assetAmount *big.Int) (*big.Int, uint32, error) {
	if s == nil {
		return nil, 0, fmt.Errorf("stabilizer: not initialised")
	}
	if assetAmount == nil || assetAmount.Sign() <= 0 {
		return nil, 0, ErrInvalidAmount
	}
	_, provided, feeBps, err := s.derive(assetAmount)
	if err != nil {
		return nil, 0, err
	}
	return provided, feeBps, nil
}

func (s *Stabilizer) disburse(seller [20]byte, assetAmount *big.Int) (*big.Int, error) {
	if assetAmount == nil || assetAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	gross, provided, feeBps, err := s.derive(assetAmount)
	if err != nil {
		return nil, err
	}
	balance, err := s.tokens.BalanceOf(token.SymbolStable, s.account)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(provided) < 0 {
		return nil, ErrInsufficientBalance
	}
	if err := s.tokens.Transfer(token.SymbolStable, s.account, seller, provided); err != nil {
		return nil, err
	}
	spread := new(big.Int).Sub(gross, provided)
	accrued, err := s.totalFees()
	if err != nil {
		return nil, err
	}
	if err := s.writeFees(new(big.Int).Add(accrued, spread)); err != nil {
		return nil, err
	}
	s.emitter.Emit(liquidityProvided{Seller: seller, AssetIn: new(big.Int).Set(assetAmount), StableOut: provided, FeeBps: feeBps})
	return provided, nil
}

// FundStable moves stable from the funder into inventory.
func (s *Stabilizer) FundStable(funder [20]byte, amount *big.Int) error {
	return s.fund(funder, token.SymbolStable, amount)
}

// FundAsset moves asset from the funder into inventory.
func (s *Stabilizer) FundAsset(funder [20]byte, amount *big.Int) error {
	return s.fund(funder, token.SymbolYield, amount)
}

func (s *Stabilizer) fund(funder [20]byte, symbol string, amount *big.Int) error {
	if s == nil {
		return fmt.Errorf("stabilizer: not initialised")
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := s.tokens.Transfer(symbol, funder, s.account, amount); err != nil {
		return err
	}
	s.emitter.Emit(funded{Funder: funder, Symbol: symbol, Amount: new(big.Int).Set(amount)})
	return nil
}

// WithdrawFees pays the accrued fee revenue to the operator and resets the
// counter. A zero balance is a successful no-op.
func (s *Stabilizer) WithdrawFees(caller [20]byte) (*big.Int, error) {
	if s == nil {
		return nil, fmt.Errorf("stabilizer: not initialised")
	}
	if caller != s.operator {
		return nil, ErrUnauthorized
	}
	accrued, err := s.totalFees()
	if err != nil {
		return nil, err
	}
	if accrued.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if err := s.writeFees(big.NewInt(0)); err != nil {
		return nil, err
	}
	if err := s.tokens.Transfer(token.SymbolStable, s.account, s.operator, accrued); err != nil {
		return nil, err
	}
	s.emitter.Emit(feesWithdrawn{Operator: s.operator, Amount: accrued})
	return accrued, nil
}

// Balances returns the stabilizer's current stable and asset inventory.
func (s *Stabilizer) Balances() (*big.Int, *big.Int, error) {
	if s == nil {
		return nil, nil, fmt.Errorf("stabilizer: not initialised")
	}
	stable, err := s.tokens.BalanceOf(token.SymbolStable, s.account)
	if err != nil {
		return nil, nil, err
	}
	asset, err := s.tokens.BalanceOf(token.SymbolYield, s.account)
	if err != nil {
		return nil, nil, err
	}
	return stable, asset, nil
}

// TotalFeesEarned returns the cumulative fee revenue, withdrawn or not.
func (s *Stabilizer) TotalFeesEarned() (*big.Int, error) {
	if s == nil {
		return nil, fmt.Errorf("stabilizer: not initialised")
	}
	return s.totalFees()
}

func (s *Stabilizer) feesKey() []byte {
	return []byte(fmt.Sprintf("stab/%x/fees", s.account))
}

func (s *Stabilizer) totalFees() (*big.Int, error) {
	var stored storedAmount
	ok, err := s.state.KVGet(s.feesKey(), &stored)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(stored.Amount) == "" {
		return big.NewInt(0), nil
	}
	amount, okParse := new(big.Int).SetString(strings.TrimSpace(stored.Amount), 10)
	if !okParse {
		return nil, fmt.Errorf("stabilizer: corrupt fee counter")
	}
	return amount, nil
}

func (s *Stabilizer) writeFees(amount *big.Int) error {
	return s.state.KVPut(s.feesKey(), storedAmount{Amount: amount.String()})
}

// routedSource adapts the stabilizer to the router's quoting protocol,
// binding the caller identity used for execution authorization.
type routedSource struct {
	stab   *Stabilizer
	caller [20]byte
}

// Source returns the pool-facing adapter. The caller address is the router
// module identity that execution authorization is checked against.
func (s *Stabilizer) Source(caller [20]byte) pool.LiquiditySource {
	return routedSource{stab: s, caller: caller}
}

func (r routedSource) Quote(assetAmount *big.Int) (pool.SourceQuote, error) {
	provided, feeBps, err := r.stab.RequestQuote(assetAmount)
	if err != nil {
		return pool.SourceQuote{}, err
	}
	return pool.SourceQuote{StableOffered: provided, FeeBps: feeBps}, nil
}

func (r routedSource) Execute(seller [20]byte, assetAmount *big.Int) (*big.Int, error) {
	return r.stab.ExecuteLiquidity(r.caller, seller, assetAmount)
}
