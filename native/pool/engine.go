// Package pool implements the reserve and share accounting engine and the
// swap-routing protocol. Sell orders drain internal reserves first and fall
// back to competitively-quoted external liquidity sources; every public
// operation runs inside a state snapshot so a failure anywhere rolls the
// whole order back, custody transfers included.
package pool

import (
	"fmt"
	"math/big"

	"liquidroute/core/events"
	"liquidroute/core/types"
	"liquidroute/native/common"
	"liquidroute/native/token"
)

const (
	// priceScale is the fixed-point denominator shared with the oracle.
	priceScale = 10_000_000
	bpsDenom   = 10_000

	protocolFeeBps   = 100
	operatorSharePct = 99

	baseSellFeeBps = 300
	maxSellFeeBps  = 5000

	// shortageBufferBps inflates the externally-routed asset estimate by 10%
	// so the winning source's own fee does not under-deliver the shortage.
	shortageBufferBps = 11_000

	moduleName = "pool"
)

// PriceFeed supplies the fair reference price and the default-risk score.
type PriceFeed interface {
	FairPrice() (*big.Int, error)
	RiskBps() (uint32, error)
}

// AssetLedger is the fungible token primitive the engine settles against.
type AssetLedger interface {
	Transfer(symbol string, from, to [20]byte, amount *big.Int) error
	Mint(symbol string, caller, to [20]byte, amount *big.Int) error
	Burn(symbol string, caller, from [20]byte, amount *big.Int) error
	BalanceOf(symbol string, addr [20]byte) (*big.Int, error)
}

// StateStorage extends Storage with the snapshot discipline that makes each
// public operation atomic.
type StateStorage interface {
	Storage
	Snapshot() int
	RevertToSnapshot(snapshot int) error
	Commit(snapshot int)
}

// Engine is the swap router. It owns the custody account that holds pool
// reserves, routes sell orders between the internal pool and registered
// external sources, and keeps the share ledger consistent with reserves.
type Engine struct {
	state   StateStorage
	ledger  *Ledger
	tokens  AssetLedger
	feed    PriceFeed
	emitter events.Emitter
	pauses  common.PauseView

	module   [20]byte
	operator [20]byte

	sources map[[20]byte]LiquiditySource
}

// NewEngine constructs the router. The module address is the pool's custody
// account and must be registered as a controller on the token ledger; the
// operator receives buy proceeds and administers the source registry.
func NewEngine(state StateStorage, tokens AssetLedger, feed PriceFeed, module, operator [20]byte) *Engine {
	return &Engine{
		state:    state,
		ledger:   NewLedger(state),
		tokens:   tokens,
		feed:     feed,
		emitter:  events.NoopEmitter{},
		module:   module,
		operator: operator,
		sources:  make(map[[20]byte]LiquiditySource),
	}
}

// SetEmitter overrides the event emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil || emitter == nil {
		return
	}
	e.emitter = emitter
}

// SetPauses wires the administrative pause view.
func (e *Engine) SetPauses(pauses common.PauseView) {
	if e == nil {
		return
	}
	e.pauses = pauses
}

// BindSource associates a registered source identity with its in-process
// implementation. A registry entry with no binding is treated as declining
// every solicitation.
func (e *Engine) BindSource(addr [20]byte, source LiquiditySource) {
	if e == nil || source == nil {
		return
	}
	e.sources[addr] = source
}

// Ledger exposes the read-only share accounting surface.
// Module returns the pool's custody account.
func (e *Engine) Module() [20]byte {
	return e.module
}

// Operator returns the account receiving buy proceeds and holding registry
// admin rights.
func (e *Engine) Operator() [20]byte {
	return e.operator
}

func (e *Engine) Ledger() *Ledger {
	if e == nil {
		return nil
	}
	return e.ledger
}

func (e *Engine) emit(evt *types.Event) {
	e.emitter.Emit(poolEvent{evt: evt})
}

// atomic runs fn inside a state snapshot, reverting every effect on failure
// and releasing the undo entries once the operation commits.
func (e *Engine) atomic(fn func() error) error {
	snapshot := e.state.Snapshot()
	if err := fn(); err != nil {
		if revertErr := e.state.RevertToSnapshot(snapshot); revertErr != nil {
			return fmt.Errorf("pool: revert after %v: %w", err, revertErr)
		}
		return err
	}
	e.state.Commit(snapshot)
	return nil
}

// Deposit transfers both assets from the provider into pool custody and mints
// LP shares per the proportional formula. Returns the shares minted.
func (e *Engine) Deposit(provider [20]byte, stableAmount, assetAmount *big.Int) (*big.Int, error) {
	if e == nil {
		return nil, fmt.Errorf("pool: engine not initialised")
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if stableAmount == nil || stableAmount.Sign() <= 0 || assetAmount == nil || assetAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	var minted *big.Int
	err := e.atomic(func() error {
		if err := e.tokens.Transfer(token.SymbolStable, provider, e.module, stableAmount); err != nil {
			return fmt.Errorf("%w: stable deposit: %v", ErrTransferFailed, err)
		}
		if err := e.tokens.Transfer(token.SymbolYield, provider, e.module, assetAmount); err != nil {
			return fmt.Errorf("%w: asset deposit: %v", ErrTransferFailed, err)
		}
		var mintErr error
		minted, mintErr = e.ledger.mintShares(provider, stableAmount, assetAmount)
		return mintErr
	})
	if err != nil {
		return nil, err
	}
	e.emit(newLiquidityAddedEvent(provider, stableAmount, assetAmount, minted))
	return minted, nil
}

// Withdraw burns the provider's shares and pays out the proportional slice of
// each reserve, truncated toward zero. Share accounting is settled before any
// funds move.
func (e *Engine) Withdraw(provider [20]byte, shareAmount *big.Int) (*big.Int, *big.Int, error) {
	if e == nil {
		return nil, nil, fmt.Errorf("pool: engine not initialised")
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	if shareAmount == nil || shareAmount.Sign() <= 0 {
		return nil, nil, ErrInvalidShareAmount
	}
	var stableOut, assetOut *big.Int
	err := e.atomic(func() error {
		var burnErr error
		stableOut, assetOut, burnErr = e.ledger.burnShares(provider, shareAmount)
		if burnErr != nil {
			return burnErr
		}
		if err := e.tokens.Transfer(token.SymbolStable, e.module, provider, stableOut); err != nil {
			return fmt.Errorf("%w: stable withdrawal: %v", ErrTransferFailed, err)
		}
		if err := e.tokens.Transfer(token.SymbolYield, e.module, provider, assetOut); err != nil {
			return fmt.Errorf("%w: asset withdrawal: %v", ErrTransferFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.emit(newLiquidityRemovedEvent(provider, stableOut, assetOut, shareAmount))
	return stableOut, assetOut, nil
}

// Buy converts stable into freshly minted asset at the fair price. Pool
// reserves are not touched: the protocol fee accrues to custody, the residual
// is forwarded to the operator, and the asset comes from new supply.
func (e *Engine) Buy(buyer [20]byte, stableIn *big.Int) (*big.Int, error) {
	if e == nil {
		return nil, fmt.Errorf("pool: engine not initialised")
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if stableIn == nil || stableIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	fairPrice, err := e.feed.FairPrice()
	if err != nil {
		return nil, err
	}
	var assetOut, poolPrice *big.Int
	err = e.atomic(func() error {
		if err := e.tokens.Transfer(token.SymbolStable, buyer, e.module, stableIn); err != nil {
			return fmt.Errorf("%w: buy-in: %v", ErrTransferFailed, err)
		}
		fee := mulDivBps(stableIn, protocolFeeBps)
		afterFee := new(big.Int).Sub(stableIn, fee)
		operatorAmount := new(big.Int).Div(new(big.Int).Mul(afterFee, big.NewInt(operatorSharePct)), big.NewInt(100))
		if err := e.tokens.Transfer(token.SymbolStable, e.module, e.operator, operatorAmount); err != nil {
			return fmt.Errorf("%w: operator payout: %v", ErrTransferFailed, err)
		}
		assetOut = new(big.Int).Div(new(big.Int).Mul(operatorAmount, big.NewInt(priceScale)), fairPrice)
		if assetOut.Sign() <= 0 {
			return ErrInvalidAmount
		}
		if err := e.tokens.Mint(token.SymbolYield, e.module, buyer, assetOut); err != nil {
			return fmt.Errorf("%w: mint: %v", ErrTransferFailed, err)
		}
		if err := e.ledger.addStat(statsBoughtKey, stableIn); err != nil {
			return err
		}
		if err := e.ledger.addStat(statsFeesKey, fee); err != nil {
			return err
		}
		var priceErr error
		poolPrice, priceErr = e.impliedPrice(fairPrice)
		return priceErr
	})
	if err != nil {
		return nil, err
	}
	e.emit(newSwapBuyEvent(buyer, stableIn, assetOut, fairPrice, poolPrice, protocolFeeBps))
	return assetOut, nil
}

// Sell fills a sell order from pool reserves first and, when those fall
// short, solicits every registered external source, executing against the
// lowest-fee feasible quote. Custody of the full assetIn is taken up front;
// any failure reverts the whole order including that custody transfer.
func (e *Engine) Sell(seller [20]byte, assetIn *big.Int) (*big.Int, error) {
	if e == nil {
		return nil, fmt.Errorf("pool: engine not initialised")
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if assetIn == nil || assetIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	fairPrice, err := e.feed.FairPrice()
	if err != nil {
		return nil, err
	}
	risk, err := e.feed.RiskBps()
	if err != nil {
		return nil, err
	}
	feeBps := sellFeeBps(risk)
	gross := new(big.Int).Div(new(big.Int).Mul(assetIn, fairPrice), big.NewInt(priceScale))
	netOwed := new(big.Int).Div(new(big.Int).Mul(gross, big.NewInt(bpsDenom-int64(feeBps))), big.NewInt(bpsDenom))

	var (
		stableOut    *big.Int
		fromPool     *big.Int
		fromExternal = big.NewInt(0)
		poolPrice    *big.Int
		blendedFee   = feeBps
		externalUsed bool
	)
	err = e.atomic(func() error {
		if err := e.tokens.Transfer(token.SymbolYield, seller, e.module, assetIn); err != nil {
			return fmt.Errorf("%w: sell custody: %v", ErrTransferFailed, err)
		}
		stableReserve, assetReserve, err := e.ledger.Reserves()
		if err != nil {
			return err
		}

		if stableReserve.Cmp(netOwed) >= 0 {
			// Case A: the pool covers the whole order.
			if err := e.ledger.setReserves(new(big.Int).Sub(stableReserve, netOwed), new(big.Int).Add(assetReserve, assetIn)); err != nil {
				return err
			}
			if err := e.tokens.Transfer(token.SymbolStable, e.module, seller, netOwed); err != nil {
				return fmt.Errorf("%w: pool payout: %v", ErrTransferFailed, err)
			}
			if err := e.tokens.Burn(token.SymbolYield, e.module, e.module, assetIn); err != nil {
				return fmt.Errorf("%w: burn: %v", ErrTransferFailed, err)
			}
			stableOut = new(big.Int).Set(netOwed)
			fromPool = new(big.Int).Set(netOwed)
		} else {
			// Case B: drain the pool and route the shortage externally.
			out, extFee, err := e.sellExternal(seller, assetIn, fairPrice, netOwed, stableReserve, assetReserve)
			if err != nil {
				return err
			}
			stableOut = out.total
			fromPool = out.fromPool
			fromExternal = out.fromExternal
			externalUsed = true
			if out.fromPool.Sign() > 0 {
				weighted := new(big.Int).Add(
					new(big.Int).Mul(big.NewInt(int64(feeBps)), out.fromPool),
					new(big.Int).Mul(big.NewInt(int64(extFee)), out.fromExternal),
				)
				blendedFee = uint32(new(big.Int).Div(weighted, out.total).Uint64())
			} else {
				blendedFee = extFee
			}
		}

		if err := e.ledger.addStat(statsSoldKey, assetIn); err != nil {
			return err
		}
		var priceErr error
		poolPrice, priceErr = e.impliedPrice(fairPrice)
		return priceErr
	})
	if err != nil {
		return nil, err
	}
	e.emit(newSwapSellEvent(seller, assetIn, stableOut, fromPool, fromExternal, fairPrice, poolPrice, blendedFee, externalUsed))
	return stableOut, nil
}

type externalFill struct {
	fromPool     *big.Int
	fromExternal *big.Int
	total        *big.Int
}

// sellExternal handles the insufficient-pool branch: it sizes the asset
// quantity routed out (shortage at fair price, inflated by the safety
// buffer), solicits every registered source, and executes against the best
// feasible quote. Per-source failures are downgraded to "no quote".
func (e *Engine) sellExternal(seller [20]byte, assetIn, fairPrice, netOwed, stableReserve, assetReserve *big.Int) (externalFill, uint32, error) {
	shortage := new(big.Int).Sub(netOwed, stableReserve)
	base := new(big.Int).Div(new(big.Int).Mul(shortage, big.NewInt(priceScale)), fairPrice)
	assetForShortage := new(big.Int).Div(new(big.Int).Mul(base, big.NewInt(shortageBufferBps)), big.NewInt(bpsDenom))
	// The order's own asset bounds what can be routed out: the buffered
	// estimate must never be paid out of reserve custody, which would leave
	// the booked asset reserve above what the module actually holds.
	if assetForShortage.Cmp(assetIn) > 0 {
		assetForShortage = new(big.Int).Set(assetIn)
	}
	assetForPool := new(big.Int).Sub(assetIn, assetForShortage)

	registered, err := e.loadSources()
	if err != nil {
		return externalFill{}, 0, err
	}
	if len(registered) == 0 {
		return externalFill{}, 0, ErrNoLiquidityAvailable
	}

	var (
		winner    LiquiditySource
		winnerID  [20]byte
		bestFee   uint32
		haveQuote bool
	)
	for _, id := range registered {
		source, bound := e.sources[id]
		if !bound {
			continue
		}
		quote, err := source.Quote(assetForShortage)
		if err != nil || quote.StableOffered == nil {
			continue
		}
		if quote.StableOffered.Cmp(shortage) < 0 {
			continue
		}
		if !haveQuote || quote.FeeBps < bestFee {
			winner = source
			winnerID = id
			bestFee = quote.FeeBps
			haveQuote = true
		}
	}
	if !haveQuote {
		return externalFill{}, 0, ErrNoLiquidityAvailable
	}

	// The pool contributes whatever stable it still holds and absorbs the
	// portion of the order not routed externally.
	fromPool := new(big.Int).Set(stableReserve)
	if err := e.ledger.setReserves(big.NewInt(0), new(big.Int).Add(assetReserve, assetForPool)); err != nil {
		return externalFill{}, 0, err
	}
	if fromPool.Sign() > 0 {
		if err := e.tokens.Transfer(token.SymbolStable, e.module, seller, fromPool); err != nil {
			return externalFill{}, 0, fmt.Errorf("%w: pool payout: %v", ErrTransferFailed, err)
		}
	}

	if err := e.tokens.Transfer(token.SymbolYield, e.module, winnerID, assetForShortage); err != nil {
		return externalFill{}, 0, fmt.Errorf("%w: external routing: %v", ErrTransferFailed, err)
	}
	fromExternal, err := winner.Execute(seller, assetForShortage)
	if err != nil {
		return externalFill{}, 0, fmt.Errorf("pool: external execution: %w", err)
	}

	// Burn the custody remainder; the forwarded portion now belongs to the
	// winning source.
	burnAmount := new(big.Int).Sub(assetIn, assetForShortage)
	if burnAmount.Sign() > 0 {
		if err := e.tokens.Burn(token.SymbolYield, e.module, e.module, burnAmount); err != nil {
			return externalFill{}, 0, fmt.Errorf("%w: burn: %v", ErrTransferFailed, err)
		}
	}

	return externalFill{
		fromPool:     fromPool,
		fromExternal: fromExternal,
		total:        new(big.Int).Add(fromPool, fromExternal),
	}, bestFee, nil
}

// Quote is the result of a pure sell preview: how much stable the order would
// return, the pool fee applied, and the split between pool capacity and the
// residual that would need external sourcing.
type Quote struct {
	StableOut    *big.Int
	FeeBps       uint32
	FromPool     *big.Int
	FromExternal *big.Int
}

// QuoteSell previews a sell without touching state or soliciting sources.
func (e *Engine) QuoteSell(assetIn *big.Int) (Quote, error) {
	if e == nil {
		return Quote{}, fmt.Errorf("pool: engine not initialised")
	}
	if assetIn == nil || assetIn.Sign() <= 0 {
		return Quote{}, ErrInvalidAmount
	}
	fairPrice, err := e.feed.FairPrice()
	if err != nil {
		return Quote{}, err
	}
	risk, err := e.feed.RiskBps()
	if err != nil {
		return Quote{}, err
	}
	feeBps := sellFeeBps(risk)
	gross := new(big.Int).Div(new(big.Int).Mul(assetIn, fairPrice), big.NewInt(priceScale))
	netOwed := new(big.Int).Div(new(big.Int).Mul(gross, big.NewInt(bpsDenom-int64(feeBps))), big.NewInt(bpsDenom))
	stableReserve, _, err := e.ledger.Reserves()
	if err != nil {
		return Quote{}, err
	}
	if stableReserve.Cmp(netOwed) >= 0 {
		return Quote{
			StableOut:    netOwed,
			FeeBps:       feeBps,
			FromPool:     new(big.Int).Set(netOwed),
			FromExternal: big.NewInt(0),
		}, nil
	}
	return Quote{
		StableOut:    netOwed,
		FeeBps:       feeBps,
		FromPool:     new(big.Int).Set(stableReserve),
		FromExternal: new(big.Int).Sub(netOwed, stableReserve),
	}, nil
}

// impliedPrice reports the pool-local price signal: the reserve ratio when
// asset reserves exist, the fair price otherwise.
func (e *Engine) impliedPrice(fairPrice *big.Int) (*big.Int, error) {
	stableReserve, assetReserve, err := e.ledger.Reserves()
	if err != nil {
		return nil, err
	}
	if assetReserve.Sign() > 0 {
		return new(big.Int).Div(new(big.Int).Mul(stableReserve, big.NewInt(priceScale)), assetReserve), nil
	}
	return new(big.Int).Set(fairPrice), nil
}

// sellFeeBps derives the sell fee from the risk score: a 3% base plus a tenth
// of the score, capped at 50%.
func sellFeeBps(risk uint32) uint32 {
	fee := uint32(baseSellFeeBps) + risk/10
	if fee > maxSellFeeBps {
		return maxSellFeeBps
	}
	return fee
}

func mulDivBps(amount *big.Int, bps int64) *big.Int {
	return new(big.Int).Div(new(big.Int).Mul(amount, big.NewInt(bps)), big.NewInt(bpsDenom))
}
