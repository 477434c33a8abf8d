package pool

import (
	"fmt"
	"math/big"
	"strings"
)

// Storage abstracts the subset of state manager functionality required by the
// reserve and share ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type storedAmount struct {
	Amount string
}

// Ledger owns the pool's two reserve balances and the per-provider share
// accounting. All mutations preserve sum(shares) == totalShares and keep every
// balance non-negative; callers wrap mutations in a state snapshot so a
// failure mid-operation leaves nothing behind.
type Ledger struct {
	store Storage
}

// NewLedger constructs a ledger bound to the provided storage backend.
func NewLedger(store Storage) *Ledger {
	return &Ledger{store: store}
}

// Reserves returns the current stable and asset reserves.
func (l *Ledger) Reserves() (*big.Int, *big.Int, error) {
	if l == nil {
		return nil, nil, fmt.Errorf("pool: ledger not initialised")
	}
	stable, err := l.readAmount(stableReserveKey)
	if err != nil {
		return nil, nil, err
	}
	asset, err := l.readAmount(assetReserveKey)
	if err != nil {
		return nil, nil, err
	}
	return stable, asset, nil
}

func (l *Ledger) setReserves(stable, asset *big.Int) error {
	if stable.Sign() < 0 || asset.Sign() < 0 {
		return ErrInsufficientLiquidity
	}
	if err := l.writeAmount(stableReserveKey, stable); err != nil {
		return err
	}
	return l.writeAmount(assetReserveKey, asset)
}

// TotalShares returns the sum of all outstanding LP shares.
func (l *Ledger) TotalShares() (*big.Int, error) {
	if l == nil {
		return nil, fmt.Errorf("pool: ledger not initialised")
	}
	return l.readAmount(totalSharesKey)
}

// SharesOf returns the provider's proportional claim on the reserves.
func (l *Ledger) SharesOf(provider [20]byte) (*big.Int, error) {
	if l == nil {
		return nil, fmt.Errorf("pool: ledger not initialised")
	}
	return l.readAmount(shareKey(provider))
}

// mintShares applies the deposit share formula and credits the provider. The
// first deposit mints the geometric mean of the two amounts; later deposits
// mint the minimum of the two proportional ratios so the scarcer side bounds
// the claim. Returns the shares minted.
func (l *Ledger) mintShares(provider [20]byte, stableAmount, assetAmount *big.Int) (*big.Int, error) {
	stableReserve, assetReserve, err := l.Reserves()
	if err != nil {
		return nil, err
	}
	totalShares, err := l.TotalShares()
	if err != nil {
		return nil, err
	}

	var minted *big.Int
	if totalShares.Sign() == 0 {
		minted = new(big.Int).Sqrt(new(big.Int).Mul(stableAmount, assetAmount))
	} else {
		if stableReserve.Sign() == 0 || assetReserve.Sign() == 0 {
			// Reserves drained while shares remain outstanding: a
			// proportional mint would divide by zero, and any fallback
			// dilutes existing holders.
			return nil, ErrInvalidShareAmount
		}
		byStable := new(big.Int).Div(new(big.Int).Mul(stableAmount, totalShares), stableReserve)
		byAsset := new(big.Int).Div(new(big.Int).Mul(assetAmount, totalShares), assetReserve)
		minted = byStable
		if byAsset.Cmp(minted) < 0 {
			minted = byAsset
		}
	}
	if minted.Sign() <= 0 {
		return nil, ErrInvalidShareAmount
	}

	held, err := l.SharesOf(provider)
	if err != nil {
		return nil, err
	}
	if err := l.setReserves(new(big.Int).Add(stableReserve, stableAmount), new(big.Int).Add(assetReserve, assetAmount)); err != nil {
		return nil, err
	}
	if err := l.writeAmount(shareKey(provider), new(big.Int).Add(held, minted)); err != nil {
		return nil, err
	}
	if err := l.writeAmount(totalSharesKey, new(big.Int).Add(totalShares, minted)); err != nil {
		return nil, err
	}
	return minted, nil
}

// burnShares debits the provider and returns the proportional payout of each
// reserve, truncated toward zero. Reserves and share counts are decremented
// here, before any funds move.
func (l *Ledger) burnShares(provider [20]byte, shareAmount *big.Int) (*big.Int, *big.Int, error) {
	held, err := l.SharesOf(provider)
	if err != nil {
		return nil, nil, err
	}
	if held.Cmp(shareAmount) < 0 {
		return nil, nil, ErrInsufficientShares
	}
	totalShares, err := l.TotalShares()
	if err != nil {
		return nil, nil, err
	}
	stableReserve, assetReserve, err := l.Reserves()
	if err != nil {
		return nil, nil, err
	}

	stableOut := new(big.Int).Div(new(big.Int).Mul(stableReserve, shareAmount), totalShares)
	assetOut := new(big.Int).Div(new(big.Int).Mul(assetReserve, shareAmount), totalShares)

	if err := l.setReserves(new(big.Int).Sub(stableReserve, stableOut), new(big.Int).Sub(assetReserve, assetOut)); err != nil {
		return nil, nil, err
	}
	if err := l.writeAmount(shareKey(provider), new(big.Int).Sub(held, shareAmount)); err != nil {
		return nil, nil, err
	}
	if err := l.writeAmount(totalSharesKey, new(big.Int).Sub(totalShares, shareAmount)); err != nil {
		return nil, nil, err
	}
	return stableOut, assetOut, nil
}

// Stats holds the cumulative trading counters. Informational only.
type Stats struct {
	TotalBought *big.Int
	TotalSold   *big.Int
	ProtocolFee *big.Int
}

// Stats returns the cumulative counters for buys, sells, and protocol fees.
func (l *Ledger) Stats() (Stats, error) {
	if l == nil {
		return Stats{}, fmt.Errorf("pool: ledger not initialised")
	}
	bought, err := l.readAmount(statsBoughtKey)
	if err != nil {
		return Stats{}, err
	}
	sold, err := l.readAmount(statsSoldKey)
	if err != nil {
		return Stats{}, err
	}
	fees, err := l.readAmount(statsFeesKey)
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalBought: bought, TotalSold: sold, ProtocolFee: fees}, nil
}

func (l *Ledger) addStat(key []byte, delta *big.Int) error {
	current, err := l.readAmount(key)
	if err != nil {
		return err
	}
	return l.writeAmount(key, new(big.Int).Add(current, delta))
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
		return nil, fmt.Errorf("pool: corrupt amount at %q", key)
	}
	return amount, nil
}

func (l *Ledger) writeAmount(key []byte, amount *big.Int) error {
	return l.store.KVPut(key, storedAmount{Amount: amount.String()})
}
