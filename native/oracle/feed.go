// Package oracle maintains the fair price and risk signal consumed by the
// routing engine. The price is a 7-decimal fixed-point quote of the yield
// token in stable terms; risk is a basis-point score fed into sell fees.
package oracle

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"liquidroute/core/events"
)

// PriceScale is the fixed-point denominator for oracle prices: a price of
// 10_000_000 means one yield token trades at exactly one stable token.
const PriceScale = 10_000_000

// MaxRiskBps caps the risk score at 100%.
const MaxRiskBps = 10_000

var (
	// ErrUnauthorized indicates the caller is not the registered updater or admin.
	ErrUnauthorized = errors.New("oracle: unauthorized")
	// ErrInvalidPrice indicates a nil or non-positive price.
	ErrInvalidPrice = errors.New("oracle: invalid price")
	// ErrInvalidRisk indicates a risk score outside [0, 10000] basis points.
	ErrInvalidRisk = errors.New("oracle: invalid risk")
)

// Storage abstracts the subset of state manager functionality required by the
// price feed.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	quoteKey   = []byte("oracle/quote")
	updaterKey = []byte("oracle/updater")
)

type storedQuote struct {
	Price string
	Risk  uint32
}

type storedUpdater struct {
	Updater [20]byte
	Set     bool
}

// Feed is the storage-backed price oracle. Updates are restricted to a single
// updater address configured by the admin.
type Feed struct {
	store   Storage
	admin   [20]byte
	emitter events.Emitter
}

// NewFeed constructs a feed administered by the supplied address.
func NewFeed(store Storage, admin [20]byte) *Feed {
	return &Feed{store: store, admin: admin, emitter: events.NoopEmitter{}}
}

// SetEmitter overrides the event emitter used for update notifications.
func (f *Feed) SetEmitter(emitter events.Emitter) {
	if f == nil || emitter == nil {
		return
	}
	f.emitter = emitter
}

// SetUpdater assigns the address permitted to push quotes. Only the admin may
// call it.
func (f *Feed) SetUpdater(caller, updater [20]byte) error {
	if f == nil {
		return fmt.Errorf("oracle: feed not initialised")
	}
	if caller != f.admin {
		return ErrUnauthorized
	}
	return f.store.KVPut(updaterKey, storedUpdater{Updater: updater, Set: true})
}

// Update records a new fair price and risk score. The caller must match the
// registered updater.
func (f *Feed) Update(caller [20]byte, price *big.Int, riskBps uint32) error {
	if f == nil {
		return fmt.Errorf("oracle: feed not initialised")
	}
	var updater storedUpdater
	ok, err := f.store.KVGet(updaterKey, &updater)
	if err != nil {
		return err
	}
	if !ok || !updater.Set || caller != updater.Updater {
		return ErrUnauthorized
	}
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	if riskBps > MaxRiskBps {
		return ErrInvalidRisk
	}
	if err := f.store.KVPut(quoteKey, storedQuote{Price: price.String(), Risk: riskBps}); err != nil {
		return err
	}
	f.emitter.Emit(quoteUpdated{Price: new(big.Int).Set(price), Risk: riskBps})
	return nil
}

// FairPrice returns the current 7-decimal fixed-point price. Before the first
// update the feed reports par.
func (f *Feed) FairPrice() (*big.Int, error) {
	quote, err := f.loadQuote()
	if err != nil {
		return nil, err
	}
	return quote.price, nil
}

// RiskBps returns the current risk score in basis points. Before the first
// update the feed reports the default of 1000.
func (f *Feed) RiskBps() (uint32, error) {
	quote, err := f.loadQuote()
	if err != nil {
		return 0, err
	}
	return quote.risk, nil
}

type loadedQuote struct {
	price *big.Int
	risk  uint32
}

func (f *Feed) loadQuote() (loadedQuote, error) {
	if f == nil {
		return loadedQuote{}, fmt.Errorf("oracle: feed not initialised")
	}
	var stored storedQuote
	ok, err := f.store.KVGet(quoteKey, &stored)
	if err != nil {
		return loadedQuote{}, err
	}
	if !ok {
		return loadedQuote{price: big.NewInt(PriceScale), risk: defaultRiskBps}, nil
	}
	price, okParse := new(big.Int).SetString(strings.TrimSpace(stored.Price), 10)
	if !okParse || price.Sign() <= 0 {
		return loadedQuote{}, ErrInvalidPrice
	}
	return loadedQuote{price: price, risk: stored.Risk}, nil
}

const defaultRiskBps = 1000
