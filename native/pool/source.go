package pool

import "math/big"

// SourceQuote is the response to a solicitation: how much stable the source
// will disburse for the requested asset quantity, and the fee it charges.
// Quotes are transient and never persisted.
type SourceQuote struct {
	StableOffered *big.Int
	FeeBps        uint32
}

// LiquiditySource is the contract every registered external source implements.
// Quote must be side-effect free; Execute must re-derive the same numbers it
// quoted, move the stable directly to the seller, and report the amount moved.
type LiquiditySource interface {
	Quote(assetAmount *big.Int) (SourceQuote, error)
	Execute(seller [20]byte, assetAmount *big.Int) (*big.Int, error)
}
