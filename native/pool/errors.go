package pool

import "errors"

var (
	// ErrInvalidAmount indicates a nil or non-positive quantity.
	ErrInvalidAmount = errors.New("pool: invalid amount")
	// ErrInvalidShareAmount indicates a share computation produced no mintable shares.
	ErrInvalidShareAmount = errors.New("pool: invalid share amount")
	// ErrInsufficientShares indicates the provider holds fewer shares than requested.
	ErrInsufficientShares = errors.New("pool: insufficient shares")
	// ErrInsufficientLiquidity indicates reserves cannot cover the request.
	ErrInsufficientLiquidity = errors.New("pool: insufficient liquidity")
	// ErrNoLiquidityAvailable indicates neither the pool nor any external source can fill the order.
	ErrNoLiquidityAvailable = errors.New("pool: no liquidity available")
	// ErrTransferFailed indicates the token ledger rejected a movement.
	ErrTransferFailed = errors.New("pool: transfer failed")
	// ErrUnauthorized indicates the caller lacks the required authorization.
	ErrUnauthorized = errors.New("pool: unauthorized")
	// ErrAlreadyRegistered indicates the source is already in the registry.
	ErrAlreadyRegistered = errors.New("pool: source already registered")
	// ErrNotRegistered indicates the source is not in the registry.
	ErrNotRegistered = errors.New("pool: source not registered")
)
