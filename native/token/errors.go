package token

import "errors"

var (
	// ErrInvalidAmount indicates a nil, negative, or otherwise unusable amount.
	ErrInvalidAmount = errors.New("token: invalid amount")
	// ErrInsufficientBalance indicates the debited account cannot cover the amount.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrInsufficientAllowance indicates the spender allowance cannot cover the amount.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	// ErrUnauthorized indicates the caller is not permitted to mint or burn.
	ErrUnauthorized = errors.New("token: unauthorized")
	// ErrUnknownSymbol indicates the symbol is not a recognised ledger asset.
	ErrUnknownSymbol = errors.New("token: unknown symbol")
)
