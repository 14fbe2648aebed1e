package dex

import "errors"

// Failures reported by exchange primitives. The messages follow the revert
// strings of the on-chain contracts they stand in for.
var (
	ErrPoolNotFound          = errors.New("pool not found")
	ErrPoolExists            = errors.New("pool already exists")
	ErrInvalidFeeTier        = errors.New("invalid fee tier")
	ErrIdenticalAddresses    = errors.New("identical addresses")
	ErrZeroAddress           = errors.New("zero address")
	ErrPoolPaused            = errors.New("pool paused")
	ErrLocked                = errors.New("LOK")
	ErrNoLiquidity           = errors.New("L")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrZeroAmount            = errors.New("AS")
	ErrInsufficientInput     = errors.New("IIA")
	ErrFlashNotRepaid0       = errors.New("F0")
	ErrFlashNotRepaid1       = errors.New("F1")
	ErrTooLittleReceived     = errors.New("Too little received")
	ErrUnknownCaller         = errors.New("caller is not a pool")
)
