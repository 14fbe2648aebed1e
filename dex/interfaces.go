package dex

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// FeeDenominator is the unit of pool fee tiers: a tier of 500 charges 500/1e6 = 0.05%
const FeeDenominator = 1_000_000

// MaxFeeTier is the largest value a uint24 fee tier can carry
const MaxFeeTier = 1<<24 - 1

// FlashCallback is implemented by contracts that borrow through Pool.Flash.
// sender is the address of the pool making the call.
type FlashCallback interface {
	UniswapV3FlashCallback(ctx context.Context, sender common.Address, fee0, fee1 *uint256.Int, data []byte) error
}

// SwapCallback is implemented by whoever pays for a Pool swap. The callee must
// transfer amount of token to the pool before returning.
type SwapCallback interface {
	UniswapV3SwapCallback(ctx context.Context, sender, token common.Address, amount *uint256.Int, data []byte) error
}

// Pool is a liquidity pool that can lend its reserves for the duration of a callback
type Pool interface {
	Address() common.Address
	Token0() common.Address
	Token1() common.Address
	Fee() uint32

	// Flash transfers the amounts to recipient, invokes callback and requires
	// the amounts plus fees to be back in the pool when the callback returns.
	Flash(ctx context.Context, callback FlashCallback, recipient common.Address, amount0, amount1 *uint256.Int, data []byte) error
}

// Factory knows how pool addresses are derived and which pools exist
type Factory interface {
	Address() common.Address
	// ComputeAddress derives the canonical pool address for a token pair and fee tier
	ComputeAddress(tokenA, tokenB common.Address, fee uint32) common.Address
	// PoolByAddress returns a deployed pool
	PoolByAddress(addr common.Address) (Pool, error)
}

// ExactInputSingleParams mirrors the swap router's single-hop exact-input call
type ExactInputSingleParams struct {
	TokenIn          common.Address
	TokenOut         common.Address
	Fee              uint32
	Recipient        common.Address
	AmountIn         *uint256.Int
	AmountOutMinimum *uint256.Int
}

// Router executes swaps on behalf of a sender that approved it
type Router interface {
	Address() common.Address

	// ExactInputSingle pulls AmountIn of TokenIn from sender and sends the
	// output to Recipient, failing with ErrTooLittleReceived below the minimum.
	ExactInputSingle(ctx context.Context, sender common.Address, params ExactInputSingleParams) (*uint256.Int, error)

	// QuoteExactInputSingle returns the output the swap would produce right now
	QuoteExactInputSingle(ctx context.Context, tokenIn, tokenOut common.Address, fee uint32, amountIn *uint256.Int) (*uint256.Int, error)
}
