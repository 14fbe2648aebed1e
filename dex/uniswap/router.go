package uniswap

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/flashswap/dex"
	"github.com/michaelpento.lv/flashswap/simulator"
)

// Router swaps through factory pools on behalf of accounts that approved it.
// It never holds tokens: input is pulled from the payer inside the pool's
// swap callback.
type Router struct {
	address common.Address
	factory *Factory
	state   *simulator.State
	logger  *zap.Logger
}

var (
	_ dex.Router       = (*Router)(nil)
	_ dex.SwapCallback = (*Router)(nil)
)

// NewRouter creates a router over the factory's pools
func NewRouter(address common.Address, factory *Factory, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		address: address,
		factory: factory,
		state:   factory.state,
		logger:  logger,
	}
}

// Address returns the router address
func (r *Router) Address() common.Address {
	return r.address
}

func (r *Router) poolFor(tokenIn, tokenOut common.Address, fee uint32) (*Pool, error) {
	pool, err := r.factory.Pool(r.factory.ComputeAddress(tokenIn, tokenOut, fee))
	if err != nil {
		return nil, fmt.Errorf("no pool for %s/%s at fee %d: %w", tokenIn.Hex(), tokenOut.Hex(), fee, err)
	}
	return pool, nil
}

// ExactInputSingle swaps params.AmountIn of TokenIn owned by sender for
// TokenOut, delivered to params.Recipient
func (r *Router) ExactInputSingle(ctx context.Context, sender common.Address, params dex.ExactInputSingleParams) (*uint256.Int, error) {
	if params.AmountIn == nil || params.AmountIn.IsZero() {
		return nil, dex.ErrZeroAmount
	}
	if params.AmountOutMinimum == nil {
		return nil, errors.New("amountOutMinimum is required")
	}
	pool, err := r.poolFor(params.TokenIn, params.TokenOut, params.Fee)
	if err != nil {
		return nil, err
	}
	zeroForOne := params.TokenIn == pool.Token0()

	var amountOut *uint256.Int
	err = r.state.Atomic(func() error {
		out, err := pool.Swap(ctx, r.address, params.Recipient, zeroForOne, params.AmountIn, r, sender.Bytes())
		if err != nil {
			return err
		}
		if out.Lt(params.AmountOutMinimum) {
			return fmt.Errorf("%w: got %s, want at least %s", dex.ErrTooLittleReceived, out.Dec(), params.AmountOutMinimum.Dec())
		}
		amountOut = out
		return nil
	})
	if err != nil {
		r.logger.Debug("Router swap failed",
			zap.String("pool", pool.Address().Hex()),
			zap.String("sender", sender.Hex()),
			zap.Error(err))
		return nil, err
	}
	return amountOut, nil
}

// QuoteExactInputSingle returns what ExactInputSingle would pay out right now
func (r *Router) QuoteExactInputSingle(ctx context.Context, tokenIn, tokenOut common.Address, fee uint32, amountIn *uint256.Int) (*uint256.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pool, err := r.poolFor(tokenIn, tokenOut, fee)
	if err != nil {
		return nil, err
	}
	return pool.Quote(tokenIn, amountIn)
}

// UniswapV3SwapCallback pays a pool for a swap started by this router. data
// carries the payer address.
func (r *Router) UniswapV3SwapCallback(ctx context.Context, sender, token common.Address, amount *uint256.Int, data []byte) error {
	if _, err := r.factory.Pool(sender); err != nil {
		return fmt.Errorf("%w: %s", dex.ErrUnknownCaller, sender.Hex())
	}
	if len(data) != common.AddressLength {
		return fmt.Errorf("malformed swap callback data: %d bytes", len(data))
	}
	payer := common.BytesToAddress(data)
	return r.state.TransferFrom(token, r.address, payer, sender, amount)
}
