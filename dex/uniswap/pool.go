package uniswap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/flashswap/dex"
	"github.com/michaelpento.lv/flashswap/simulator"
	mathutil "github.com/michaelpento.lv/flashswap/utils/math"
)

// Pool is an in-memory liquidity pool for one token pair and fee tier.
// Reserves are the pool's own token balances in the shared State, so
// anything sent to the pool address counts towards its liquidity.
// Flash and swap are locked separately, unlike a V3 pool's single slot0
// lock, so a pool can be swapped through while it has a flash outstanding.
type Pool struct {
	address common.Address
	token0  common.Address
	token1  common.Address
	fee     uint32

	state  *simulator.State
	logger *zap.Logger

	paused      bool
	flashLocked bool
	swapLocked  bool
}

var _ dex.Pool = (*Pool)(nil)

// Address returns the pool address
func (p *Pool) Address() common.Address { return p.address }

// Token0 returns the lower-sorted token of the pair
func (p *Pool) Token0() common.Address { return p.token0 }

// Token1 returns the higher-sorted token of the pair
func (p *Pool) Token1() common.Address { return p.token1 }

// Fee returns the fee tier in hundredths of a basis point
func (p *Pool) Fee() uint32 { return p.fee }

// SetPaused stops the pool from lending and swapping
func (p *Pool) SetPaused(paused bool) {
	p.paused = paused
}

// Reserves returns the pool's current balances of token0 and token1
func (p *Pool) Reserves() (*uint256.Int, *uint256.Int) {
	return p.state.BalanceOf(p.token0, p.address), p.state.BalanceOf(p.token1, p.address)
}

// Other returns the token on the opposite side of the pair
func (p *Pool) Other(token common.Address) (common.Address, bool) {
	switch token {
	case p.token0:
		return p.token1, true
	case p.token1:
		return p.token0, true
	}
	return common.Address{}, false
}

// Quote returns what a swap of amountIn of tokenIn would pay out right now
func (p *Pool) Quote(tokenIn common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	tokenOut, ok := p.Other(tokenIn)
	if !ok {
		return nil, fmt.Errorf("token %s not in pool %s: %w", tokenIn.Hex(), p.address.Hex(), dex.ErrPoolNotFound)
	}
	return getAmountOut(amountIn,
		p.state.BalanceOf(tokenIn, p.address),
		p.state.BalanceOf(tokenOut, p.address),
		p.fee)
}

// Flash lends amount0/amount1 to recipient for the duration of the
// callback. The callback must return the amounts plus the fee, rounded up,
// before it returns. Any failure reverts everything the call did.
func (p *Pool) Flash(ctx context.Context, callback dex.FlashCallback, recipient common.Address, amount0, amount1 *uint256.Int, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.paused {
		return dex.ErrPoolPaused
	}
	if p.flashLocked {
		return dex.ErrLocked
	}
	p.flashLocked = true
	defer func() { p.flashLocked = false }()

	return p.state.Atomic(func() error {
		balance0Before, balance1Before := p.Reserves()
		if balance0Before.IsZero() && balance1Before.IsZero() {
			return dex.ErrNoLiquidity
		}
		if balance0Before.Lt(amount0) || balance1Before.Lt(amount1) {
			return dex.ErrInsufficientLiquidity
		}

		fee0, err := flashFee(amount0, p.fee)
		if err != nil {
			return err
		}
		fee1, err := flashFee(amount1, p.fee)
		if err != nil {
			return err
		}

		if !amount0.IsZero() {
			if err := p.state.Transfer(p.token0, p.address, recipient, amount0); err != nil {
				return fmt.Errorf("failed to lend token0: %w", err)
			}
		}
		if !amount1.IsZero() {
			if err := p.state.Transfer(p.token1, p.address, recipient, amount1); err != nil {
				return fmt.Errorf("failed to lend token1: %w", err)
			}
		}

		p.logger.Debug("Flash lent",
			zap.String("pool", p.address.Hex()),
			zap.String("amount0", amount0.Dec()),
			zap.String("amount1", amount1.Dec()),
			zap.String("fee0", fee0.Dec()),
			zap.String("fee1", fee1.Dec()))

		if err := callback.UniswapV3FlashCallback(ctx, p.address, fee0, fee1, data); err != nil {
			return err
		}

		balance0After, balance1After := p.Reserves()
		want0, err := mathutil.Add(balance0Before, fee0)
		if err != nil {
			return err
		}
		if balance0After.Lt(want0) {
			return dex.ErrFlashNotRepaid0
		}
		want1, err := mathutil.Add(balance1Before, fee1)
		if err != nil {
			return err
		}
		if balance1After.Lt(want1) {
			return dex.ErrFlashNotRepaid1
		}

		paid0 := new(uint256.Int).Sub(balance0After, balance0Before)
		paid1 := new(uint256.Int).Sub(balance1After, balance1Before)
		log, err := flashLog(p.address, recipient, recipient, amount0, amount1, paid0, paid1)
		if err != nil {
			return err
		}
		p.state.EmitLog(log)
		return nil
	})
}

// Swap sells exactly amountIn of one token for the other. The output is sent
// to recipient first, then callback has to pay amountIn to the pool.
func (p *Pool) Swap(ctx context.Context, sender, recipient common.Address, zeroForOne bool, amountIn *uint256.Int, callback dex.SwapCallback, data []byte) (*uint256.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.paused {
		return nil, dex.ErrPoolPaused
	}
	if p.swapLocked {
		return nil, dex.ErrLocked
	}
	p.swapLocked = true
	defer func() { p.swapLocked = false }()

	tokenIn, tokenOut := p.token0, p.token1
	if !zeroForOne {
		tokenIn, tokenOut = p.token1, p.token0
	}

	var amountOut *uint256.Int
	err := p.state.Atomic(func() error {
		balanceInBefore := p.state.BalanceOf(tokenIn, p.address)
		out, err := getAmountOut(amountIn, balanceInBefore, p.state.BalanceOf(tokenOut, p.address), p.fee)
		if err != nil {
			return err
		}
		if out.IsZero() {
			return dex.ErrInsufficientLiquidity
		}

		if err := p.state.Transfer(tokenOut, p.address, recipient, out); err != nil {
			return fmt.Errorf("failed to pay out swap: %w", err)
		}
		if err := callback.UniswapV3SwapCallback(ctx, p.address, tokenIn, amountIn, data); err != nil {
			return err
		}

		want, err := mathutil.Add(balanceInBefore, amountIn)
		if err != nil {
			return err
		}
		if p.state.BalanceOf(tokenIn, p.address).Lt(want) {
			return dex.ErrInsufficientInput
		}

		amount0, amount1 := amountIn.ToBig(), new(big.Int).Neg(out.ToBig())
		if !zeroForOne {
			amount0, amount1 = amount1, amount0
		}
		log, err := swapLog(p.address, sender, recipient, amount0, amount1)
		if err != nil {
			return err
		}
		p.state.EmitLog(log)
		amountOut = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Swap executed",
		zap.String("pool", p.address.Hex()),
		zap.String("tokenIn", tokenIn.Hex()),
		zap.String("amountIn", amountIn.Dec()),
		zap.String("amountOut", amountOut.Dec()))

	return amountOut, nil
}
