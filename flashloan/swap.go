package flashloan

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/flashswap/dex"
	"github.com/michaelpento.lv/flashswap/simulator"
	mathutil "github.com/michaelpento.lv/flashswap/utils/math"
)

// SwapExecutor performs exact-input swaps for the executor account and
// enforces a minimum output on the amount actually received
type SwapExecutor struct {
	executor common.Address
	factory  dex.Factory
	router   dex.Router
	state    *simulator.State
	logger   *zap.Logger
}

// NewSwapExecutor creates a swap executor acting for the executor address
func NewSwapExecutor(executor common.Address, factory dex.Factory, router dex.Router, state *simulator.State, logger *zap.Logger) *SwapExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SwapExecutor{
		executor: executor,
		factory:  factory,
		router:   router,
		state:    state,
		logger:   logger,
	}
}

// SwapExactIn sells exactly amountIn of assetIn through pool and returns
// how much assetOut the executor received. Nothing changes if it fails.
func (s *SwapExecutor) SwapExactIn(ctx context.Context, pool common.Address, feeTier uint32, assetIn, assetOut common.Address, amountIn, minOut *uint256.Int) (*uint256.Int, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, newRevert(KindInvalidRequest, "FlashSwap: zero swap amount", nil)
	}
	if minOut == nil {
		return nil, newRevert(KindMalformedParams, ReasonMalformedParams, fmt.Errorf("minimum output is required"))
	}
	if expected := s.factory.ComputeAddress(assetIn, assetOut, feeTier); expected != pool {
		return nil, newRevert(KindMalformedParams, ReasonMalformedParams,
			fmt.Errorf("pool %s is not the %s/%s pool at fee %d (%s)", pool.Hex(), assetIn.Hex(), assetOut.Hex(), feeTier, expected.Hex()))
	}

	var received *uint256.Int
	err := s.state.Atomic(func() error {
		before := s.state.BalanceOf(assetOut, s.executor)
		s.state.Approve(assetIn, s.executor, s.router.Address(), amountIn)

		_, err := s.router.ExactInputSingle(ctx, s.executor, dex.ExactInputSingleParams{
			TokenIn:          assetIn,
			TokenOut:         assetOut,
			Fee:              feeTier,
			Recipient:        s.executor,
			AmountIn:         amountIn,
			AmountOutMinimum: minOut,
		})
		if err != nil {
			return classifySwapError(err)
		}

		delta, err := mathutil.Sub(s.state.BalanceOf(assetOut, s.executor), before)
		if err != nil {
			return arithmetic(err)
		}
		if delta.Lt(minOut) {
			return newRevert(KindSlippageViolation, ReasonSlippage,
				fmt.Errorf("received %s, minimum %s", delta.Dec(), minOut.Dec()))
		}

		s.state.Approve(assetIn, s.executor, s.router.Address(), new(uint256.Int))
		received = delta
		return nil
	})
	if err != nil {
		s.logger.Debug("Swap failed",
			zap.String("pool", pool.Hex()),
			zap.String("assetIn", assetIn.Hex()),
			zap.String("amountIn", amountIn.Dec()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Debug("Swap completed",
		zap.String("pool", pool.Hex()),
		zap.String("assetIn", assetIn.Hex()),
		zap.String("assetOut", assetOut.Hex()),
		zap.String("amountIn", amountIn.Dec()),
		zap.String("amountOut", received.Dec()))

	return received, nil
}

func classifySwapError(err error) error {
	var rerr *RevertError
	switch {
	case errors.As(err, &rerr):
		return err
	case errors.Is(err, dex.ErrTooLittleReceived):
		return newRevert(KindSlippageViolation, ReasonSlippage, err)
	case mathutil.IsOverflow(err):
		return arithmetic(err)
	default:
		return newRevert(KindExternalCallFailure, err.Error(), err)
	}
}
