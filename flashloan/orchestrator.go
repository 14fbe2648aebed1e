package flashloan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/flashswap/dex"
	"github.com/michaelpento.lv/flashswap/simulator"
	"github.com/michaelpento.lv/flashswap/types"
	mathutil "github.com/michaelpento.lv/flashswap/utils/math"
	"github.com/michaelpento.lv/flashswap/utils/metrics"
)

// flight is the request-scoped record of one initiated flash swap. The
// callback trusts nothing it was not told about here.
type flight struct {
	pool     common.Address
	amount0  *uint256.Int
	amount1  *uint256.Int
	data     []byte
	consumed bool
	state    types.SettlementState
	outcome  *types.SettlementOutcome
}

// Orchestrator receives the lending pool's flash callback and runs the
// settlement: authorize, swap out, swap back, repay.
type Orchestrator struct {
	executor  common.Address
	factory   dex.Factory
	codec     ParamsCodec
	state     *simulator.State
	swaps     *SwapExecutor
	repayment RepaymentCalculator
	metrics   *metrics.SettlementMetrics
	logger    *zap.Logger

	inFlight atomic.Pointer[flight]
}

var _ dex.FlashCallback = (*Orchestrator)(nil)

// NewOrchestrator creates the callback handler for cfg.Executor
func NewOrchestrator(cfg Config, state *simulator.State, m *metrics.SettlementMetrics, logger *zap.Logger) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if state == nil {
		return nil, fmt.Errorf("state is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = newPrivateMetrics()
	}

	return &Orchestrator{
		executor: cfg.Executor,
		factory:  cfg.Factory,
		codec:    cfg.Codec,
		state:    state,
		swaps:    NewSwapExecutor(cfg.Executor, cfg.Factory, cfg.Router, state, logger),
		metrics:  m,
		logger:   logger,
	}, nil
}

// Executor returns the account the orchestrator settles for
func (o *Orchestrator) Executor() common.Address {
	return o.executor
}

// Codec returns the params codec callbacks are decoded with
func (o *Orchestrator) Codec() ParamsCodec {
	return o.codec
}

func (o *Orchestrator) begin(f *flight) bool {
	f.state = types.AwaitingCallback
	return o.inFlight.CompareAndSwap(nil, f)
}

func (o *Orchestrator) end(f *flight) {
	o.inFlight.CompareAndSwap(f, nil)
}

func (o *Orchestrator) transition(f *flight, next types.SettlementState) {
	o.logger.Debug("Settlement transition",
		zap.String("pool", f.pool.Hex()),
		zap.Stringer("from", f.state),
		zap.Stringer("to", next))
	f.state = next
}

func (o *Orchestrator) abort(f *flight, err error) error {
	if f != nil {
		o.transition(f, types.Aborted)
	}
	fields := []zap.Field{zap.Stringer("kind", KindOf(err)), zap.Error(err)}
	switch KindOf(err) {
	case KindInsufficientRepayment:
		o.logger.Info("Settlement aborted", fields...)
	default:
		o.logger.Warn("Settlement aborted", fields...)
	}
	return err
}

func unauthorized(format string, args ...interface{}) error {
	return newRevert(KindUnauthorizedCallback, ReasonUnauthorized, fmt.Errorf(format, args...))
}

// UniswapV3FlashCallback settles a flash swap. It is only honoured for the
// pool and payload of the flash swap currently in flight.
func (o *Orchestrator) UniswapV3FlashCallback(ctx context.Context, sender common.Address, fee0, fee1 *uint256.Int, data []byte) error {
	f := o.inFlight.Load()
	if f == nil {
		return o.abort(nil, unauthorized("no flash swap in flight, callback from %s", sender.Hex()))
	}
	if f.consumed {
		return o.abort(nil, unauthorized("callback already consumed, callback from %s", sender.Hex()))
	}
	if sender != f.pool {
		return o.abort(nil, unauthorized("callback from %s, flash swap in flight on %s", sender.Hex(), f.pool.Hex()))
	}
	o.transition(f, types.Authorizing)

	params, pool, err := o.authorize(f, sender, data)
	if err != nil {
		return o.abort(f, err)
	}
	f.consumed = true
	if fee0 == nil || fee1 == nil {
		return o.abort(f, newRevert(KindMalformedParams, ReasonMalformedParams, fmt.Errorf("missing fees")))
	}

	cc := &types.CallbackContext{
		Sender:  sender,
		Fee0:    fee0,
		Fee1:    fee1,
		Amount0: f.amount0,
		Amount1: f.amount1,
	}
	side, borrowed, fee := cc.Borrowed()
	asset, counter := pool.Token0(), pool.Token1()
	if side == 1 {
		asset, counter = counter, asset
	}
	if params.IntermediateAsset != counter {
		return o.abort(f, newRevert(KindMalformedParams, ReasonMalformedParams,
			fmt.Errorf("intermediate asset %s is not the counter-asset %s", params.IntermediateAsset.Hex(), counter.Hex())))
	}

	o.transition(f, types.Leg1Executing)
	leg1Out, err := o.swaps.SwapExactIn(ctx, params.PoolA, params.FeeTierA, asset, params.IntermediateAsset, borrowed, params.MinOutLeg1)
	o.recordLeg("1", err)
	if err != nil {
		return o.abort(f, err)
	}

	o.transition(f, types.Leg2Executing)
	leg2Out, err := o.swaps.SwapExactIn(ctx, params.PoolB, params.FeeTierB, params.IntermediateAsset, asset, leg1Out, params.MinOutLeg2)
	o.recordLeg("2", err)
	if err != nil {
		return o.abort(f, err)
	}

	o.transition(f, types.RepaymentCheck)
	owed, err := o.repayment.OwedWithFee(borrowed, fee)
	if err != nil {
		return o.abort(f, err)
	}
	if local, err := o.repayment.Fee(borrowed, pool.Fee()); err == nil && !local.Eq(fee) {
		o.logger.Warn("Pool reported an unexpected flash fee",
			zap.String("pool", sender.Hex()),
			zap.String("reported", fee.Dec()),
			zap.String("expected", local.Dec()))
	}
	if leg2Out.Lt(owed) {
		return o.abort(f, newRevert(KindInsufficientRepayment, ReasonInsufficientRepayment,
			fmt.Errorf("realized %s, owed %s", leg2Out.Dec(), owed.Dec())))
	}

	if err := o.state.Transfer(asset, o.executor, sender, owed); err != nil {
		return o.abort(f, newRevert(KindExternalCallFailure, err.Error(), err))
	}

	profit := mathutil.SignedDiff(leg2Out, owed)
	log, err := settlementLog(o.executor, sender, asset, owed, leg2Out, profit)
	if err != nil {
		return o.abort(f, newRevert(KindExternalCallFailure, err.Error(), err))
	}
	o.state.EmitLog(log)

	f.outcome = &types.SettlementOutcome{
		Pool:      sender,
		Asset:     asset,
		Borrowed:  borrowed.Clone(),
		Fee:       fee.Clone(),
		Owed:      owed,
		Leg1Out:   leg1Out,
		Realized:  leg2Out,
		Profit:    profit,
		Committed: true,
	}
	return nil
}

// authorize checks the callback against the in-flight record and the pool
// registry before any asset moves
func (o *Orchestrator) authorize(f *flight, sender common.Address, data []byte) (*types.ArbitrageParams, dex.Pool, error) {
	if !bytes.Equal(data, f.data) {
		return nil, nil, unauthorized("callback data does not match the initiated request")
	}

	params, err := o.codec.Decode(data)
	if err != nil {
		return nil, nil, err
	}
	if params.PoolA != f.pool {
		return nil, nil, unauthorized("params name pool %s, lending pool is %s", params.PoolA.Hex(), f.pool.Hex())
	}

	pool, err := o.factory.PoolByAddress(sender)
	if err != nil {
		if errors.Is(err, dex.ErrPoolNotFound) {
			return nil, nil, unauthorized("caller %s is not a registered pool", sender.Hex())
		}
		return nil, nil, newRevert(KindExternalCallFailure, err.Error(), err)
	}
	if derived := o.factory.ComputeAddress(pool.Token0(), pool.Token1(), params.FeeTierA); derived != sender {
		return nil, nil, unauthorized("caller %s does not match derived pool %s", sender.Hex(), derived.Hex())
	}
	return params, pool, nil
}

func (o *Orchestrator) recordLeg(leg string, err error) {
	result := "ok"
	if err != nil {
		result = KindOf(err).String()
	}
	o.metrics.SwapLegs.WithLabelValues(leg, result).Inc()
}
