package flashloan

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/flashswap/types"
	"github.com/michaelpento.lv/flashswap/utils/metrics"
)

// LoanInitiator starts flash swaps on behalf of the executor
type LoanInitiator struct {
	orchestrator *Orchestrator
	metrics      *metrics.SettlementMetrics
	logger       *zap.Logger
}

func newPrivateMetrics() *metrics.SettlementMetrics {
	return metrics.NewSettlementMetrics(prometheus.NewRegistry(), "flashswap")
}

// NewLoanInitiator creates an initiator whose callbacks are settled by orchestrator
func NewLoanInitiator(orchestrator *Orchestrator, logger *zap.Logger) *LoanInitiator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoanInitiator{
		orchestrator: orchestrator,
		metrics:      orchestrator.metrics,
		logger:       logger,
	}
}

// Initiate runs a flash swap described by req
func (l *LoanInitiator) Initiate(ctx context.Context, req types.FlashLoanRequest) (*types.SettlementOutcome, error) {
	return l.InitiateFlashSwap(ctx, req.LendingPool, req.Amount0, req.Amount1, req.CallbackParams)
}

// InitiateFlashSwap borrows amount0/amount1 from pool and settles the
// arbitrage described by params inside the pool's callback. Either the whole
// settlement commits or the state is left exactly as it was.
func (l *LoanInitiator) InitiateFlashSwap(ctx context.Context, pool common.Address, amount0, amount1 *uint256.Int, params []byte) (*types.SettlementOutcome, error) {
	start := time.Now()
	defer func() {
		l.metrics.ExecutionTime.Observe(time.Since(start).Seconds())
	}()
	l.metrics.Attempts.Inc()

	outcome, err := l.initiate(ctx, pool, amount0, amount1, params)
	if err != nil {
		l.metrics.Aborts.WithLabelValues(abortLabel(err)).Inc()
		l.logger.Info("Flash swap aborted",
			zap.String("pool", pool.Hex()),
			zap.Stringer("kind", KindOf(err)),
			zap.Error(err))
		return nil, err
	}

	l.metrics.Commits.Inc()
	if outcome.Profit.Sign() > 0 {
		profit, _ := new(big.Float).SetInt(outcome.Profit).Float64()
		l.metrics.ProfitTotal.Add(profit)
	}
	l.logger.Info("Flash swap settled",
		zap.String("pool", outcome.Pool.Hex()),
		zap.String("asset", outcome.Asset.Hex()),
		zap.String("owed", outcome.Owed.Dec()),
		zap.String("realized", outcome.Realized.Dec()),
		zap.String("profit", outcome.Profit.String()))

	return outcome, nil
}

func (l *LoanInitiator) initiate(ctx context.Context, poolAddr common.Address, amount0, amount1 *uint256.Int, params []byte) (*types.SettlementOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateRequest(poolAddr, amount0, amount1, params); err != nil {
		return nil, err
	}
	pool, err := l.orchestrator.factory.PoolByAddress(poolAddr)
	if err != nil {
		return nil, newRevert(KindInvalidRequest, "FlashSwap: unknown lending pool", err)
	}

	f := &flight{
		pool:    poolAddr,
		amount0: amount0.Clone(),
		amount1: amount1.Clone(),
		data:    append([]byte(nil), params...),
	}
	if !l.orchestrator.begin(f) {
		return nil, newRevert(KindInvalidRequest, ReasonInFlight, nil)
	}
	defer l.orchestrator.end(f)

	l.metrics.InFlight.Inc()
	defer l.metrics.InFlight.Dec()

	state := l.orchestrator.state
	err = state.Atomic(func() error {
		if err := pool.Flash(ctx, l.orchestrator, l.orchestrator.executor, amount0, amount1, params); err != nil {
			return poolRevert(err)
		}
		if f.outcome == nil {
			return newRevert(KindExternalCallFailure, ReasonNotSettled, nil)
		}
		return nil
	})
	if err != nil {
		if !f.state.Terminal() {
			l.orchestrator.transition(f, types.Aborted)
		}
		return nil, err
	}
	// the pool's own repayment check has passed
	l.orchestrator.transition(f, types.Committed)
	return f.outcome, nil
}

// poolRevert classifies a failure raised by the lending pool itself, as
// opposed to one raised by the callback, as an external call failure
func poolRevert(err error) error {
	var rerr *RevertError
	if errors.As(err, &rerr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return newRevert(KindExternalCallFailure, err.Error(), err)
}

func validateRequest(pool common.Address, amount0, amount1 *uint256.Int, params []byte) error {
	invalid := func(reason string) error {
		return newRevert(KindInvalidRequest, reason, nil)
	}
	if pool == (common.Address{}) {
		return invalid("FlashSwap: zero pool address")
	}
	if amount0 == nil || amount1 == nil {
		return invalid("FlashSwap: missing amount")
	}
	if amount0.IsZero() == amount1.IsZero() {
		return invalid("FlashSwap: exactly one amount must be nonzero")
	}
	if len(params) == 0 {
		return invalid("FlashSwap: empty params")
	}
	return nil
}

func abortLabel(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return KindOf(err).String()
}
