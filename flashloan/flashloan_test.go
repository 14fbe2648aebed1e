package flashloan

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/michaelpento.lv/flashswap/dex"
	"github.com/michaelpento.lv/flashswap/dex/uniswap"
	"github.com/michaelpento.lv/flashswap/types"
	"github.com/michaelpento.lv/flashswap/utils"
	"github.com/michaelpento.lv/flashswap/utils/metrics"
	"github.com/michaelpento.lv/flashswap/utils/testutils"
)

type engine struct {
	world        *testutils.World
	initiator    *LoanInitiator
	orchestrator *Orchestrator
	metrics      *metrics.SettlementMetrics
}

func newEngine(t *testing.T, w *testutils.World, router dex.Router) *engine {
	t.Helper()
	m := metrics.NewSettlementMetrics(prometheus.NewRegistry(), "test")
	o, err := NewOrchestrator(Config{
		Executor: testutils.Executor,
		Factory:  w.Factory,
		Router:   router,
	}, w.State, m, zaptest.NewLogger(t))
	require.NoError(t, err)
	return &engine{
		world:        w,
		initiator:    NewLoanInitiator(o, zaptest.NewLogger(t)),
		orchestrator: o,
		metrics:      m,
	}
}

func worldParams(w *testutils.World, minOut1, minOut2 *uint256.Int) *types.ArbitrageParams {
	return &types.ArbitrageParams{
		IntermediateAsset: uniswap.USDCAddress,
		PoolA:             w.PoolA.Address(),
		PoolB:             w.PoolB.Address(),
		FeeTierA:          uniswap.FeeLow,
		FeeTierB:          uniswap.FeeMedium,
		MinOutLeg1:        minOut1,
		MinOutLeg2:        minOut2,
	}
}

func encode(t *testing.T, p *types.ArbitrageParams) []byte {
	t.Helper()
	data, err := ParamsV1{}.Encode(p)
	require.NoError(t, err)
	return data
}

func oneEther(t *testing.T) *uint256.Int {
	return testutils.Units(t, "1", 18)
}

// fixedRateEngine prices leg 1 at 2000 USDC per WETH and leg 2 at 1.01 WETH
// per 2000 USDC, so borrowing 1 WETH realizes 1.01 WETH
func fixedRateEngine(t *testing.T) (*engine, *testutils.FixedRateRouter) {
	w := testutils.NewWorld(t)
	router := testutils.NewFixedRateRouter(testutils.RouterAddress, w.State)
	router.SetRate(uniswap.WETHAddress, uniswap.USDCAddress, testutils.Units(t, "2000", 6), oneEther(t))
	router.SetRate(uniswap.USDCAddress, uniswap.WETHAddress, testutils.Units(t, "1.01", 18), testutils.Units(t, "2000", 6))
	require.NoError(t, w.State.Mint(uniswap.USDCAddress, router.Address(), testutils.Units(t, "2000", 6)))
	require.NoError(t, w.State.Mint(uniswap.WETHAddress, router.Address(), testutils.Units(t, "1.01", 18)))
	w.State.Finalise()
	return newEngine(t, w, router), router
}

// newObservedEngine records the orchestrator's debug log so that tests can
// follow the settlement transitions
func newObservedEngine(t *testing.T, w *testutils.World, router dex.Router) (*engine, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	m := metrics.NewSettlementMetrics(prometheus.NewRegistry(), "test")
	o, err := NewOrchestrator(Config{
		Executor: testutils.Executor,
		Factory:  w.Factory,
		Router:   router,
	}, w.State, m, zap.New(core))
	require.NoError(t, err)
	return &engine{
		world:        w,
		initiator:    NewLoanInitiator(o, zaptest.NewLogger(t)),
		orchestrator: o,
		metrics:      m,
	}, logs
}

func transitions(logs *observer.ObservedLogs) []string {
	var states []string
	for _, entry := range logs.FilterMessage("Settlement transition").All() {
		states = append(states, entry.ContextMap()["to"].(string))
	}
	return states
}

func TestScenarioExpectedLoss(t *testing.T) {
	w := testutils.NewWorld(t)
	e := newEngine(t, w, w.Router)
	ctx := context.Background()

	before := w.State.Fingerprint()
	logsBefore := len(w.State.Logs())
	params := encode(t, worldParams(w, new(uint256.Int), new(uint256.Int)))

	outcome, err := e.initiator.InitiateFlashSwap(ctx, w.PoolA.Address(), new(uint256.Int), oneEther(t), params)
	require.Nil(t, outcome)
	require.ErrorIs(t, err, ErrInsufficientRepayment)

	var rerr *RevertError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ReasonInsufficientRepayment, rerr.Reason)
	reason, decodeErr := utils.DecodeRevertReason(rerr.RevertData())
	require.NoError(t, decodeErr)
	assert.Equal(t, "FlashSwap: Insufficient funds to repay loan", reason.Message)

	assert.Equal(t, before, w.State.Fingerprint())
	assert.Len(t, w.State.Logs(), logsBefore)
	assert.True(t, w.State.BalanceOf(uniswap.WETHAddress, testutils.Executor).IsZero())
	assert.True(t, w.State.BalanceOf(uniswap.USDCAddress, testutils.Executor).IsZero())

	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.Attempts))
	assert.Equal(t, float64(0), testutil.ToFloat64(e.metrics.Commits))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.Aborts.WithLabelValues("insufficient_repayment")))
	assert.Equal(t, float64(0), testutil.ToFloat64(e.metrics.InFlight))

	t.Run("Idempotent", func(t *testing.T) {
		_, again := e.initiator.InitiateFlashSwap(ctx, w.PoolA.Address(), new(uint256.Int), oneEther(t), params)
		require.ErrorIs(t, again, ErrInsufficientRepayment)
		assert.Equal(t, err.Error(), again.Error())
		assert.Equal(t, before, w.State.Fingerprint())
	})
}

func TestScenarioProfitable(t *testing.T) {
	e, router := fixedRateEngine(t)
	w := e.world
	ctx := context.Background()

	poolWETHBefore := w.State.BalanceOf(uniswap.WETHAddress, w.PoolA.Address())
	params := encode(t, worldParams(w, testutils.Units(t, "2000", 6), testutils.Units(t, "1.01", 18)))

	outcome, err := e.initiator.Initiate(ctx, types.FlashLoanRequest{
		LendingPool:    w.PoolA.Address(),
		Amount0:        new(uint256.Int),
		Amount1:        oneEther(t),
		CallbackParams: params,
	})
	require.NoError(t, err)
	require.True(t, outcome.Committed)

	assert.Equal(t, w.PoolA.Address(), outcome.Pool)
	assert.Equal(t, uniswap.WETHAddress, outcome.Asset)
	assert.Equal(t, "2000000000", outcome.Leg1Out.Dec())
	assert.Equal(t, "1010000000000000000", outcome.Realized.Dec())
	assert.Equal(t, "1000500000000000000", outcome.Owed.Dec())
	assert.Equal(t, "500000000000000", outcome.Fee.Dec())
	assert.Equal(t, "9500000000000000", outcome.Profit.String())

	assert.Equal(t, "9500000000000000", w.State.BalanceOf(uniswap.WETHAddress, testutils.Executor).Dec())
	assert.True(t, w.State.BalanceOf(uniswap.USDCAddress, testutils.Executor).IsZero())
	wantPool := new(uint256.Int).Add(poolWETHBefore, testutils.Units(t, "0.0005", 18))
	assert.True(t, wantPool.Eq(w.State.BalanceOf(uniswap.WETHAddress, w.PoolA.Address())))
	assert.True(t, w.State.Allowance(uniswap.WETHAddress, testutils.Executor, router.Address()).IsZero())
	assert.True(t, w.State.Allowance(uniswap.USDCAddress, testutils.Executor, router.Address()).IsZero())
	assert.Equal(t, 2, router.Calls)

	var settlement *SettlementEvent
	for _, log := range w.State.Logs() {
		if log.Address == testutils.Executor && log.Topics[0] == SettlementTopic() {
			settlement, err = ParseSettlement(log)
			require.NoError(t, err)
		}
	}
	require.NotNil(t, settlement)
	assert.Equal(t, w.PoolA.Address(), settlement.Pool)
	assert.Equal(t, uniswap.WETHAddress, settlement.Asset)
	assert.True(t, settlement.Owed.Eq(outcome.Owed))
	assert.True(t, settlement.Realized.Eq(outcome.Realized))
	assert.Equal(t, 0, settlement.Profit.Cmp(outcome.Profit))

	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.Commits))
	assert.Equal(t, 9.5e15, testutil.ToFloat64(e.metrics.ProfitTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.SwapLegs.WithLabelValues("2", "ok")))
}

func TestScenarioProfitableToken0(t *testing.T) {
	w := testutils.NewWorld(t)
	router := testutils.NewFixedRateRouter(testutils.RouterAddress, w.State)
	router.SetRate(uniswap.USDCAddress, uniswap.WETHAddress, oneEther(t), testutils.Units(t, "2000", 6))
	router.SetRate(uniswap.WETHAddress, uniswap.USDCAddress, testutils.Units(t, "2020", 6), oneEther(t))
	require.NoError(t, w.State.Mint(uniswap.WETHAddress, router.Address(), oneEther(t)))
	require.NoError(t, w.State.Mint(uniswap.USDCAddress, router.Address(), testutils.Units(t, "2020", 6)))
	w.State.Finalise()
	e, logs := newObservedEngine(t, w, router)

	require.Equal(t, uniswap.USDCAddress, w.PoolA.Token0())
	poolUSDCBefore := w.State.BalanceOf(uniswap.USDCAddress, w.PoolA.Address())
	poolWETHBefore := w.State.BalanceOf(uniswap.WETHAddress, w.PoolA.Address())

	p := worldParams(w, oneEther(t), testutils.Units(t, "2020", 6))
	p.IntermediateAsset = uniswap.WETHAddress
	outcome, err := e.initiator.InitiateFlashSwap(context.Background(), w.PoolA.Address(),
		testutils.Units(t, "2000", 6), new(uint256.Int), encode(t, p))
	require.NoError(t, err)
	require.True(t, outcome.Committed)

	assert.Equal(t, uniswap.USDCAddress, outcome.Asset)
	assert.Equal(t, "1000000", outcome.Fee.Dec())
	assert.Equal(t, "2001000000", outcome.Owed.Dec())
	assert.Equal(t, "1000000000000000000", outcome.Leg1Out.Dec())
	assert.Equal(t, "2020000000", outcome.Realized.Dec())
	assert.Equal(t, "19000000", outcome.Profit.String())

	assert.Equal(t, "19000000", w.State.BalanceOf(uniswap.USDCAddress, testutils.Executor).Dec())
	assert.True(t, w.State.BalanceOf(uniswap.WETHAddress, testutils.Executor).IsZero())
	wantPool := new(uint256.Int).Add(poolUSDCBefore, testutils.Units(t, "1", 6))
	assert.True(t, wantPool.Eq(w.State.BalanceOf(uniswap.USDCAddress, w.PoolA.Address())))
	assert.True(t, poolWETHBefore.Eq(w.State.BalanceOf(uniswap.WETHAddress, w.PoolA.Address())))
	assert.Equal(t, 2, router.Calls)

	states := transitions(logs)
	require.NotEmpty(t, states)
	assert.Equal(t, "committed", states[len(states)-1])
}

func TestScenarioForeignCallback(t *testing.T) {
	e, router := fixedRateEngine(t)
	w := e.world
	ctx := context.Background()
	params := encode(t, worldParams(w, new(uint256.Int), new(uint256.Int)))
	before := w.State.Fingerprint()

	callers := map[string]func() error{
		"Stranger": func() error {
			return e.orchestrator.UniswapV3FlashCallback(ctx, testutils.Stranger, new(uint256.Int), uint256.NewInt(500), params)
		},
		"RegisteredPoolWithoutFlash": func() error {
			return e.orchestrator.UniswapV3FlashCallback(ctx, w.PoolA.Address(), new(uint256.Int), uint256.NewInt(500), params)
		},
	}

	for name, call := range callers {
		t.Run(name, func(t *testing.T) {
			err := w.State.Atomic(call)
			require.ErrorIs(t, err, ErrUnauthorizedCallback)
			assert.Equal(t, 0, router.Calls)
			assert.Equal(t, before, w.State.Fingerprint())
		})
	}
}

func TestCallbackAuthorization(t *testing.T) {
	e, router := fixedRateEngine(t)
	w := e.world
	ctx := context.Background()
	fee := uint256.NewInt(500)

	inFlight := func(t *testing.T, pool *uniswap.Pool, data []byte) {
		f := &flight{pool: pool.Address(), amount0: new(uint256.Int), amount1: oneEther(t), data: data}
		require.True(t, e.orchestrator.begin(f))
		t.Cleanup(func() { e.orchestrator.end(f) })
	}

	t.Run("WrongSender", func(t *testing.T) {
		data := encode(t, worldParams(w, new(uint256.Int), new(uint256.Int)))
		inFlight(t, w.PoolA, data)
		err := e.orchestrator.UniswapV3FlashCallback(ctx, w.PoolB.Address(), new(uint256.Int), fee, data)
		assert.ErrorIs(t, err, ErrUnauthorizedCallback)
	})

	t.Run("DataMismatch", func(t *testing.T) {
		inFlight(t, w.PoolA, encode(t, worldParams(w, new(uint256.Int), new(uint256.Int))))
		other := encode(t, worldParams(w, uint256.NewInt(1), new(uint256.Int)))
		err := e.orchestrator.UniswapV3FlashCallback(ctx, w.PoolA.Address(), new(uint256.Int), fee, other)
		assert.ErrorIs(t, err, ErrUnauthorizedCallback)
	})

	t.Run("ParamsNameOtherPool", func(t *testing.T) {
		p := worldParams(w, new(uint256.Int), new(uint256.Int))
		p.PoolA = w.PoolB.Address()
		data := encode(t, p)
		inFlight(t, w.PoolA, data)
		err := e.orchestrator.UniswapV3FlashCallback(ctx, w.PoolA.Address(), new(uint256.Int), fee, data)
		assert.ErrorIs(t, err, ErrUnauthorizedCallback)
	})

	t.Run("DerivedAddressMismatch", func(t *testing.T) {
		p := worldParams(w, new(uint256.Int), new(uint256.Int))
		p.FeeTierA = uniswap.FeeMedium
		data := encode(t, p)
		inFlight(t, w.PoolA, data)
		err := e.orchestrator.UniswapV3FlashCallback(ctx, w.PoolA.Address(), new(uint256.Int), fee, data)
		assert.ErrorIs(t, err, ErrUnauthorizedCallback)
	})

	t.Run("MalformedPayload", func(t *testing.T) {
		data := []byte{1, 2, 3}
		inFlight(t, w.PoolA, data)
		err := e.orchestrator.UniswapV3FlashCallback(ctx, w.PoolA.Address(), new(uint256.Int), fee, data)
		assert.ErrorIs(t, err, ErrMalformedParams)
	})

	t.Run("SingleUse", func(t *testing.T) {
		data := encode(t, worldParams(w, new(uint256.Int), new(uint256.Int)))
		inFlight(t, w.PoolA, data)

		// authorized, but the executor never received the loan
		err := e.orchestrator.UniswapV3FlashCallback(ctx, w.PoolA.Address(), new(uint256.Int), fee, data)
		require.ErrorIs(t, err, ErrExternalCall)
		calls := router.Calls

		err = e.orchestrator.UniswapV3FlashCallback(ctx, w.PoolA.Address(), new(uint256.Int), fee, data)
		assert.ErrorIs(t, err, ErrUnauthorizedCallback)
		assert.Equal(t, calls, router.Calls)
	})

	assert.Equal(t, 1, router.Calls)
}

func TestSlippage(t *testing.T) {
	ctx := context.Background()

	t.Run("RouterMinimum", func(t *testing.T) {
		e, _ := fixedRateEngine(t)
		w := e.world
		before := w.State.Fingerprint()
		params := encode(t, worldParams(w, new(uint256.Int), testutils.Units(t, "1.02", 18)))

		_, err := e.initiator.InitiateFlashSwap(ctx, w.PoolA.Address(), new(uint256.Int), oneEther(t), params)
		require.ErrorIs(t, err, ErrSlippage)
		assert.ErrorIs(t, err, dex.ErrTooLittleReceived)
		assert.Equal(t, before, w.State.Fingerprint())
		assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.SwapLegs.WithLabelValues("2", "slippage_violation")))
	})

	t.Run("PoolPriceImpact", func(t *testing.T) {
		w := testutils.NewWorld(t)
		e := newEngine(t, w, w.Router)
		before := w.State.Fingerprint()
		params := encode(t, worldParams(w, testutils.Units(t, "2000", 6), new(uint256.Int)))

		_, err := e.initiator.InitiateFlashSwap(ctx, w.PoolA.Address(), new(uint256.Int), oneEther(t), params)
		require.ErrorIs(t, err, ErrSlippage)
		assert.Equal(t, before, w.State.Fingerprint())
	})
}

func TestSettlementFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("ExternalCallFailure", func(t *testing.T) {
		w := testutils.NewWorld(t)
		stf := errors.New("STF")
		e := newEngine(t, w, &testutils.FailingRouter{RouterAddress: testutils.RouterAddress, Err: stf})
		before := w.State.Fingerprint()

		_, err := e.initiator.InitiateFlashSwap(ctx, w.PoolA.Address(), new(uint256.Int), oneEther(t),
			encode(t, worldParams(w, new(uint256.Int), new(uint256.Int))))
		require.ErrorIs(t, err, ErrExternalCall)
		assert.ErrorIs(t, err, stf)

		var rerr *RevertError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "STF", rerr.Reason)
		assert.Equal(t, before, w.State.Fingerprint())
	})

	t.Run("IntermediateNotCounterAsset", func(t *testing.T) {
		e, router := fixedRateEngine(t)
		p := worldParams(e.world, new(uint256.Int), new(uint256.Int))
		p.IntermediateAsset = testutils.Stranger
		_, err := e.initiator.InitiateFlashSwap(ctx, e.world.PoolA.Address(), new(uint256.Int), oneEther(t), encode(t, p))
		require.ErrorIs(t, err, ErrMalformedParams)
		assert.Equal(t, 0, router.Calls)
	})

	t.Run("SecondLegPoolMismatch", func(t *testing.T) {
		e, router := fixedRateEngine(t)
		p := worldParams(e.world, new(uint256.Int), new(uint256.Int))
		p.PoolB = e.world.PoolA.Address()
		_, err := e.initiator.InitiateFlashSwap(ctx, e.world.PoolA.Address(), new(uint256.Int), oneEther(t), encode(t, p))
		require.ErrorIs(t, err, ErrMalformedParams)
		assert.Equal(t, 1, router.Calls)
	})

	t.Run("TruncatedParams", func(t *testing.T) {
		e, _ := fixedRateEngine(t)
		data := encode(t, worldParams(e.world, new(uint256.Int), new(uint256.Int)))
		_, err := e.initiator.InitiateFlashSwap(ctx, e.world.PoolA.Address(), new(uint256.Int), oneEther(t), data[:200])
		require.ErrorIs(t, err, ErrMalformedParams)
	})

	t.Run("PausedPool", func(t *testing.T) {
		e, _ := fixedRateEngine(t)
		e.world.PoolA.SetPaused(true)
		_, err := e.initiator.InitiateFlashSwap(ctx, e.world.PoolA.Address(), new(uint256.Int), oneEther(t),
			encode(t, worldParams(e.world, new(uint256.Int), new(uint256.Int))))
		require.ErrorIs(t, err, ErrExternalCall)
		assert.ErrorIs(t, err, dex.ErrPoolPaused)

		var rerr *RevertError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, dex.ErrPoolPaused.Error(), rerr.Reason)
		assert.NotEmpty(t, rerr.RevertData())
		assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.Aborts.WithLabelValues("external_call_failure")))
	})

	// The router pays out of the lending pool, so the callback settles but
	// the pool's own balance check fails afterwards.
	t.Run("PoolRepaymentCheck", func(t *testing.T) {
		w := testutils.NewWorld(t)
		router := testutils.NewFixedRateRouter(w.PoolA.Address(), w.State)
		router.SetRate(uniswap.WETHAddress, uniswap.USDCAddress, testutils.Units(t, "2000", 6), oneEther(t))
		router.SetRate(uniswap.USDCAddress, uniswap.WETHAddress, testutils.Units(t, "1.01", 18), testutils.Units(t, "2000", 6))
		e, logs := newObservedEngine(t, w, router)
		before := w.State.Fingerprint()

		_, err := e.initiator.InitiateFlashSwap(ctx, w.PoolA.Address(), new(uint256.Int), oneEther(t),
			encode(t, worldParams(w, new(uint256.Int), new(uint256.Int))))
		require.ErrorIs(t, err, ErrExternalCall)
		assert.ErrorIs(t, err, dex.ErrFlashNotRepaid1)
		assert.Equal(t, before, w.State.Fingerprint())
		assert.Equal(t, 2, router.Calls)
		assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.Aborts.WithLabelValues("external_call_failure")))

		states := transitions(logs)
		assert.NotContains(t, states, "committed")
		require.NotEmpty(t, states)
		assert.Equal(t, "repayment_check", states[len(states)-2])
		assert.Equal(t, "aborted", states[len(states)-1])
	})
}

func TestSwapExactInPoolIdentity(t *testing.T) {
	w := testutils.NewWorld(t)
	swaps := NewSwapExecutor(testutils.Executor, w.Factory, w.Router, w.State, zaptest.NewLogger(t))
	before := w.State.Fingerprint()

	// checksum-invalid address that does not derive from the factory
	bogus := common.HexToAddress("0x8ad599c3A0b1A56AAd039ddAc6837Db27B2f64C5")
	require.NotEqual(t, w.PoolB.Address(), bogus)

	_, err := swaps.SwapExactIn(context.Background(), bogus, uniswap.FeeMedium,
		uniswap.USDCAddress, uniswap.WETHAddress, testutils.Units(t, "2000", 6), new(uint256.Int))
	require.ErrorIs(t, err, ErrMalformedParams)
	assert.Equal(t, before, w.State.Fingerprint())
}

func TestInitiateValidation(t *testing.T) {
	e, router := fixedRateEngine(t)
	w := e.world
	ctx := context.Background()
	params := encode(t, worldParams(w, new(uint256.Int), new(uint256.Int)))
	one := oneEther(t)
	zero := new(uint256.Int)

	tests := []struct {
		name    string
		pool    common.Address
		amount0 *uint256.Int
		amount1 *uint256.Int
		params  []byte
	}{
		{"ZeroPool", common.Address{}, zero, one, params},
		{"UnknownPool", testutils.Stranger, zero, one, params},
		{"BothAmounts", w.PoolA.Address(), one, one, params},
		{"NoAmount", w.PoolA.Address(), zero, zero, params},
		{"NilAmount", w.PoolA.Address(), nil, one, params},
		{"EmptyParams", w.PoolA.Address(), zero, one, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.initiator.InitiateFlashSwap(ctx, tt.pool, tt.amount0, tt.amount1, tt.params)
			require.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	t.Run("AlreadyInFlight", func(t *testing.T) {
		f := &flight{pool: w.PoolB.Address()}
		require.True(t, e.orchestrator.begin(f))
		defer e.orchestrator.end(f)

		_, err := e.initiator.InitiateFlashSwap(ctx, w.PoolA.Address(), zero, one, params)
		require.ErrorIs(t, err, ErrInvalidRequest)
		var rerr *RevertError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, ReasonInFlight, rerr.Reason)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := e.initiator.InitiateFlashSwap(cctx, w.PoolA.Address(), zero, one, params)
		require.ErrorIs(t, err, context.Canceled)
	})

	assert.Equal(t, 0, router.Calls)
}
