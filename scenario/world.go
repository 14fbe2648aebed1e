package scenario

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/flashswap/dex/uniswap"
	"github.com/michaelpento.lv/flashswap/flashloan"
	"github.com/michaelpento.lv/flashswap/simulator"
	"github.com/michaelpento.lv/flashswap/strategies/arbitrage"
	"github.com/michaelpento.lv/flashswap/types"
	"github.com/michaelpento.lv/flashswap/utils/metrics"
)

// DefaultExecutor receives the loan when a fixture names no executor
var DefaultExecutor = common.HexToAddress("0x000000000000000000000000000000000000f1a5")

// Options wire a fixture to a deployment
type Options struct {
	Factory      common.Address
	InitCodeHash common.Hash
	Router       common.Address
	Executor     common.Address
	FeeTiers     []uint32
	Metrics      *metrics.SettlementMetrics
	Logger       *zap.Logger
}

// DefaultOptions deploys at the Uniswap V3 mainnet addresses
func DefaultOptions() Options {
	return Options{
		Factory:      uniswap.MainnetFactory,
		InitCodeHash: uniswap.PoolInitCodeHash,
		Router:       uniswap.MainnetRouter,
		Executor:     DefaultExecutor,
	}
}

// World is a fixture deployed into a fresh in-memory state
type World struct {
	Fixture   *Fixture
	Simulator *simulator.Simulator
	State     *simulator.State
	Factory   *uniswap.Factory
	Router    *uniswap.Router
	Pools     map[string]*uniswap.Pool
	Executor  common.Address
	Initiator *flashloan.LoanInitiator
	Codec     flashloan.ParamsCodec

	logger *zap.Logger
}

// Build deploys the fixture's pools, funds them and wires a settlement engine
func Build(f *Fixture, opts Options) (*World, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	st := simulator.NewState()
	factory, err := uniswap.NewFactory(opts.Factory, opts.InitCodeHash, st, logger)
	if err != nil {
		return nil, err
	}
	for _, fee := range opts.FeeTiers {
		if err := factory.EnableFeeAmount(fee); err != nil {
			return nil, err
		}
	}

	w := &World{
		Fixture:  f,
		State:    st,
		Factory:  factory,
		Router:   uniswap.NewRouter(opts.Router, factory, logger),
		Pools:    make(map[string]*uniswap.Pool, len(f.Pools)),
		Executor: opts.Executor,
		logger:   logger,
	}
	if f.Executor != "" {
		w.Executor = common.HexToAddress(f.Executor)
	}
	if w.Executor == (common.Address{}) {
		w.Executor = DefaultExecutor
	}

	for _, p := range f.Pools {
		if err := w.deployPool(p); err != nil {
			return nil, fmt.Errorf("pool %s: %w", p.Name, err)
		}
	}
	for sym, value := range f.Funding {
		if err := w.mint(sym, value, w.Executor); err != nil {
			return nil, fmt.Errorf("funding: %w", err)
		}
	}
	st.Finalise()

	orchestrator, err := flashloan.NewOrchestrator(flashloan.Config{
		Executor: w.Executor,
		Factory:  factory,
		Router:   w.Router,
	}, st, opts.Metrics, logger)
	if err != nil {
		return nil, err
	}
	w.Initiator = flashloan.NewLoanInitiator(orchestrator, logger)
	w.Codec = orchestrator.Codec()
	w.Simulator = simulator.NewSimulator(st, logger)

	return w, nil
}

func (w *World) deployPool(p Pool) error {
	a, err := w.Fixture.token(p.Pair[0])
	if err != nil {
		return err
	}
	b, err := w.Fixture.token(p.Pair[1])
	if err != nil {
		return err
	}
	pool, err := w.Factory.CreatePool(common.HexToAddress(a.Address), common.HexToAddress(b.Address), p.Fee)
	if err != nil {
		return err
	}
	w.Pools[p.Name] = pool

	for sym, value := range p.Reserves {
		if err := w.mint(sym, value, pool.Address()); err != nil {
			return err
		}
	}

	w.logger.Info("Pool deployed",
		zap.String("name", p.Name),
		zap.String("pool", pool.Address().Hex()),
		zap.Uint32("fee", p.Fee))
	return nil
}

func (w *World) mint(symbol, value string, to common.Address) error {
	t, err := w.Fixture.token(symbol)
	if err != nil {
		return err
	}
	amount, err := w.Fixture.amount(symbol, value)
	if err != nil {
		return err
	}
	return w.State.Mint(common.HexToAddress(t.Address), to, amount)
}

// Request builds the flash loan request for the fixture's route. The quote
// is nil when the fixture gives explicit minimums.
func (w *World) Request(ctx context.Context) (*types.FlashLoanRequest, *arbitrage.Quote, error) {
	r := w.Fixture.Route
	lending, ok := w.Pools[r.LendingPool]
	if !ok {
		return nil, nil, fmt.Errorf("unknown lending pool %q", r.LendingPool)
	}
	swap, ok := w.Pools[r.SwapPool]
	if !ok {
		return nil, nil, fmt.Errorf("unknown swap pool %q", r.SwapPool)
	}
	if swap.Token0() != lending.Token0() || swap.Token1() != lending.Token1() {
		return nil, nil, fmt.Errorf("pools %s and %s trade different pairs", r.LendingPool, r.SwapPool)
	}

	borrow, err := w.Fixture.token(r.Borrow)
	if err != nil {
		return nil, nil, err
	}
	intermediate, err := w.Fixture.token(r.Intermediate)
	if err != nil {
		return nil, nil, err
	}
	amount, err := w.Fixture.amount(r.Borrow, r.Amount)
	if err != nil {
		return nil, nil, err
	}

	if r.Planned() {
		planner, err := arbitrage.NewPlanner(w.Factory, w.Router, w.Codec, r.SlippageBps, w.logger)
		if err != nil {
			return nil, nil, err
		}
		return planner.Plan(ctx, arbitrage.Route{
			LendingPool:       lending.Address(),
			BorrowAsset:       common.HexToAddress(borrow.Address),
			IntermediateAsset: common.HexToAddress(intermediate.Address),
			FeeTierA:          lending.Fee(),
			FeeTierB:          swap.Fee(),
			Amount:            amount,
		})
	}

	minOut1, err := w.Fixture.amount(r.Intermediate, r.MinOutLeg1)
	if err != nil {
		return nil, nil, err
	}
	minOut2, err := w.Fixture.amount(r.Borrow, r.MinOutLeg2)
	if err != nil {
		return nil, nil, err
	}
	data, err := w.Codec.Encode(&types.ArbitrageParams{
		IntermediateAsset: common.HexToAddress(intermediate.Address),
		PoolA:             lending.Address(),
		PoolB:             swap.Address(),
		FeeTierA:          lending.Fee(),
		FeeTierB:          swap.Fee(),
		MinOutLeg1:        minOut1,
		MinOutLeg2:        minOut2,
	})
	if err != nil {
		return nil, nil, err
	}

	req := &types.FlashLoanRequest{
		LendingPool:    lending.Address(),
		Amount0:        new(uint256.Int),
		Amount1:        new(uint256.Int),
		CallbackParams: data,
	}
	if common.HexToAddress(borrow.Address) == lending.Token0() {
		req.Amount0 = amount
	} else {
		req.Amount1 = amount
	}
	return req, nil, nil
}
