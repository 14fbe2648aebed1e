package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/flashswap/dex"
	"github.com/michaelpento.lv/flashswap/flashloan"
	"github.com/michaelpento.lv/flashswap/types"
	"github.com/michaelpento.lv/flashswap/utils"
)

// ErrInvalidRoute is returned for routes that cannot be planned
var ErrInvalidRoute = errors.New("invalid route")

// Route is an explicit two-leg flash swap route. The borrowed asset is lent
// by LendingPool, sold into IntermediateAsset there and bought back in the
// FeeTierB pool of the same pair.
type Route struct {
	LendingPool       common.Address
	BorrowAsset       common.Address
	IntermediateAsset common.Address
	FeeTierA          uint32
	FeeTierB          uint32
	Amount            *uint256.Int
}

// Quote is what a route is expected to do at current prices
type Quote struct {
	Leg1Out        *uint256.Int
	Leg2Out        *uint256.Int
	MinOutLeg1     *uint256.Int
	MinOutLeg2     *uint256.Int
	Fee            *uint256.Int
	Owed           *uint256.Int
	ExpectedProfit *big.Int
	Params         *types.ArbitrageParams
}

// Profitable reports whether the quoted realized amount covers the loan
func (q *Quote) Profitable() bool {
	return q.ExpectedProfit.Sign() > 0
}

// Planner prices routes through a router and turns them into flash loan
// requests carrying explicit slippage floors
type Planner struct {
	factory   dex.Factory
	router    dex.Router
	codec     flashloan.ParamsCodec
	profit    *utils.ProfitCalculator
	repayment flashloan.RepaymentCalculator
	logger    *zap.Logger
}

// NewPlanner creates a planner with the given slippage tolerance in basis points
func NewPlanner(factory dex.Factory, router dex.Router, codec flashloan.ParamsCodec, slippageBps uint32, logger *zap.Logger) (*Planner, error) {
	if factory == nil || router == nil {
		return nil, errors.New("planner requires a factory and a router")
	}
	if codec == nil {
		codec = flashloan.ParamsV1{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	profit, err := utils.NewProfitCalculator(slippageBps)
	if err != nil {
		return nil, err
	}
	return &Planner{
		factory: factory,
		router:  router,
		codec:   codec,
		profit:  profit,
		logger:  logger,
	}, nil
}

// Plan quotes both legs of the route and returns the request to initiate
func (p *Planner) Plan(ctx context.Context, route Route) (*types.FlashLoanRequest, *Quote, error) {
	if route.Amount == nil || route.Amount.IsZero() {
		return nil, nil, fmt.Errorf("%w: zero amount", ErrInvalidRoute)
	}
	pool, err := p.factory.PoolByAddress(route.LendingPool)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: lending pool %s: %v", ErrInvalidRoute, route.LendingPool.Hex(), err)
	}
	if pool.Fee() != route.FeeTierA {
		return nil, nil, fmt.Errorf("%w: lending pool fee is %d, route says %d", ErrInvalidRoute, pool.Fee(), route.FeeTierA)
	}

	amount0, amount1 := new(uint256.Int), new(uint256.Int)
	switch {
	case route.BorrowAsset == pool.Token0() && route.IntermediateAsset == pool.Token1():
		amount0 = route.Amount
	case route.BorrowAsset == pool.Token1() && route.IntermediateAsset == pool.Token0():
		amount1 = route.Amount
	default:
		return nil, nil, fmt.Errorf("%w: pool does not trade %s/%s", ErrInvalidRoute,
			route.BorrowAsset.Hex(), route.IntermediateAsset.Hex())
	}

	leg1Out, err := p.router.QuoteExactInputSingle(ctx, route.BorrowAsset, route.IntermediateAsset, route.FeeTierA, route.Amount)
	if err != nil {
		return nil, nil, fmt.Errorf("quote leg 1: %w", err)
	}
	leg2Out, err := p.router.QuoteExactInputSingle(ctx, route.IntermediateAsset, route.BorrowAsset, route.FeeTierB, leg1Out)
	if err != nil {
		return nil, nil, fmt.Errorf("quote leg 2: %w", err)
	}

	quote := &Quote{
		Leg1Out: leg1Out,
		Leg2Out: leg2Out,
	}
	if quote.Fee, err = p.repayment.Fee(route.Amount, route.FeeTierA); err != nil {
		return nil, nil, err
	}
	if quote.Owed, err = p.repayment.OwedWithFee(route.Amount, quote.Fee); err != nil {
		return nil, nil, err
	}
	if quote.ExpectedProfit, err = p.profit.ExpectedProfit(leg2Out, quote.Owed); err != nil {
		return nil, nil, err
	}
	if quote.MinOutLeg1, err = p.profit.MinimumOutput(leg1Out); err != nil {
		return nil, nil, err
	}
	if quote.MinOutLeg2, err = p.profit.MinimumOutput(leg2Out); err != nil {
		return nil, nil, err
	}

	quote.Params = &types.ArbitrageParams{
		IntermediateAsset: route.IntermediateAsset,
		PoolA:             route.LendingPool,
		PoolB:             p.factory.ComputeAddress(route.BorrowAsset, route.IntermediateAsset, route.FeeTierB),
		FeeTierA:          route.FeeTierA,
		FeeTierB:          route.FeeTierB,
		MinOutLeg1:        quote.MinOutLeg1,
		MinOutLeg2:        quote.MinOutLeg2,
	}
	data, err := p.codec.Encode(quote.Params)
	if err != nil {
		return nil, nil, fmt.Errorf("encode params: %w", err)
	}

	p.logger.Debug("Planned route",
		zap.String("pool", route.LendingPool.Hex()),
		zap.String("leg1Out", leg1Out.Dec()),
		zap.String("leg2Out", leg2Out.Dec()),
		zap.String("owed", quote.Owed.Dec()),
		zap.String("expectedProfit", quote.ExpectedProfit.String()),
		zap.Uint32("slippageBps", p.profit.SlippageBps()))

	return &types.FlashLoanRequest{
		LendingPool:    route.LendingPool,
		Amount0:        amount0,
		Amount1:        amount1,
		CallbackParams: data,
	}, quote, nil
}
