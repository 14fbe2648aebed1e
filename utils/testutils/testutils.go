package testutils

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/flashswap/dex"
	"github.com/michaelpento.lv/flashswap/dex/uniswap"
	"github.com/michaelpento.lv/flashswap/simulator"
	mathutil "github.com/michaelpento.lv/flashswap/utils/math"
)

// Well-known test accounts
var (
	Executor      = common.HexToAddress("0x00000000000000000000000000000000000e8ec0")
	RouterAddress = uniswap.MainnetRouter
	Stranger      = common.HexToAddress("0x000000000000000000000000000000000ba5eba1")
)

// World is a mainnet-shaped WETH/USDC market: the 0.05% and 0.3% pools
// at their real addresses, both priced at 2000 USDC per WETH
type World struct {
	State   *simulator.State
	Factory *uniswap.Factory
	Router  *uniswap.Router
	PoolA   *uniswap.Pool // 0.05%
	PoolB   *uniswap.Pool // 0.3%
}

// NewWorld builds a World with 10,000 WETH and 20,000,000 USDC in each pool
func NewWorld(t *testing.T) *World {
	t.Helper()
	logger := zaptest.NewLogger(t)

	st := simulator.NewState()
	factory, err := uniswap.NewFactory(uniswap.MainnetFactory, uniswap.PoolInitCodeHash, st, logger)
	require.NoError(t, err)

	w := &World{
		State:   st,
		Factory: factory,
		Router:  uniswap.NewRouter(RouterAddress, factory, logger),
	}
	w.PoolA = w.createPool(t, uniswap.FeeLow)
	w.PoolB = w.createPool(t, uniswap.FeeMedium)
	st.Finalise()
	return w
}

func (w *World) createPool(t *testing.T, fee uint32) *uniswap.Pool {
	pool, err := w.Factory.CreatePool(uniswap.WETHAddress, uniswap.USDCAddress, fee)
	require.NoError(t, err)
	require.NoError(t, w.State.Mint(uniswap.WETHAddress, pool.Address(), Units(t, "10000", 18)))
	require.NoError(t, w.State.Mint(uniswap.USDCAddress, pool.Address(), Units(t, "20000000", 6)))
	return pool
}

// Units parses a decimal amount with the given number of decimals
func Units(t *testing.T, value string, decimals uint8) *uint256.Int {
	t.Helper()
	amount, err := mathutil.ParseUnits(value, decimals)
	require.NoError(t, err)
	return amount
}

type pair struct {
	in  common.Address
	out common.Address
}

type rate struct {
	num *uint256.Int
	den *uint256.Int
}

// FixedRateRouter swaps at configured rates out of its own inventory,
// ignoring pool reserves. It counts every swap it is asked to make.
type FixedRateRouter struct {
	address common.Address
	state   *simulator.State
	rates   map[pair]rate
	Calls   int
}

var _ dex.Router = (*FixedRateRouter)(nil)

// NewFixedRateRouter creates a router with no rates
func NewFixedRateRouter(address common.Address, state *simulator.State) *FixedRateRouter {
	return &FixedRateRouter{
		address: address,
		state:   state,
		rates:   make(map[pair]rate),
	}
}

// SetRate makes amountIn of in pay amountIn * num / den of out
func (r *FixedRateRouter) SetRate(in, out common.Address, num, den *uint256.Int) {
	r.rates[pair{in, out}] = rate{num, den}
}

// Address returns the router address
func (r *FixedRateRouter) Address() common.Address {
	return r.address
}

// QuoteExactInputSingle implements dex.Router
func (r *FixedRateRouter) QuoteExactInputSingle(ctx context.Context, tokenIn, tokenOut common.Address, fee uint32, amountIn *uint256.Int) (*uint256.Int, error) {
	rt, ok := r.rates[pair{tokenIn, tokenOut}]
	if !ok {
		return nil, fmt.Errorf("no rate for %s/%s", tokenIn.Hex(), tokenOut.Hex())
	}
	return mathutil.MulDiv(amountIn, rt.num, rt.den)
}

// ExactInputSingle implements dex.Router
func (r *FixedRateRouter) ExactInputSingle(ctx context.Context, sender common.Address, params dex.ExactInputSingleParams) (*uint256.Int, error) {
	r.Calls++
	out, err := r.QuoteExactInputSingle(ctx, params.TokenIn, params.TokenOut, params.Fee, params.AmountIn)
	if err != nil {
		return nil, err
	}
	if params.AmountOutMinimum == nil {
		return nil, errors.New("amountOutMinimum is required")
	}
	err = r.state.Atomic(func() error {
		if err := r.state.TransferFrom(params.TokenIn, r.address, sender, r.address, params.AmountIn); err != nil {
			return err
		}
		if out.Lt(params.AmountOutMinimum) {
			return dex.ErrTooLittleReceived
		}
		return r.state.Transfer(params.TokenOut, r.address, params.Recipient, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FailingRouter fails every swap with Err
type FailingRouter struct {
	RouterAddress common.Address
	Err           error
}

var _ dex.Router = (*FailingRouter)(nil)

// Address returns the router address
func (r *FailingRouter) Address() common.Address {
	return r.RouterAddress
}

// ExactInputSingle implements dex.Router
func (r *FailingRouter) ExactInputSingle(ctx context.Context, sender common.Address, params dex.ExactInputSingleParams) (*uint256.Int, error) {
	return nil, r.Err
}

// QuoteExactInputSingle implements dex.Router
func (r *FailingRouter) QuoteExactInputSingle(ctx context.Context, tokenIn, tokenOut common.Address, fee uint32, amountIn *uint256.Int) (*uint256.Int, error) {
	return nil, r.Err
}
