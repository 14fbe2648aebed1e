package utils

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"

	mathutil "github.com/michaelpento.lv/flashswap/utils/math"
)

const bpsDenominator = 10_000

// ProfitCalculator turns quoted amounts into slippage floors and expected profit
type ProfitCalculator struct {
	slippageBps uint32
}

// NewProfitCalculator creates a calculator allowing slippageBps basis points
// of slippage on every quoted output
func NewProfitCalculator(slippageBps uint32) (*ProfitCalculator, error) {
	if slippageBps > bpsDenominator {
		return nil, errors.New("slippage tolerance exceeds 100%")
	}
	return &ProfitCalculator{
		slippageBps: slippageBps,
	}, nil
}

// SlippageBps returns the configured tolerance
func (p *ProfitCalculator) SlippageBps() uint32 {
	return p.slippageBps
}

// MinimumOutput returns quoted * (1 - slippage), rounded down
func (p *ProfitCalculator) MinimumOutput(quoted *uint256.Int) (*uint256.Int, error) {
	if quoted == nil {
		return nil, errors.New("invalid parameters")
	}
	return mathutil.MulDiv(quoted,
		uint256.NewInt(uint64(bpsDenominator-p.slippageBps)),
		uint256.NewInt(bpsDenominator))
}

// ExpectedProfit returns realized - owed, negative when the trade loses
func (p *ProfitCalculator) ExpectedProfit(realized, owed *uint256.Int) (*big.Int, error) {
	if realized == nil || owed == nil {
		return nil, errors.New("invalid parameters")
	}
	return mathutil.SignedDiff(realized, owed), nil
}
