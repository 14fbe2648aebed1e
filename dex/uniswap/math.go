package uniswap

import (
	"github.com/holiman/uint256"

	"github.com/michaelpento.lv/flashswap/dex"
	mathutil "github.com/michaelpento.lv/flashswap/utils/math"
)

var feeDenominator = uint256.NewInt(dex.FeeDenominator)

// getAmountOut calculates output amount for an input amount on a
// constant-product curve that keeps fee/1e6 of the input
func getAmountOut(amountIn, reserveIn, reserveOut *uint256.Int, fee uint32) (*uint256.Int, error) {
	if amountIn.IsZero() {
		return nil, dex.ErrZeroAmount
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, dex.ErrNoLiquidity
	}

	amountInWithFee, err := mathutil.Mul(amountIn, uint256.NewInt(uint64(dex.FeeDenominator-fee)))
	if err != nil {
		return nil, err
	}
	scaledReserve, err := mathutil.Mul(reserveIn, feeDenominator)
	if err != nil {
		return nil, err
	}
	denominator, err := mathutil.Add(scaledReserve, amountInWithFee)
	if err != nil {
		return nil, err
	}
	return mathutil.MulDiv(amountInWithFee, reserveOut, denominator)
}

// flashFee is the fee a pool charges for lending amount, rounded up
func flashFee(amount *uint256.Int, fee uint32) (*uint256.Int, error) {
	return mathutil.MulDivRoundingUp(amount, uint256.NewInt(uint64(fee)), feeDenominator)
}
