package flashloan

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/michaelpento.lv/flashswap/dex"
	mathutil "github.com/michaelpento.lv/flashswap/utils/math"
)

var feeDenominator = uint256.NewInt(dex.FeeDenominator)

// RepaymentCalculator computes what a lending pool is owed. Fee tiers are in
// hundredths of a basis point, so 500 is 0.05%.
type RepaymentCalculator struct{}

// Fee returns ceil(borrowed * feeTier / 1e6)
func (RepaymentCalculator) Fee(borrowed *uint256.Int, feeTier uint32) (*uint256.Int, error) {
	if borrowed == nil {
		return nil, newRevert(KindInvalidRequest, "FlashSwap: missing amount", nil)
	}
	if feeTier >= dex.FeeDenominator {
		return nil, newRevert(KindMalformedParams, ReasonMalformedParams,
			fmt.Errorf("%w: %d", dex.ErrInvalidFeeTier, feeTier))
	}
	fee, err := mathutil.MulDivRoundingUp(borrowed, uint256.NewInt(uint64(feeTier)), feeDenominator)
	if err != nil {
		return nil, arithmetic(err)
	}
	return fee, nil
}

// Owed returns borrowed plus the fee charged at feeTier
func (c RepaymentCalculator) Owed(borrowed *uint256.Int, feeTier uint32) (*uint256.Int, error) {
	fee, err := c.Fee(borrowed, feeTier)
	if err != nil {
		return nil, err
	}
	return c.OwedWithFee(borrowed, fee)
}

// OwedWithFee returns borrowed plus a fee reported by the pool
func (RepaymentCalculator) OwedWithFee(borrowed, fee *uint256.Int) (*uint256.Int, error) {
	owed, err := mathutil.Add(borrowed, fee)
	if err != nil {
		return nil, arithmetic(err)
	}
	return owed, nil
}

func arithmetic(err error) error {
	return newRevert(KindArithmeticOverflow, ReasonOverflow, err)
}
