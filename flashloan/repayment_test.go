package flashloan

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepaymentFee(t *testing.T) {
	calc := RepaymentCalculator{}

	tests := []struct {
		name     string
		borrowed string
		feeTier  uint32
		fee      string
	}{
		{"OneEtherAtFivePips", "1000000000000000000", 500, "500000000000000"},
		{"RoundsUp", "1", 500, "1"},
		{"ExactThreePips", "1000000", 3000, "3000"},
		{"ZeroTier", "123456789", 0, "0"},
		{"ZeroBorrowed", "0", 10000, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, err := calc.Fee(uint256.MustFromDecimal(tt.borrowed), tt.feeTier)
			require.NoError(t, err)
			assert.Equal(t, tt.fee, fee.Dec())
		})
	}
}

func TestRepaymentOwed(t *testing.T) {
	calc := RepaymentCalculator{}

	owed, err := calc.Owed(uint256.MustFromDecimal("1000000000000000000"), 500)
	require.NoError(t, err)
	assert.Equal(t, "1000500000000000000", owed.Dec())

	owed, err = calc.Owed(new(uint256.Int), 3000)
	require.NoError(t, err)
	assert.True(t, owed.IsZero())

	t.Run("Monotone", func(t *testing.T) {
		prev := new(uint256.Int)
		for i := uint64(0); i < 5000; i += 7 {
			owed, err := calc.Owed(uint256.NewInt(i), 3000)
			require.NoError(t, err)
			assert.False(t, owed.Lt(prev), "owed(%d) decreased", i)
			assert.False(t, owed.Lt(uint256.NewInt(i)))
			prev = owed
		}
	})

	t.Run("InvalidFeeTier", func(t *testing.T) {
		_, err := calc.Owed(uint256.NewInt(1), 1_000_000)
		assert.ErrorIs(t, err, ErrMalformedParams)
	})

	t.Run("Overflow", func(t *testing.T) {
		max := new(uint256.Int).SetAllOne()
		_, err := calc.Owed(max, 500)
		require.ErrorIs(t, err, ErrArithmetic)

		_, err = calc.OwedWithFee(max, uint256.NewInt(1))
		require.ErrorIs(t, err, ErrArithmetic)

		owed, err := calc.OwedWithFee(max, new(uint256.Int))
		require.NoError(t, err)
		assert.True(t, owed.Eq(max))
	})
}
