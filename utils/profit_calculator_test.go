package utils

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfitCalculator(t *testing.T) {
	_, err := NewProfitCalculator(10_001)
	require.Error(t, err)

	calc, err := NewProfitCalculator(50)
	require.NoError(t, err)

	t.Run("MinimumOutput", func(t *testing.T) {
		min, err := calc.MinimumOutput(uint256.NewInt(2_000_000_000))
		require.NoError(t, err)
		assert.Equal(t, uint64(1_990_000_000), min.Uint64())

		min, err = calc.MinimumOutput(uint256.NewInt(199))
		require.NoError(t, err)
		assert.Equal(t, uint64(198), min.Uint64())
	})

	t.Run("ExpectedProfit", func(t *testing.T) {
		profit, err := calc.ExpectedProfit(uint256.NewInt(100), uint256.NewInt(120))
		require.NoError(t, err)
		assert.Equal(t, "-20", profit.String())

		_, err = calc.ExpectedProfit(nil, uint256.NewInt(1))
		assert.Error(t, err)
	})

	t.Run("ZeroTolerance", func(t *testing.T) {
		exact, err := NewProfitCalculator(0)
		require.NoError(t, err)
		min, err := exact.MinimumOutput(uint256.NewInt(12345))
		require.NoError(t, err)
		assert.Equal(t, uint64(12345), min.Uint64())
	})
}
