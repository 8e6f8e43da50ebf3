package pricing

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestFullRangeLiquidityFitsAmounts(t *testing.T) {
	lower, err := GetSqrtPriceAtTick(MinUsableTick(60))
	require.NoError(t, err)
	upper, err := GetSqrtPriceAtTick(MaxUsableTick(60))
	require.NoError(t, err)

	amount0, amount1 := ether(500), ether(500)
	liquidity, err := GetLiquidityForAmounts(Q96, lower, upper, amount0, amount1)
	require.NoError(t, err)
	require.False(t, liquidity.IsZero())
	require.False(t, liquidity.Gt(MaxLiquidityPerTick(60)))

	used0, used1, err := AmountsForLiquidity(Q96, lower, upper, liquidity, true)
	require.NoError(t, err)
	require.False(t, used0.Gt(amount0))
	require.False(t, used1.Gt(amount1))

	// At 1:1 a full-range position consumes all but a sliver of each side.
	dust0 := new(uint256.Int).Sub(amount0, used0)
	require.True(t, dust0.Lt(ether(1)))
}

func TestOneSidedLiquidity(t *testing.T) {
	lower, err := GetSqrtPriceAtTick(60)
	require.NoError(t, err)
	upper, err := GetSqrtPriceAtTick(MaxUsableTick(60))
	require.NoError(t, err)

	liquidity, err := GetLiquidityForAmounts(Q96, lower, upper, ether(10), ether(10))
	require.NoError(t, err)

	amount0, amount1, err := AmountsForLiquidity(Q96, lower, upper, liquidity, true)
	require.NoError(t, err)
	require.True(t, amount1.IsZero())
	require.False(t, amount0.Gt(ether(10)))
}

func TestAmountDeltaRounding(t *testing.T) {
	lower, err := GetSqrtPriceAtTick(-600)
	require.NoError(t, err)
	liquidity := uint256.NewInt(1_000_003)

	down, err := Amount1Delta(lower, Q96, liquidity, false)
	require.NoError(t, err)
	up, err := Amount1Delta(lower, Q96, liquidity, true)
	require.NoError(t, err)
	require.True(t, up.Cmp(down) >= 0)
	require.True(t, new(uint256.Int).Sub(up, down).Cmp(uint256.NewInt(1)) <= 0)
}
