package pricing

import (
	"fmt"

	"github.com/holiman/uint256"
)

func sortPrices(a, b *uint256.Int) (*uint256.Int, *uint256.Int) {
	if a.Gt(b) {
		return b, a
	}
	return a, b
}

// GetLiquidityForAmount0 computes the liquidity received for amount0 of
// currency0 across [sqrtA, sqrtB].
func GetLiquidityForAmount0(sqrtA, sqrtB, amount0 *uint256.Int) (*uint256.Int, error) {
	sqrtA, sqrtB = sortPrices(sqrtA, sqrtB)
	intermediate, err := mulDiv(sqrtA, sqrtB, Q96)
	if err != nil {
		return nil, err
	}
	liquidity, err := mulDiv(amount0, intermediate, new(uint256.Int).Sub(sqrtB, sqrtA))
	if err != nil {
		return nil, err
	}
	return checkLiquidity(liquidity)
}

// GetLiquidityForAmount1 computes the liquidity received for amount1 of
// currency1 across [sqrtA, sqrtB].
func GetLiquidityForAmount1(sqrtA, sqrtB, amount1 *uint256.Int) (*uint256.Int, error) {
	sqrtA, sqrtB = sortPrices(sqrtA, sqrtB)
	liquidity, err := mulDiv(amount1, Q96, new(uint256.Int).Sub(sqrtB, sqrtA))
	if err != nil {
		return nil, err
	}
	return checkLiquidity(liquidity)
}

// GetLiquidityForAmounts computes the maximum liquidity that amount0 and
// amount1 can back at the current price over [sqrtA, sqrtB].
func GetLiquidityForAmounts(sqrtPrice, sqrtA, sqrtB, amount0, amount1 *uint256.Int) (*uint256.Int, error) {
	sqrtA, sqrtB = sortPrices(sqrtA, sqrtB)

	switch {
	case !sqrtPrice.Gt(sqrtA):
		return GetLiquidityForAmount0(sqrtA, sqrtB, amount0)
	case sqrtPrice.Lt(sqrtB):
		liquidity0, err := GetLiquidityForAmount0(sqrtPrice, sqrtB, amount0)
		if err != nil {
			return nil, err
		}
		liquidity1, err := GetLiquidityForAmount1(sqrtA, sqrtPrice, amount1)
		if err != nil {
			return nil, err
		}
		return minInt(liquidity0, liquidity1), nil
	default:
		return GetLiquidityForAmount1(sqrtA, sqrtB, amount1)
	}
}

// Amount0Delta is the currency0 needed for liquidity between two prices.
func Amount0Delta(sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	sqrtA, sqrtB = sortPrices(sqrtA, sqrtB)
	if sqrtA.IsZero() {
		return nil, fmt.Errorf("%w: zero sqrt price", ErrInvalidSqrtPrice)
	}

	numerator1 := new(uint256.Int).Lsh(liquidity, Resolution96)
	numerator2 := new(uint256.Int).Sub(sqrtB, sqrtA)

	if roundUp {
		partial, err := mulDivRoundingUp(numerator1, numerator2, sqrtB)
		if err != nil {
			return nil, err
		}
		return divRoundingUp(partial, sqrtA)
	}
	partial, err := mulDiv(numerator1, numerator2, sqrtB)
	if err != nil {
		return nil, err
	}
	return partial.Div(partial, sqrtA), nil
}

// Amount1Delta is the currency1 needed for liquidity between two prices.
func Amount1Delta(sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	sqrtA, sqrtB = sortPrices(sqrtA, sqrtB)
	diff := new(uint256.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		return mulDivRoundingUp(liquidity, diff, Q96)
	}
	return mulDiv(liquidity, diff, Q96)
}

// AmountsForLiquidity returns the currency0/currency1 amounts a position of
// the given liquidity holds at sqrtPrice.
func AmountsForLiquidity(sqrtPrice, sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) (amount0, amount1 *uint256.Int, err error) {
	sqrtA, sqrtB = sortPrices(sqrtA, sqrtB)
	amount0, amount1 = new(uint256.Int), new(uint256.Int)

	switch {
	case !sqrtPrice.Gt(sqrtA):
		amount0, err = Amount0Delta(sqrtA, sqrtB, liquidity, roundUp)
	case sqrtPrice.Lt(sqrtB):
		amount0, err = Amount0Delta(sqrtPrice, sqrtB, liquidity, roundUp)
		if err != nil {
			return nil, nil, err
		}
		amount1, err = Amount1Delta(sqrtA, sqrtPrice, liquidity, roundUp)
	default:
		amount1, err = Amount1Delta(sqrtA, sqrtB, liquidity, roundUp)
	}
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

func checkLiquidity(liquidity *uint256.Int) (*uint256.Int, error) {
	if liquidity.Gt(MaxUint128) {
		return nil, fmt.Errorf("%w: %s", ErrLiquidityOverflow, liquidity.Dec())
	}
	return liquidity, nil
}
