package pricing

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Each entry is 2^128 / sqrt(1.0001)^(2^i), applied when bit i of |tick| is set.
var tickRatios = [...]*uint256.Int{
	uint256.MustFromHex("0xfffcb933bd6fad37aa2d162d1a594001"),
	uint256.MustFromHex("0xfff97272373d413259a46990580e213a"),
	uint256.MustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
	uint256.MustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
	uint256.MustFromHex("0xffcb9843d60f6159c9db58835c926644"),
	uint256.MustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
	uint256.MustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
	uint256.MustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
	uint256.MustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
	uint256.MustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
	uint256.MustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
	uint256.MustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
	uint256.MustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
	uint256.MustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
	uint256.MustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
	uint256.MustFromHex("0x31be135f97d08fd981231505542fcfa6"),
	uint256.MustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
	uint256.MustFromHex("0x5d6af8dedb81196699c329225ee604"),
	uint256.MustFromHex("0x2216e584f5fa1ea926041bedfe98"),
	uint256.MustFromHex("0x48a170391f7dc42444e8fa2"),
}

var q128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)

// GetSqrtPriceAtTick returns sqrt(1.0001^tick) as a Q64.96 value.
func GetSqrtPriceAtTick(tick int32) (*uint256.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTick, tick)
	}
	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}

	ratio := q128.Clone()
	if absTick&1 != 0 {
		ratio.Set(tickRatios[0])
	}
	for i := 1; i < len(tickRatios); i++ {
		if absTick&(1<<i) != 0 {
			ratio.Mul(ratio, tickRatios[i])
			ratio.Rsh(ratio, 128)
		}
	}
	if tick > 0 {
		ratio = new(uint256.Int).Div(MaxUint256, ratio)
	}

	// Round up so that GetTickAtSqrtPrice(GetSqrtPriceAtTick(t)) == t.
	rem := new(uint256.Int).And(ratio, uint256.NewInt(0xffffffff))
	sqrtPrice := ratio.Rsh(ratio, 32)
	if !rem.IsZero() {
		sqrtPrice.AddUint64(sqrtPrice, 1)
	}
	return sqrtPrice, nil
}

// GetTickAtSqrtPrice returns the greatest tick whose sqrt price is at most
// sqrtPrice.
func GetTickAtSqrtPrice(sqrtPrice *uint256.Int) (int32, error) {
	if sqrtPrice.Lt(MinSqrtPrice) || !sqrtPrice.Lt(MaxSqrtPrice) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidSqrtPrice, sqrtPrice.Dec())
	}

	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		atMid, err := GetSqrtPriceAtTick(mid)
		if err != nil {
			return 0, err
		}
		if atMid.Gt(sqrtPrice) {
			hi = mid - 1
		} else {
			lo = mid
		}
	}
	return lo, nil
}

// MinUsableTick is the lowest tick aligned to spacing.
func MinUsableTick(spacing int32) int32 {
	return (MinTick / spacing) * spacing
}

// MaxUsableTick is the highest tick aligned to spacing.
func MaxUsableTick(spacing int32) int32 {
	return (MaxTick / spacing) * spacing
}

// FloorTick rounds tick down to a multiple of spacing.
func FloorTick(tick, spacing int32) int32 {
	compressed := tick / spacing
	if tick < 0 && tick%spacing != 0 {
		compressed--
	}
	return compressed * spacing
}

// CheckTickSpacing validates a pool tick spacing.
func CheckTickSpacing(spacing int32) error {
	if spacing < MinTickSpacing || spacing > MaxTickSpacing {
		return fmt.Errorf("%w: %d", ErrInvalidTickSpacing, spacing)
	}
	return nil
}

// MaxLiquidityPerTick bounds the liquidity any single tick may reference.
func MaxLiquidityPerTick(spacing int32) *uint256.Int {
	numTicks := uint64((MaxUsableTick(spacing)-MinUsableTick(spacing))/spacing) + 1
	return new(uint256.Int).Div(MaxUint128, uint256.NewInt(numTicks))
}
