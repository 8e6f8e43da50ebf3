package pricing

import "github.com/holiman/uint256"

// Fixed-point resolutions used by the pool.
const (
	Resolution96  = 96
	Resolution192 = 192
)

// Tick bounds of a concentrated-liquidity pool.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272

	MinTickSpacing int32 = 1
	MaxTickSpacing int32 = 32767
)

var (
	// Q96 is 2^96.
	Q96 = new(uint256.Int).Lsh(uint256.NewInt(1), Resolution96)
	// Q192 is 2^192.
	Q192 = new(uint256.Int).Lsh(uint256.NewInt(1), Resolution192)

	MaxUint128 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)
	MaxUint160 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 160), 1)
	MaxUint256 = new(uint256.Int).SetAllOne()

	// MinSqrtPrice is the sqrt price at MinTick.
	MinSqrtPrice = uint256.NewInt(4295128739)
	// MaxSqrtPrice is the sqrt price at MaxTick.
	MaxSqrtPrice = uint256.MustFromDecimal("1461446703485210103287273052203988822378723970342")
)
