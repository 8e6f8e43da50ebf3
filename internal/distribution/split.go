package distribution

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// MaxSplit represents 100% of the supply in split units.
const MaxSplit uint32 = 10_000_000

var (
	ErrInvalidSplit       = errors.New("invalid split ratio")
	ErrInvalidTotalSupply = errors.New("invalid total supply")
)

var maxUint128 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)

// Allocation is the auction/reserve split of a strategy's supply.
type Allocation struct {
	AuctionSupply *uint256.Int
	ReserveSupply *uint256.Int
}

// Split divides totalSupply between the auction and the liquidity reserve.
// Rounding favours the reserve, so the two halves always sum to totalSupply.
func Split(totalSupply *uint256.Int, splitRatio uint32) (Allocation, error) {
	if totalSupply == nil || totalSupply.IsZero() || totalSupply.Gt(maxUint128) {
		return Allocation{}, fmt.Errorf("%w: %v", ErrInvalidTotalSupply, totalSupply)
	}
	if splitRatio == 0 || splitRatio >= MaxSplit {
		return Allocation{}, fmt.Errorf("%w: %d", ErrInvalidSplit, splitRatio)
	}

	auction := new(uint256.Int).Mul(totalSupply, uint256.NewInt(uint64(splitRatio)))
	auction.Div(auction, uint256.NewInt(uint64(MaxSplit)))
	if auction.IsZero() {
		return Allocation{}, fmt.Errorf("%w: auction share of %s rounds to zero", ErrInvalidSplit, totalSupply.Dec())
	}

	return Allocation{
		AuctionSupply: auction,
		ReserveSupply: new(uint256.Int).Sub(totalSupply, auction),
	}, nil
}
