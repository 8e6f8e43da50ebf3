package distribution

import (
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestSplitHalf(t *testing.T) {
	total := uint256.MustFromDecimal("1000000000000000000000")
	alloc, err := Split(total, MaxSplit/2)
	require.NoError(t, err)
	require.Equal(t, "500000000000000000000", alloc.AuctionSupply.Dec())
	require.Equal(t, "500000000000000000000", alloc.ReserveSupply.Dec())
}

func TestSplitRoundsTowardReserve(t *testing.T) {
	alloc, err := Split(uint256.NewInt(10), 3_333_333)
	require.NoError(t, err)
	require.Equal(t, uint64(3), alloc.AuctionSupply.Uint64())
	require.Equal(t, uint64(7), alloc.ReserveSupply.Uint64())
}

func TestSplitSumsToTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		total := new(uint256.Int).SetUint64(rng.Uint64() | 1)
		total.Lsh(total, uint(rng.Intn(64)))
		ratio := uint32(rng.Int63n(int64(MaxSplit-1))) + 1

		alloc, err := Split(total, ratio)
		if err != nil {
			require.ErrorIs(t, err, ErrInvalidSplit)
			continue
		}
		sum := new(uint256.Int).Add(alloc.AuctionSupply, alloc.ReserveSupply)
		require.Equal(t, total, sum)
		require.False(t, alloc.AuctionSupply.IsZero())
		require.False(t, alloc.ReserveSupply.IsZero())
	}
}

func TestSplitRejectsBounds(t *testing.T) {
	total := uint256.NewInt(1_000_000)

	_, err := Split(total, 0)
	require.ErrorIs(t, err, ErrInvalidSplit)

	_, err = Split(total, MaxSplit)
	require.ErrorIs(t, err, ErrInvalidSplit)

	_, err = Split(uint256.NewInt(1), 1)
	require.ErrorIs(t, err, ErrInvalidSplit)

	_, err = Split(new(uint256.Int), 1)
	require.ErrorIs(t, err, ErrInvalidTotalSupply)

	tooLarge := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	_, err = Split(tooLarge, 1)
	require.ErrorIs(t, err, ErrInvalidTotalSupply)
}
