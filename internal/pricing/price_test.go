package pricing

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1_000_000_000_000_000_000))
}

func TestValidateOneToOne(t *testing.T) {
	res, err := Validate(Input{
		ClearingPrice:  Q96,
		CurrencyRaised: ether(500),
		ReserveSupply:  ether(500),
	})
	require.NoError(t, err)
	require.Equal(t, "79228162514264337593543950336", res.SqrtPriceX96.Dec())
	require.Equal(t, ether(500), res.TokenAmount)
	require.Equal(t, ether(500), res.CurrencyAmount)
	require.True(t, res.LeftoverCurrency.IsZero())
}

func TestValidateInvertsWhenCurrencyIsCurrency0(t *testing.T) {
	twoToOne := new(uint256.Int).Lsh(uint256.NewInt(2), Resolution96)

	inverted, err := Validate(Input{
		ClearingPrice:       twoToOne,
		CurrencyRaised:      ether(100),
		ReserveSupply:       ether(1000),
		CurrencyIsCurrency0: true,
	})
	require.NoError(t, err)
	require.Equal(t, new(uint256.Int).Lsh(uint256.NewInt(1), 191), inverted.PriceX192)
	require.Equal(t, ether(50), inverted.TokenAmount)

	direct, err := Validate(Input{
		ClearingPrice:  twoToOne,
		CurrencyRaised: ether(100),
		ReserveSupply:  ether(1000),
	})
	require.NoError(t, err)
	require.Equal(t, ether(50), direct.TokenAmount)
	require.True(t, direct.SqrtPriceX96.Gt(inverted.SqrtPriceX96))
}

func TestValidateRejectsInvalidPrices(t *testing.T) {
	cases := []struct {
		name       string
		price      *uint256.Int
		currency0  bool
		wantReason error
	}{
		{name: "zero", price: new(uint256.Int), wantReason: ErrInvalidPrice},
		{name: "inverted price is zero", price: new(uint256.Int).AddUint64(Q192, 1), currency0: true, wantReason: ErrInvalidPrice},
		{name: "wider than 160 bits", price: new(uint256.Int).Lsh(uint256.NewInt(1), 160), wantReason: ErrInvalidPrice},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(Input{
				ClearingPrice:       tc.price,
				CurrencyRaised:      ether(1),
				ReserveSupply:       ether(1),
				CurrencyIsCurrency0: tc.currency0,
			})
			require.True(t, errors.Is(err, tc.wantReason), "got %v", err)
		})
	}
}

func TestValidateAmountOverflow(t *testing.T) {
	_, err := Validate(Input{
		ClearingPrice:  uint256.NewInt(1),
		CurrencyRaised: new(uint256.Int).Lsh(uint256.NewInt(1), 100),
		ReserveSupply:  MaxUint128,
	})
	require.ErrorIs(t, err, ErrAmountOverflow)
}

func TestValidateClipsToReserve(t *testing.T) {
	res, err := Validate(Input{
		ClearingPrice:  Q96,
		CurrencyRaised: ether(800),
		ReserveSupply:  ether(500),
	})
	require.NoError(t, err)
	require.Equal(t, ether(500), res.TokenAmount)
	require.Equal(t, ether(500), res.CurrencyAmount)
	require.Equal(t, ether(300), res.LeftoverCurrency)
}

func TestInvertedPriceOfOne(t *testing.T) {
	priceX192, err := ToPriceX192(Q192, true)
	require.NoError(t, err)
	require.Equal(t, Q96, priceX192)

	sqrtPrice, err := SqrtPriceX96(priceX192)
	require.NoError(t, err)
	require.Equal(t, new(uint256.Int).Lsh(uint256.NewInt(1), 48), sqrtPrice)
}

func TestSqrtPriceRoundTrip(t *testing.T) {
	for _, currency0 := range []bool{false, true} {
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 500; i++ {
			price := new(uint256.Int).SetUint64(rng.Uint64() | 1<<40)
			price.Lsh(price, uint(rng.Intn(86)))

			// the pool price the strategy initializes at
			want := price.Clone()
			if currency0 {
				want.Div(Q192, price)
			}

			priceX192, err := ToPriceX192(price, currency0)
			require.NoError(t, err)
			require.Equal(t, new(uint256.Int).Lsh(want, Resolution96), priceX192)

			sqrtPrice, err := SqrtPriceX96(priceX192)
			require.NoError(t, err)

			squared := new(uint256.Int).Mul(sqrtPrice, sqrtPrice)
			require.False(t, squared.Gt(priceX192), "sqrt too large for %s currency0=%v", price.Dec(), currency0)

			next := new(uint256.Int).AddUint64(sqrtPrice, 1)
			next.Mul(next, next)
			require.True(t, next.Gt(priceX192), "sqrt too small for %s currency0=%v", price.Dec(), currency0)

			recovered := new(uint256.Int).Rsh(squared, Resolution96)
			require.False(t, recovered.Gt(want))
		}
	}
}
