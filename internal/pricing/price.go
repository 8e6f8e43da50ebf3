package pricing

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Input is the auction outcome handed to Validate.
type Input struct {
	// ClearingPrice is currency per token in Q96.
	ClearingPrice  *uint256.Int
	CurrencyRaised *uint256.Int
	ReserveSupply  *uint256.Int
	// CurrencyIsCurrency0 reports whether the currency sorts before the token.
	CurrencyIsCurrency0 bool
}

// Result holds the pool-native terms derived from an auction outcome.
type Result struct {
	SqrtPriceX96     *uint256.Int
	PriceX192        *uint256.Int
	TokenAmount      *uint256.Int
	CurrencyAmount   *uint256.Int
	LeftoverCurrency *uint256.Int
}

// Validate converts a clearing price and the raised currency into an initial
// sqrt price and the token/currency amounts to seed the pool with.
func Validate(in Input) (Result, error) {
	if in.ClearingPrice == nil || in.CurrencyRaised == nil || in.ReserveSupply == nil {
		return Result{}, fmt.Errorf("%w: missing input", ErrInvalidPrice)
	}
	if in.CurrencyRaised.Gt(MaxUint128) {
		return Result{}, fmt.Errorf("%w: currency raised %s", ErrAmountOverflow, in.CurrencyRaised.Dec())
	}
	if in.ReserveSupply.Gt(MaxUint128) {
		return Result{}, fmt.Errorf("%w: reserve supply %s", ErrAmountOverflow, in.ReserveSupply.Dec())
	}

	priceX192, err := ToPriceX192(in.ClearingPrice, in.CurrencyIsCurrency0)
	if err != nil {
		return Result{}, err
	}
	sqrtPrice, err := SqrtPriceX96(priceX192)
	if err != nil {
		return Result{}, err
	}

	tokenAmount, currencyAmount, leftover, err := CalculateAmounts(priceX192, in.CurrencyRaised, in.ReserveSupply, in.CurrencyIsCurrency0)
	if err != nil {
		return Result{}, err
	}

	return Result{
		SqrtPriceX96:     sqrtPrice,
		PriceX192:        priceX192,
		TokenAmount:      tokenAmount,
		CurrencyAmount:   currencyAmount,
		LeftoverCurrency: leftover,
	}, nil
}

// ToPriceX192 turns a Q96 clearing price into the pool's currency1/currency0
// price in Q192. The clearing price is inverted when the currency is currency0.
func ToPriceX192(clearingPrice *uint256.Int, currencyIsCurrency0 bool) (*uint256.Int, error) {
	if clearingPrice == nil || clearingPrice.IsZero() {
		return nil, fmt.Errorf("%w: zero clearing price", ErrInvalidPrice)
	}

	price := clearingPrice.Clone()
	if currencyIsCurrency0 {
		price = new(uint256.Int).Div(Q192, clearingPrice)
		if price.IsZero() {
			return nil, fmt.Errorf("%w: inverted price is zero for %s", ErrInvalidPrice, clearingPrice.Dec())
		}
	}
	if price.Gt(MaxUint160) {
		return nil, fmt.Errorf("%w: price %s exceeds 160 bits", ErrInvalidPrice, price.Dec())
	}

	return price.Lsh(price, Resolution96), nil
}

// SqrtPriceX96 returns floor(sqrt(priceX192)) and checks it against the pool's
// admissible range.
func SqrtPriceX96(priceX192 *uint256.Int) (*uint256.Int, error) {
	sqrtPrice := new(uint256.Int).Sqrt(priceX192)
	if sqrtPrice.Lt(MinSqrtPrice) || !sqrtPrice.Lt(MaxSqrtPrice) {
		return nil, fmt.Errorf("%w: sqrt price %s out of range", ErrInvalidPrice, sqrtPrice.Dec())
	}
	return sqrtPrice, nil
}

// CalculateAmounts sizes the token side of the initial position from the raised
// currency. When the reserve cannot cover it, the token amount is clipped to the
// reserve and the unmatched currency is returned as leftover.
func CalculateAmounts(priceX192, currencyRaised, reserveSupply *uint256.Int, currencyIsCurrency0 bool) (tokenAmount, currencyAmount, leftover *uint256.Int, err error) {
	if currencyIsCurrency0 {
		tokenAmount, err = mulDiv(priceX192, currencyRaised, Q192)
	} else {
		tokenAmount, err = mulDiv(currencyRaised, Q192, priceX192)
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("token amount: %w", err)
	}
	if tokenAmount.Gt(MaxUint128) {
		return nil, nil, nil, fmt.Errorf("%w: token amount %s", ErrAmountOverflow, tokenAmount.Dec())
	}

	if !tokenAmount.Gt(reserveSupply) {
		return tokenAmount, currencyRaised.Clone(), new(uint256.Int), nil
	}

	if currencyIsCurrency0 {
		currencyAmount, err = mulDiv(reserveSupply, Q192, priceX192)
	} else {
		currencyAmount, err = mulDiv(reserveSupply, priceX192, Q192)
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("corresponding currency amount: %w", err)
	}
	if currencyAmount.Gt(currencyRaised) {
		currencyAmount = currencyRaised.Clone()
	}
	leftover = new(uint256.Int).Sub(currencyRaised, currencyAmount)

	return reserveSupply.Clone(), currencyAmount, leftover, nil
}
