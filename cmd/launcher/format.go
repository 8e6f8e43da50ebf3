package main

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"liquidityLauncher/internal/distribution"
	"liquidityLauncher/internal/pricing"
)

// parseUnits converts a whole-unit decimal string into base units.
func parseUnits(value string, decimals uint8) (*uint256.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", value, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", value)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", value, decimals)
	}
	out, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("amount %q overflows uint256", value)
	}
	return out, nil
}

// formatUnits renders base units as a whole-unit decimal string.
func formatUnits(value *uint256.Int, decimals uint8) string {
	if value == nil {
		return ""
	}
	return decimal.NewFromBigInt(value.ToBig(), -int32(decimals)).String()
}

// parseSplit converts a fraction in (0, 1) into the allocator's ratio units.
func parseSplit(value string) (uint32, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse split %q: %w", value, err)
	}
	ratio := d.Mul(decimal.NewFromInt(int64(distribution.MaxSplit))).Truncate(0)
	if !ratio.IsPositive() || ratio.GreaterThanOrEqual(decimal.NewFromInt(int64(distribution.MaxSplit))) {
		return 0, fmt.Errorf("split %q must be in (0, 1)", value)
	}
	return uint32(ratio.IntPart()), nil
}

// priceToQ96 converts a price in whole currency units per whole token into a
// Q96 ratio of base units.
func priceToQ96(value string, tokenDecimals, currencyDecimals uint8) (*uint256.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", value, err)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("price %q must be positive", value)
	}
	raw := d.Shift(int32(currencyDecimals) - int32(tokenDecimals)).
		Mul(decimal.NewFromBigInt(pricing.Q96.ToBig(), 0)).
		Floor()
	out, overflow := uint256.FromBig(raw.BigInt())
	if overflow || out.IsZero() {
		return nil, fmt.Errorf("price %q is out of range", value)
	}
	return out, nil
}

// formatQ96Price renders a Q96 base-unit ratio as whole currency per token.
func formatQ96Price(priceX96 *uint256.Int, tokenDecimals, currencyDecimals uint8) string {
	if priceX96 == nil {
		return ""
	}
	q96 := decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 96), 0)
	return decimal.NewFromBigInt(priceX96.ToBig(), 0).
		DivRound(q96, 30).
		Shift(int32(tokenDecimals) - int32(currencyDecimals)).
		Round(18).
		String()
}

// bid is a parsed amount@maxPrice pair.
type bid struct {
	amount   *uint256.Int
	maxPrice *uint256.Int
}

func parseBid(value string, tokenDecimals, currencyDecimals uint8) (bid, error) {
	amount, price, ok := strings.Cut(value, "@")
	if !ok {
		return bid{}, fmt.Errorf("bid %q must be amount@maxPrice", value)
	}
	a, err := parseUnits(amount, currencyDecimals)
	if err != nil {
		return bid{}, err
	}
	p, err := priceToQ96(price, tokenDecimals, currencyDecimals)
	if err != nil {
		return bid{}, err
	}
	return bid{amount: a, maxPrice: p}, nil
}
