package pricing

import "errors"

var (
	ErrInvalidPrice       = errors.New("invalid price")
	ErrAmountOverflow     = errors.New("amount overflow")
	ErrInvalidTick        = errors.New("tick out of range")
	ErrInvalidSqrtPrice   = errors.New("sqrt price out of range")
	ErrInvalidTickSpacing = errors.New("invalid tick spacing")
	ErrLiquidityOverflow  = errors.New("liquidity overflow")
	ErrDivisionByZero     = errors.New("division by zero")
)
