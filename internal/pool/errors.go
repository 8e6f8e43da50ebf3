package pool

import "errors"

var (
	ErrCurrenciesOutOfOrder   = errors.New("currencies out of order")
	ErrInvalidFee             = errors.New("invalid lp fee")
	ErrInvalidTickSpacing     = errors.New("invalid tick spacing")
	ErrInvalidSqrtPrice       = errors.New("sqrt price out of range")
	ErrPoolAlreadyInitialized = errors.New("pool already initialized")
	ErrPoolNotInitialized     = errors.New("pool not initialized")
	ErrInvalidTickRange       = errors.New("invalid tick range")
	ErrZeroLiquidity          = errors.New("zero liquidity")
	ErrLiquidityTooHigh       = errors.New("liquidity exceeds per-tick maximum")
	ErrZeroAmounts            = errors.New("position amounts are zero")
	ErrSlippage               = errors.New("maximum amount exceeded")
	ErrInvalidRecipient       = errors.New("invalid position recipient")
	ErrUnknownPosition        = errors.New("unknown position")
)
