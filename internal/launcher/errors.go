package launcher

import "errors"

var (
	ErrUnknownDistributor  = errors.New("unknown distribution strategy")
	ErrDistributorExists   = errors.New("distribution strategy already registered")
	ErrInvalidAmount       = errors.New("invalid distribution amount")
	ErrInvalidConfig       = errors.New("invalid strategy config")
	ErrStrategyExists      = errors.New("strategy already deployed")
	ErrTokensNotReceived   = errors.New("distribution did not receive the full amount")
	ErrUnknownVirtualToken = errors.New("virtual token not registered")
)
