package token

import "errors"

var (
	ErrTokenExists        = errors.New("token already exists")
	ErrInvalidRecipient   = errors.New("invalid recipient")
	ErrInvalidMetadata    = errors.New("invalid token metadata")
	ErrTransferRestricted = errors.New("virtual token transfer restricted")
	ErrNotFoundation      = errors.New("caller is not the foundation")
	ErrNotAuthorized      = errors.New("caller may not grant transfer rights")
	ErrStrategyAlreadySet = errors.New("strategy already set")
	ErrAuctionAlreadySet  = errors.New("auction already allowed")
)
