package auction

import "errors"

var (
	ErrNotStarted        = errors.New("auction not started")
	ErrEnded             = errors.New("auction ended")
	ErrNotEnded          = errors.New("auction not ended")
	ErrInvalidBid        = errors.New("invalid bid")
	ErrAlreadySettled    = errors.New("auction already settled")
	ErrNotSettled        = errors.New("auction not settled")
	ErrNotFundsRecipient = errors.New("caller is not the funds recipient")
	ErrCurrencySwept     = errors.New("currency already swept")
	ErrNothingToClaim    = errors.New("nothing to claim")
	ErrInvalidConfig     = errors.New("invalid auction config")
	ErrAuctionExists     = errors.New("auction already deployed")
	ErrReadOnly          = errors.New("remote auction is read-only")
)
