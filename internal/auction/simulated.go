package auction

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityLauncher/internal/ledger"
	"liquidityLauncher/internal/pricing"
)

// Ledger is the host state a simulated auction keeps its books in. Storage
// writes go through the ledger so they revert with the calling transaction.
type Ledger interface {
	Exec(ctx context.Context, fn func(ctx context.Context) error) error
	BlockNumber() uint64
	BalanceOf(token, holder common.Address) *uint256.Int
	Transfer(token, from, to common.Address, amount *uint256.Int) error
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)
}

// Validator is notified once the auction is settled. The funds recipient of a
// launch auction is its strategy.
type Validator interface {
	Validate(ctx context.Context, caller common.Address) error
}

// Config are the immutable settings of a simulated auction.
type Config struct {
	Token          common.Address
	Currency       common.Address
	Supply         *uint256.Int
	FundsRecipient common.Address
	StartBlock     uint64
	EndBlock       uint64
	// FloorPrice is the minimum clearing price, Q96 currency per token.
	FloorPrice *uint256.Int
}

// Bid is a committed bid.
type Bid struct {
	ID       uint64
	Bidder   common.Address
	Amount   *uint256.Int
	MaxPrice *uint256.Int
	Filled   bool
	Claimed  bool
}

// Simulated is a uniform clearing-price auction. Bids escrow currency up to a
// max price; settlement fills the highest bids at the single price that sells
// at most the supply and refunds the rest.
type Simulated struct {
	address   common.Address
	cfg       Config
	ledger    Ledger
	validator Validator
	logger    *zap.Logger

	mu sync.Mutex
}

func newSimulated(address common.Address, cfg Config, l Ledger, validator Validator, logger *zap.Logger) *Simulated {
	return &Simulated{
		address:   address,
		cfg:       cfg,
		ledger:    l,
		validator: validator,
		logger:    logger.With(zap.String("auction", address.Hex())),
	}
}

func (a *Simulated) Address() common.Address { return a.address }
func (a *Simulated) Config() Config          { return a.cfg }

func (a *Simulated) EndBlock(context.Context) (uint64, error) {
	return a.cfg.EndBlock, nil
}

// ClearingPrice is the settled Q96 price.
func (a *Simulated) ClearingPrice(context.Context) (*uint256.Int, error) {
	if !a.settled() {
		return nil, ErrNotSettled
	}
	return a.word("clearingPrice"), nil
}

// CurrencyRaised is the currency of all filled bids.
func (a *Simulated) CurrencyRaised(context.Context) (*uint256.Int, error) {
	if !a.settled() {
		return nil, ErrNotSettled
	}
	return a.word("raised"), nil
}

// Bid escrows amount of currency from bidder at a max price.
func (a *Simulated) Bid(ctx context.Context, bidder common.Address, amount, maxPrice *uint256.Int) (id uint64, err error) {
	err = a.ledger.Exec(ctx, func(context.Context) error {
		id, err = a.bidLocked(bidder, amount, maxPrice)
		return err
	})
	return id, err
}

func (a *Simulated) bidLocked(bidder common.Address, amount, maxPrice *uint256.Int) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	block := a.ledger.BlockNumber()
	if block < a.cfg.StartBlock {
		return 0, fmt.Errorf("%w: starts at %d", ErrNotStarted, a.cfg.StartBlock)
	}
	if block >= a.cfg.EndBlock {
		return 0, fmt.Errorf("%w: ended at %d", ErrEnded, a.cfg.EndBlock)
	}
	if amount == nil || amount.IsZero() || maxPrice == nil || maxPrice.Lt(a.cfg.FloorPrice) {
		return 0, fmt.Errorf("%w: amount and max price must clear the floor", ErrInvalidBid)
	}
	if err := a.ledger.Transfer(a.cfg.Currency, bidder, a.address, amount); err != nil {
		return 0, fmt.Errorf("escrow bid: %w", err)
	}

	id := a.count()
	a.setState(bidSlot(id, "bidder"), common.BytesToHash(bidder.Bytes()))
	a.setState(bidSlot(id, "amount"), ledger.WordFromUint256(amount))
	a.setState(bidSlot(id, "maxPrice"), ledger.WordFromUint256(maxPrice))
	a.setState(ledger.Slot("auction.bids"), ledger.WordFromUint64(id+1))

	a.logger.Debug("bid placed",
		zap.Uint64("bid_id", id),
		zap.String("bidder", bidder.Hex()),
		zap.String("amount", amount.Dec()),
		zap.String("max_price", maxPrice.Dec()),
	)
	return id, nil
}

// Bids returns every bid in submission order.
func (a *Simulated) Bids() []Bid {
	n := a.count()
	out := make([]Bid, 0, n)
	for id := uint64(0); id < n; id++ {
		out = append(out, a.bid(id))
	}
	return out
}

// Settle fixes the clearing price once the auction has ended.
func (a *Simulated) Settle(ctx context.Context) error {
	return a.ledger.Exec(ctx, func(context.Context) error {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.settleLocked()
	})
}

// Finalize settles the auction if needed and hands it to its validator.
// The validator runs inside the same ledger call.
func (a *Simulated) Finalize(ctx context.Context) error {
	return a.ledger.Exec(ctx, func(ctx context.Context) error {
		a.mu.Lock()
		if !a.settled() {
			if err := a.settleLocked(); err != nil {
				a.mu.Unlock()
				return err
			}
		}
		a.mu.Unlock()

		if a.validator == nil {
			return nil
		}
		return a.validator.Validate(ctx, a.address)
	})
}

// SweepCurrency sends the raised currency to the funds recipient.
func (a *Simulated) SweepCurrency(ctx context.Context, caller common.Address) error {
	return a.ledger.Exec(ctx, func(context.Context) error {
		return a.sweepLocked(caller)
	})
}

func (a *Simulated) sweepLocked(caller common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if caller != a.cfg.FundsRecipient {
		return fmt.Errorf("%w: %s", ErrNotFundsRecipient, caller.Hex())
	}
	if !a.settled() {
		return ErrNotSettled
	}
	if ledger.BoolFromWord(a.getState(ledger.Slot("auction.swept"))) {
		return ErrCurrencySwept
	}
	a.setState(ledger.Slot("auction.swept"), ledger.WordFromBool(true))

	raised := a.word("raised")
	if raised.IsZero() {
		return nil
	}
	if err := a.ledger.Transfer(a.cfg.Currency, a.address, a.cfg.FundsRecipient, raised); err != nil {
		return fmt.Errorf("transfer raised currency: %w", err)
	}
	a.logger.Info("currency swept", zap.String("recipient", caller.Hex()), zap.String("amount", raised.Dec()))
	return nil
}

// Claim transfers the tokens bought by bidder's filled bids.
func (a *Simulated) Claim(ctx context.Context, bidder common.Address) (claimed *uint256.Int, err error) {
	err = a.ledger.Exec(ctx, func(context.Context) error {
		claimed, err = a.claimLocked(bidder)
		return err
	})
	return claimed, err
}

func (a *Simulated) claimLocked(bidder common.Address) (*uint256.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.settled() {
		return nil, ErrNotSettled
	}
	price := a.word("clearingPrice")
	total := new(uint256.Int)
	var claimed []uint64
	for _, b := range a.Bids() {
		if b.Bidder != bidder || !b.Filled || b.Claimed {
			continue
		}
		tokens, overflow := new(uint256.Int).MulDivOverflow(b.Amount, pricing.Q96, price)
		if overflow {
			return nil, fmt.Errorf("bid %d token amount overflows", b.ID)
		}
		total.Add(total, tokens)
		claimed = append(claimed, b.ID)
	}
	if total.IsZero() {
		return nil, fmt.Errorf("%w: %s", ErrNothingToClaim, bidder.Hex())
	}
	if err := a.ledger.Transfer(a.cfg.Token, a.address, bidder, total); err != nil {
		return nil, fmt.Errorf("transfer claimed tokens: %w", err)
	}
	for _, id := range claimed {
		a.setState(bidSlot(id, "claimed"), ledger.WordFromBool(true))
	}
	return total, nil
}

func (a *Simulated) settleLocked() error {
	if block := a.ledger.BlockNumber(); block < a.cfg.EndBlock {
		return fmt.Errorf("%w: ends at %d, current block %d", ErrNotEnded, a.cfg.EndBlock, block)
	}
	if a.settled() {
		return ErrAlreadySettled
	}

	ranked := a.Bids()
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MaxPrice.Gt(ranked[j].MaxPrice)
	})

	price := a.cfg.FloorPrice.Clone()
	raised := new(uint256.Int)
	filled := 0
	for _, b := range ranked {
		cumulative := new(uint256.Int).Add(raised, b.Amount)
		candidate, overflow := new(uint256.Int).MulDivOverflow(cumulative, pricing.Q96, a.cfg.Supply)
		if overflow {
			break
		}
		// round up so the filled bids never buy more than the supply
		if !new(uint256.Int).MulMod(cumulative, pricing.Q96, a.cfg.Supply).IsZero() {
			candidate.AddUint64(candidate, 1)
		}
		if candidate.Lt(a.cfg.FloorPrice) {
			candidate = a.cfg.FloorPrice.Clone()
		}
		if candidate.Gt(b.MaxPrice) {
			break
		}
		price, raised = candidate, cumulative
		filled++
	}

	for i, b := range ranked {
		if i < filled {
			a.setState(bidSlot(b.ID, "filled"), ledger.WordFromBool(true))
			continue
		}
		if err := a.ledger.Transfer(a.cfg.Currency, a.address, b.Bidder, b.Amount); err != nil {
			return fmt.Errorf("refund bid %d: %w", b.ID, err)
		}
	}

	a.setState(ledger.Slot("auction.clearingPrice"), ledger.WordFromUint256(price))
	a.setState(ledger.Slot("auction.raised"), ledger.WordFromUint256(raised))
	a.setState(ledger.Slot("auction.settled"), ledger.WordFromBool(true))

	a.logger.Info("auction settled",
		zap.String("clearing_price_q96", price.Dec()),
		zap.String("currency_raised", raised.Dec()),
		zap.Int("bids_filled", filled),
		zap.Int("bids_refunded", len(ranked)-filled),
	)
	return nil
}

func (a *Simulated) settled() bool {
	return ledger.BoolFromWord(a.getState(ledger.Slot("auction.settled")))
}

func (a *Simulated) count() uint64 {
	return ledger.Uint64FromWord(a.getState(ledger.Slot("auction.bids")))
}

func (a *Simulated) bid(id uint64) Bid {
	return Bid{
		ID:       id,
		Bidder:   common.BytesToAddress(a.getState(bidSlot(id, "bidder")).Bytes()),
		Amount:   ledger.Uint256FromWord(a.getState(bidSlot(id, "amount"))),
		MaxPrice: ledger.Uint256FromWord(a.getState(bidSlot(id, "maxPrice"))),
		Filled:   ledger.BoolFromWord(a.getState(bidSlot(id, "filled"))),
		Claimed:  ledger.BoolFromWord(a.getState(bidSlot(id, "claimed"))),
	}
}

func (a *Simulated) word(field string) *uint256.Int {
	return ledger.Uint256FromWord(a.getState(ledger.Slot("auction." + field)))
}

func (a *Simulated) getState(key common.Hash) common.Hash {
	return a.ledger.GetState(a.address, key)
}

func (a *Simulated) setState(key, value common.Hash) {
	a.ledger.SetState(a.address, key, value)
}

func bidSlot(id uint64, field string) common.Hash {
	return ledger.Slot("auction.bid."+field, ledger.WordFromUint64(id).Bytes())
}
