package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityLauncher/internal/ledger"
)

// VirtualLedger is the host surface a virtual token needs.
type VirtualLedger interface {
	Mint(token, to common.Address, amount *uint256.Int) error
	Burn(token, from common.Address, amount *uint256.Int) error
	Transfer(token, from, to common.Address, amount *uint256.Int) error
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)
	SetPolicy(token common.Address, policy ledger.TransferPolicy)
}

// Virtual is a restricted-transfer stand-in for an underlying token. It is
// backed 1:1 by underlying held at the virtual token's own address and may
// only move between the foundation, the launch strategy and the auction the
// strategy registers.
type Virtual struct {
	address    common.Address
	underlying common.Address
	foundation common.Address
	ledger     VirtualLedger
}

// NewVirtual creates the token and installs its transfer policy on the ledger.
func NewVirtual(l VirtualLedger, address, underlying, foundation common.Address) (*Virtual, error) {
	if address == (common.Address{}) || underlying == (common.Address{}) || address == underlying {
		return nil, fmt.Errorf("%w: virtual %s underlying %s", ErrInvalidMetadata, address.Hex(), underlying.Hex())
	}
	if foundation == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero foundation", ErrInvalidRecipient)
	}
	v := &Virtual{
		address:    address,
		underlying: underlying,
		foundation: foundation,
		ledger:     l,
	}
	l.SetPolicy(address, v)
	return v, nil
}

func (v *Virtual) Address() common.Address    { return v.address }
func (v *Virtual) Underlying() common.Address { return v.underlying }
func (v *Virtual) Foundation() common.Address { return v.foundation }

// Strategy returns the launch strategy bound to the token, if any.
func (v *Virtual) Strategy() common.Address {
	return common.BytesToAddress(v.ledger.GetState(v.address, strategySlot()).Bytes())
}

// SetStrategy binds the launch strategy. Only the foundation may call it, once.
func (v *Virtual) SetStrategy(caller, strategy common.Address) error {
	if caller != v.foundation {
		return fmt.Errorf("%w: %s", ErrNotFoundation, caller.Hex())
	}
	if v.Strategy() != (common.Address{}) {
		return fmt.Errorf("%w: %s", ErrStrategyAlreadySet, v.Strategy().Hex())
	}
	v.ledger.SetState(v.address, strategySlot(), common.BytesToHash(strategy.Bytes()))
	return nil
}

// Allow grants transfer rights to the strategy's auction. Only the bound
// strategy may call it, and only one auction can be granted.
func (v *Virtual) Allow(caller, account common.Address) error {
	strategy := v.Strategy()
	if strategy == (common.Address{}) || caller != strategy {
		return fmt.Errorf("%w: %s", ErrNotAuthorized, caller.Hex())
	}
	if account == (common.Address{}) {
		return fmt.Errorf("%w: zero auction", ErrInvalidRecipient)
	}
	if current := v.Auction(); current != (common.Address{}) && current != account {
		return fmt.Errorf("%w: %s", ErrAuctionAlreadySet, current.Hex())
	}
	v.ledger.SetState(v.address, auctionSlot(), common.BytesToHash(account.Bytes()))
	return nil
}

// Auction returns the auction granted transfer rights, if any.
func (v *Virtual) Auction() common.Address {
	return common.BytesToAddress(v.ledger.GetState(v.address, auctionSlot()).Bytes())
}

// Allowed reports whether account may send or receive the token: the
// foundation, the bound strategy and its auction.
func (v *Virtual) Allowed(account common.Address) bool {
	if account == (common.Address{}) {
		return false
	}
	return account == v.foundation || account == v.Strategy() || account == v.Auction()
}

// CheckTransfer implements ledger.TransferPolicy.
func (v *Virtual) CheckTransfer(from, to common.Address) error {
	if from != (common.Address{}) && !v.Allowed(from) {
		return fmt.Errorf("%w: sender %s", ErrTransferRestricted, from.Hex())
	}
	if to != (common.Address{}) && !v.Allowed(to) {
		return fmt.Errorf("%w: recipient %s", ErrTransferRestricted, to.Hex())
	}
	return nil
}

// Wrap locks underlying from `from` and mints the same amount of virtual
// token to `to`.
func (v *Virtual) Wrap(from, to common.Address, amount *uint256.Int) error {
	if err := v.ledger.Transfer(v.underlying, from, v.address, amount); err != nil {
		return fmt.Errorf("lock underlying: %w", err)
	}
	if err := v.ledger.Mint(v.address, to, amount); err != nil {
		return fmt.Errorf("mint virtual: %w", err)
	}
	return nil
}

// Redeem burns holder's virtual tokens and releases the same amount of
// underlying to holder.
func (v *Virtual) Redeem(holder common.Address, amount *uint256.Int) error {
	if err := v.ledger.Burn(v.address, holder, amount); err != nil {
		return fmt.Errorf("burn virtual: %w", err)
	}
	if err := v.ledger.Transfer(v.underlying, v.address, holder, amount); err != nil {
		return fmt.Errorf("release underlying: %w", err)
	}
	return nil
}

func strategySlot() common.Hash {
	return ledger.Slot("virtual.strategy")
}

func auctionSlot() common.Hash {
	return ledger.Slot("virtual.auction")
}
