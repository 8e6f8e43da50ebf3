package strategy

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityLauncher/internal/distribution"
	"liquidityLauncher/internal/pool"
	"liquidityLauncher/internal/pricing"
)

// Sentinel recipients the position manager interprets as "the caller" and
// "the position manager itself".
var (
	MsgSenderSentinel   = common.BytesToAddress([]byte{0x01})
	AddressThisSentinel = common.BytesToAddress([]byte{0x02})
)

// AuctionParams configures the auction a strategy deploys.
type AuctionParams struct {
	StartBlock uint64
	EndBlock   uint64
	Salt       common.Hash
	Extra      []byte
}

// Params are the immutable settings of a launch strategy.
type Params struct {
	// Address is the strategy's own deterministic address.
	Address  common.Address
	Token    common.Address
	Currency common.Address

	TotalSupply         *uint256.Int
	TokenSplitToAuction uint32

	MigrationBlock uint64
	SweepBlock     uint64

	PoolLPFee       uint32
	PoolTickSpacing int32

	PositionRecipient common.Address
	// Operator receives swept balances.
	Operator common.Address

	CreateOneSidedTokenPosition    bool
	CreateOneSidedCurrencyPosition bool

	Auction AuctionParams

	Variant    Variant
	Governance common.Address
}

// validate checks the settings that do not depend on collaborators and
// returns the supply split.
func (p Params) validate() (distribution.Allocation, Capabilities, error) {
	caps, err := p.Variant.Capabilities()
	if err != nil {
		return distribution.Allocation{}, Capabilities{}, err
	}
	if p.Address == (common.Address{}) {
		return distribution.Allocation{}, Capabilities{}, fmt.Errorf("%w: zero strategy address", ErrMissingCollaborator)
	}
	if p.Token == (common.Address{}) || p.Token == p.Currency {
		return distribution.Allocation{}, Capabilities{}, fmt.Errorf("%w: token %s currency %s", ErrInvalidToken, p.Token.Hex(), p.Currency.Hex())
	}

	alloc, err := distribution.Split(p.TotalSupply, p.TokenSplitToAuction)
	if err != nil {
		return distribution.Allocation{}, Capabilities{}, err
	}

	if p.PoolLPFee > pool.MaxLPFee {
		return distribution.Allocation{}, Capabilities{}, fmt.Errorf("%w: %d", ErrInvalidPoolFee, p.PoolLPFee)
	}
	if err := pricing.CheckTickSpacing(p.PoolTickSpacing); err != nil {
		return distribution.Allocation{}, Capabilities{}, fmt.Errorf("%w: %d", ErrInvalidTickSpacing, p.PoolTickSpacing)
	}
	switch p.PositionRecipient {
	case common.Address{}, MsgSenderSentinel, AddressThisSentinel:
		return distribution.Allocation{}, Capabilities{}, fmt.Errorf("%w: %s", ErrInvalidPositionRecipient, p.PositionRecipient.Hex())
	}
	if p.Operator == (common.Address{}) {
		return distribution.Allocation{}, Capabilities{}, ErrInvalidOperator
	}
	if p.SweepBlock <= p.MigrationBlock {
		return distribution.Allocation{}, Capabilities{}, fmt.Errorf("%w: sweep %d migration %d", ErrInvalidSweepBlock, p.SweepBlock, p.MigrationBlock)
	}
	if p.Auction.EndBlock <= p.Auction.StartBlock || p.Auction.EndBlock > p.MigrationBlock {
		return distribution.Allocation{}, Capabilities{}, fmt.Errorf("%w: auction [%d, %d] migration %d", ErrInvalidEndBlock, p.Auction.StartBlock, p.Auction.EndBlock, p.MigrationBlock)
	}
	if caps.RequiresGovernanceApproval && p.Governance == (common.Address{}) {
		return distribution.Allocation{}, Capabilities{}, ErrInvalidGovernance
	}

	return alloc, caps, nil
}

func currencyIsCurrency0(currency, poolToken common.Address) bool {
	return bytes.Compare(currency.Bytes(), poolToken.Bytes()) < 0
}
