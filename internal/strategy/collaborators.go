package strategy

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityLauncher/internal/pool"
)

// Ledger is the host the strategy executes against.
type Ledger interface {
	Exec(ctx context.Context, fn func(ctx context.Context) error) error
	BlockNumber() uint64
	BalanceOf(token, holder common.Address) *uint256.Int
	Transfer(token, from, to common.Address, amount *uint256.Int) error
	Snapshot() int
	RevertToSnapshot(id int) error
	DiscardSnapshot(id int) error
}

// AuctionReader exposes an auction's outcome.
type AuctionReader interface {
	ClearingPrice(ctx context.Context) (*uint256.Int, error)
	CurrencyRaised(ctx context.Context) (*uint256.Int, error)
	EndBlock(ctx context.Context) (uint64, error)
}

// Auction is a deployed auction the strategy funds and collects from.
type Auction interface {
	AuctionReader
	Address() common.Address
	// SweepCurrency sends the raised currency to the funds recipient. caller
	// must be that recipient.
	SweepCurrency(ctx context.Context, caller common.Address) error
}

// AuctionRequest is what a strategy asks its auction deployer for.
type AuctionRequest struct {
	Token          common.Address
	Currency       common.Address
	Amount         *uint256.Int
	FundsRecipient common.Address
	Params         AuctionParams
}

// AuctionDeployer creates auctions.
type AuctionDeployer interface {
	DeployAuction(ctx context.Context, req AuctionRequest) (Auction, error)
}

// PoolManager initializes pools.
type PoolManager interface {
	Initialize(ctx context.Context, key pool.Key, sqrtPriceX96 *uint256.Int, sender common.Address) (int32, error)
	IsInitialized(key pool.Key) (bool, error)
}

// PositionManager mints liquidity positions.
type PositionManager interface {
	Mint(ctx context.Context, params pool.MintParams) (pool.Position, error)
}

// VirtualToken is the restricted-transfer token used by virtual variants.
type VirtualToken interface {
	Address() common.Address
	Underlying() common.Address
	Allow(caller, account common.Address) error
	Redeem(holder common.Address, amount *uint256.Int) error
}

// Deps bundles the collaborators of a strategy.
type Deps struct {
	Ledger    Ledger
	Auctions  AuctionDeployer
	Pools     PoolManager
	Positions PositionManager
	// Virtual is required by variants that use a virtual token.
	Virtual VirtualToken
}
