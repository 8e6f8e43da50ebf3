package auction

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityLauncher/internal/deploy"
	"liquidityLauncher/internal/ledger"
	"liquidityLauncher/internal/strategy"
)

// auctionCreationCode tags the init code of simulated auctions.
var auctionCreationCode = []byte("liquidityLauncher/ClearingAuction")

// Factory deploys simulated auctions at CREATE2 addresses. It implements the
// strategy's auction deployer.
type Factory struct {
	address common.Address
	ledger  Ledger
	logger  *zap.Logger

	mu         sync.RWMutex
	validators map[common.Address]Validator
	auctions   map[common.Address]*Simulated
}

func NewFactory(address common.Address, l Ledger, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		address:    address,
		ledger:     l,
		logger:     logger,
		validators: make(map[common.Address]Validator),
		auctions:   make(map[common.Address]*Simulated),
	}
}

func (f *Factory) Address() common.Address {
	return f.address
}

// RegisterValidator binds the validator auctions notify when their funds
// recipient is recipient.
func (f *Factory) RegisterValidator(recipient common.Address, v Validator) {
	f.mu.Lock()
	f.validators[recipient] = v
	f.mu.Unlock()
}

// PredictAddress returns the address DeployAuction will use for req.
func (f *Factory) PredictAddress(req strategy.AuctionRequest) (common.Address, error) {
	floor, err := DecodeConfig(req.Params.Extra)
	if err != nil {
		return common.Address{}, err
	}
	args, err := auctionConstructorArguments()
	if err != nil {
		return common.Address{}, err
	}
	codeHash, err := deploy.InitCodeHash(auctionCreationCode, args,
		req.Token, req.Currency, req.Amount.ToBig(), req.FundsRecipient,
		req.Params.StartBlock, req.Params.EndBlock, floor.ToBig(),
	)
	if err != nil {
		return common.Address{}, err
	}
	salt, err := deploy.SenderSalt(req.FundsRecipient, req.Params.Salt)
	if err != nil {
		return common.Address{}, err
	}
	return deploy.Create2Address(f.address, salt, codeHash), nil
}

// DeployAuction creates the auction described by req. The auction is funded
// by the caller afterwards.
func (f *Factory) DeployAuction(_ context.Context, req strategy.AuctionRequest) (strategy.Auction, error) {
	if req.Amount == nil || req.Amount.IsZero() {
		return nil, fmt.Errorf("%w: zero supply", ErrInvalidConfig)
	}
	if req.Params.EndBlock <= req.Params.StartBlock {
		return nil, fmt.Errorf("%w: blocks [%d, %d]", ErrInvalidConfig, req.Params.StartBlock, req.Params.EndBlock)
	}
	if req.FundsRecipient == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero funds recipient", ErrInvalidConfig)
	}
	floor, err := DecodeConfig(req.Params.Extra)
	if err != nil {
		return nil, err
	}
	addr, err := f.PredictAddress(req)
	if err != nil {
		return nil, fmt.Errorf("derive auction address: %w", err)
	}

	deployed := ledger.Slot("auctionFactory.deployed", addr.Bytes())
	if ledger.BoolFromWord(f.ledger.GetState(f.address, deployed)) {
		return nil, fmt.Errorf("%w: %s", ErrAuctionExists, addr.Hex())
	}
	f.ledger.SetState(f.address, deployed, ledger.WordFromBool(true))

	f.mu.Lock()
	defer f.mu.Unlock()
	a := newSimulated(addr, Config{
		Token:          req.Token,
		Currency:       req.Currency,
		Supply:         req.Amount.Clone(),
		FundsRecipient: req.FundsRecipient,
		StartBlock:     req.Params.StartBlock,
		EndBlock:       req.Params.EndBlock,
		FloorPrice:     floor,
	}, f.ledger, f.validators[req.FundsRecipient], f.logger)
	f.auctions[addr] = a

	f.logger.Info("auction deployed",
		zap.String("auction", addr.Hex()),
		zap.String("token", req.Token.Hex()),
		zap.String("currency", req.Currency.Hex()),
		zap.String("supply", req.Amount.Dec()),
		zap.Uint64("start_block", req.Params.StartBlock),
		zap.Uint64("end_block", req.Params.EndBlock),
		zap.String("floor_price_q96", floor.Dec()),
	)
	return a, nil
}

// Auction returns a deployed auction.
func (f *Factory) Auction(addr common.Address) (*Simulated, bool) {
	f.mu.RLock()
	a, ok := f.auctions[addr]
	f.mu.RUnlock()
	return a, ok
}

// EncodeConfig packs the auction-specific part of a strategy's auction
// parameters: abi.encode(uint256 floorPriceQ96).
func EncodeConfig(floorPrice *uint256.Int) ([]byte, error) {
	args, err := configArguments()
	if err != nil {
		return nil, err
	}
	return args.Pack(floorPrice.ToBig())
}

// DecodeConfig unpacks EncodeConfig output. Empty data selects the lowest
// possible floor.
func DecodeConfig(data []byte) (*uint256.Int, error) {
	if len(data) == 0 {
		return uint256.NewInt(1), nil
	}
	args, err := configArguments()
	if err != nil {
		return nil, err
	}
	values, err := args.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	floor, err := asUint256(values[0])
	if err != nil {
		return nil, fmt.Errorf("%w: floor price: %v", ErrInvalidConfig, err)
	}
	if floor.IsZero() {
		return nil, fmt.Errorf("%w: zero floor price", ErrInvalidConfig)
	}
	return floor, nil
}

var (
	ctorArgs     abi.Arguments
	ctorArgsOnce sync.Once
	ctorArgsErr  error

	cfgArgs     abi.Arguments
	cfgArgsOnce sync.Once
	cfgArgsErr  error
)

func auctionConstructorArguments() (abi.Arguments, error) {
	ctorArgsOnce.Do(func() {
		ctorArgs, ctorArgsErr = newArguments("address", "address", "uint256", "address", "uint64", "uint64", "uint256")
	})
	return ctorArgs, ctorArgsErr
}

func configArguments() (abi.Arguments, error) {
	cfgArgsOnce.Do(func() {
		cfgArgs, cfgArgsErr = newArguments("uint256")
	})
	return cfgArgs, cfgArgsErr
}

func newArguments(types ...string) (abi.Arguments, error) {
	args := make(abi.Arguments, 0, len(types))
	for _, name := range types {
		ty, err := abi.NewType(name, "", nil)
		if err != nil {
			return nil, fmt.Errorf("auction abi: %w", err)
		}
		args = append(args, abi.Argument{Type: ty})
	}
	return args, nil
}
