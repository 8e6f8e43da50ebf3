package launcher

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityLauncher/internal/auction"
	"liquidityLauncher/internal/deploy"
	"liquidityLauncher/internal/ledger"
	"liquidityLauncher/internal/pool"
	"liquidityLauncher/internal/strategy"
	"liquidityLauncher/internal/token"
)

// lbpCreationCode tags the init code of LBP strategies.
var lbpCreationCode = []byte("liquidityLauncher/LBPStrategy")

// StateLedger is the host surface the LBP factory needs: the strategy ledger
// plus storage for its deployment markers.
type StateLedger interface {
	strategy.Ledger
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)
}

// AuctionFactory deploys auctions and routes their settlement to strategies.
type AuctionFactory interface {
	strategy.AuctionDeployer
	RegisterValidator(recipient common.Address, v auction.Validator)
}

// PoolManager initializes pools and dispatches hooks.
type PoolManager interface {
	strategy.PoolManager
	RegisterHook(address common.Address, hook pool.Hook)
}

// LBPFactory deploys LBP strategies at CREATE2 addresses derived from the
// caller, the token, the amount and the config.
type LBPFactory struct {
	address   common.Address
	ledger    StateLedger
	auctions  AuctionFactory
	pools     PoolManager
	positions strategy.PositionManager
	logger    *zap.Logger

	mu         sync.RWMutex
	virtuals   map[common.Address]*token.Virtual
	strategies map[common.Address]*strategy.Strategy
}

// LBPDeps are the shared collaborators of every strategy the factory deploys.
type LBPDeps struct {
	Ledger    StateLedger
	Auctions  AuctionFactory
	Pools     PoolManager
	Positions strategy.PositionManager
}

func NewLBPFactory(address common.Address, deps LBPDeps, logger *zap.Logger) *LBPFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LBPFactory{
		address:    address,
		ledger:     deps.Ledger,
		auctions:   deps.Auctions,
		pools:      deps.Pools,
		positions:  deps.Positions,
		logger:     logger,
		virtuals:   make(map[common.Address]*token.Virtual),
		strategies: make(map[common.Address]*strategy.Strategy),
	}
}

func (f *LBPFactory) Address() common.Address {
	return f.address
}

// RegisterVirtual makes a virtual token available to virtual variants.
func (f *LBPFactory) RegisterVirtual(v *token.Virtual) {
	f.mu.Lock()
	f.virtuals[v.Address()] = v
	f.mu.Unlock()
}

// PredictAddress returns the address InitializeDistribution deploys to.
func (f *LBPFactory) PredictAddress(caller, tokenAddr common.Address, amount *uint256.Int, configData []byte, salt common.Hash) (common.Address, error) {
	if amount == nil {
		return common.Address{}, ErrInvalidAmount
	}
	args, err := lbpConstructorArguments()
	if err != nil {
		return common.Address{}, err
	}
	codeHash, err := deploy.InitCodeHash(lbpCreationCode, args, tokenAddr, amount.ToBig(), configData)
	if err != nil {
		return common.Address{}, err
	}
	deploySalt, err := deploy.SenderSalt(caller, salt)
	if err != nil {
		return common.Address{}, err
	}
	return deploy.Create2Address(f.address, deploySalt, codeHash), nil
}

// InitializeDistribution deploys a strategy for amount of token. The strategy
// waits in AwaitingTokens until OnTokensReceived.
func (f *LBPFactory) InitializeDistribution(_ context.Context, caller, tokenAddr common.Address, amount *uint256.Int, configData []byte, salt common.Hash) (Distribution, error) {
	if amount == nil || amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	cfg, err := DecodeStrategyConfig(configData)
	if err != nil {
		return nil, err
	}
	addr, err := f.PredictAddress(caller, tokenAddr, amount, configData, salt)
	if err != nil {
		return nil, fmt.Errorf("derive strategy address: %w", err)
	}
	if ledger.BoolFromWord(f.ledger.GetState(f.address, deployedSlot(addr))) {
		return nil, fmt.Errorf("%w: %s", ErrStrategyExists, addr.Hex())
	}

	params := cfg.Params(addr, tokenAddr, amount)
	caps, err := params.Variant.Capabilities()
	if err != nil {
		return nil, err
	}
	deps := strategy.Deps{
		Ledger:    f.ledger,
		Auctions:  f.auctions,
		Pools:     f.pools,
		Positions: f.positions,
	}
	if caps.UsesVirtualToken {
		f.mu.RLock()
		v, ok := f.virtuals[tokenAddr]
		f.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVirtualToken, tokenAddr.Hex())
		}
		deps.Virtual = v
	}

	s, err := strategy.New(params, deps, f.logger)
	if err != nil {
		return nil, err
	}
	if caps.RequiresGovernanceApproval {
		f.pools.RegisterHook(addr, s)
	}
	f.auctions.RegisterValidator(addr, s)
	f.ledger.SetState(f.address, deployedSlot(addr), ledger.WordFromBool(true))

	f.mu.Lock()
	f.strategies[addr] = s
	f.mu.Unlock()

	f.logger.Info("strategy deployed",
		zap.String("strategy", addr.Hex()),
		zap.String("token", tokenAddr.Hex()),
		zap.String("amount", amount.Dec()),
		zap.String("variant", params.Variant.String()),
	)
	return s, nil
}

// Strategy returns a strategy deployed by this factory.
func (f *LBPFactory) Strategy(addr common.Address) (*strategy.Strategy, bool) {
	if !ledger.BoolFromWord(f.ledger.GetState(f.address, deployedSlot(addr))) {
		return nil, false
	}
	f.mu.RLock()
	s, ok := f.strategies[addr]
	f.mu.RUnlock()
	return s, ok
}

// Strategies returns every live strategy deployed by the factory.
func (f *LBPFactory) Strategies() []*strategy.Strategy {
	f.mu.RLock()
	addrs := make([]common.Address, 0, len(f.strategies))
	for addr := range f.strategies {
		addrs = append(addrs, addr)
	}
	f.mu.RUnlock()
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i].Bytes(), addrs[j].Bytes()) < 0
	})

	out := make([]*strategy.Strategy, 0, len(addrs))
	for _, addr := range addrs {
		if s, ok := f.Strategy(addr); ok {
			out = append(out, s)
		}
	}
	return out
}

func deployedSlot(addr common.Address) common.Hash {
	return ledger.Slot("lbpFactory.deployed", addr.Bytes())
}

var (
	lbpCtorArgs     abi.Arguments
	lbpCtorArgsOnce sync.Once
	lbpCtorArgsErr  error
)

func lbpConstructorArguments() (abi.Arguments, error) {
	lbpCtorArgsOnce.Do(func() {
		for _, name := range []string{"address", "uint256", "bytes"} {
			ty, err := abi.NewType(name, "", nil)
			if err != nil {
				lbpCtorArgsErr = fmt.Errorf("lbp constructor abi: %w", err)
				return
			}
			lbpCtorArgs = append(lbpCtorArgs, abi.Argument{Type: ty})
		}
	})
	return lbpCtorArgs, lbpCtorArgsErr
}
