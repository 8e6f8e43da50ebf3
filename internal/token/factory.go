package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityLauncher/internal/deploy"
)

// erc20CreationCode tags the init code of plain tokens created by the factory.
var erc20CreationCode = []byte("liquidityLauncher/ERC20")

// Minter credits freshly created supply.
type Minter interface {
	Mint(token, to common.Address, amount *uint256.Int) error
}

// Metadata describes a token created by the factory.
type Metadata struct {
	Address       common.Address
	Name          string
	Symbol        string
	Decimals      uint8
	InitialSupply *uint256.Int
	Recipient     common.Address
	ExtraData     []byte
}

// Factory creates plain ERC20-class tokens at CREATE2 addresses and mints the
// initial supply to a recipient.
type Factory struct {
	address common.Address
	minter  Minter
	logger  *zap.Logger

	mu     sync.RWMutex
	tokens map[common.Address]Metadata
}

func NewFactory(address common.Address, minter Minter, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		address: address,
		minter:  minter,
		logger:  logger,
		tokens:  make(map[common.Address]Metadata),
	}
}

func (f *Factory) Address() common.Address {
	return f.address
}

// PredictAddress returns the address CreateToken will deploy to.
func (f *Factory) PredictAddress(name, symbol string, decimals uint8, initialSupply *uint256.Int, recipient common.Address, salt common.Hash) (common.Address, error) {
	args, err := tokenConstructorArguments()
	if err != nil {
		return common.Address{}, err
	}
	codeHash, err := deploy.InitCodeHash(erc20CreationCode, args, name, symbol, decimals, initialSupply.ToBig(), recipient)
	if err != nil {
		return common.Address{}, err
	}
	return deploy.Create2Address(f.address, salt, codeHash), nil
}

// CreateToken deploys a token and mints initialSupply to recipient.
func (f *Factory) CreateToken(_ context.Context, name, symbol string, decimals uint8, initialSupply *uint256.Int, recipient common.Address, extraData []byte, salt common.Hash) (common.Address, error) {
	if name == "" || symbol == "" || initialSupply == nil {
		return common.Address{}, fmt.Errorf("%w: name=%q symbol=%q", ErrInvalidMetadata, name, symbol)
	}
	if recipient == (common.Address{}) {
		return common.Address{}, ErrInvalidRecipient
	}

	addr, err := f.PredictAddress(name, symbol, decimals, initialSupply, recipient, salt)
	if err != nil {
		return common.Address{}, fmt.Errorf("derive token address: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[addr]; ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrTokenExists, addr.Hex())
	}
	if !initialSupply.IsZero() {
		if err := f.minter.Mint(addr, recipient, initialSupply); err != nil {
			return common.Address{}, fmt.Errorf("mint initial supply: %w", err)
		}
	}
	f.tokens[addr] = Metadata{
		Address:       addr,
		Name:          name,
		Symbol:        symbol,
		Decimals:      decimals,
		InitialSupply: initialSupply.Clone(),
		Recipient:     recipient,
		ExtraData:     append([]byte(nil), extraData...),
	}

	f.logger.Info("token created",
		zap.String("token", addr.Hex()),
		zap.String("symbol", symbol),
		zap.Uint8("decimals", decimals),
		zap.String("initial_supply", initialSupply.Dec()),
		zap.String("recipient", recipient.Hex()),
	)

	return addr, nil
}

// Token returns the metadata of a token created by this factory.
func (f *Factory) Token(addr common.Address) (Metadata, bool) {
	f.mu.RLock()
	meta, ok := f.tokens[addr]
	f.mu.RUnlock()
	return meta, ok
}

var (
	tokenCtorArgs     abi.Arguments
	tokenCtorArgsOnce sync.Once
	tokenCtorArgsErr  error
)

func tokenConstructorArguments() (abi.Arguments, error) {
	tokenCtorArgsOnce.Do(func() {
		for _, name := range []string{"string", "string", "uint8", "uint256", "address"} {
			ty, err := abi.NewType(name, "", nil)
			if err != nil {
				tokenCtorArgsErr = fmt.Errorf("token constructor abi: %w", err)
				return
			}
			tokenCtorArgs = append(tokenCtorArgs, abi.Argument{Type: ty})
		}
	})
	return tokenCtorArgs, tokenCtorArgsErr
}
