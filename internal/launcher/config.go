package launcher

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityLauncher/internal/strategy"
)

// StrategyConfig is the ABI-encoded configData an LBP factory accepts. Token,
// supply and the strategy address come from the distribution call itself.
type StrategyConfig struct {
	Currency            common.Address
	TokenSplitToAuction uint32
	MigrationBlock      uint64
	SweepBlock          uint64
	PoolLPFee           uint32
	PoolTickSpacing     int32
	PositionRecipient   common.Address
	Operator            common.Address

	CreateOneSidedTokenPosition    bool
	CreateOneSidedCurrencyPosition bool

	AuctionStartBlock uint64
	AuctionEndBlock   uint64
	AuctionSalt       common.Hash
	AuctionExtra      []byte

	Variant    strategy.Variant
	Governance common.Address
}

var (
	configArgs     abi.Arguments
	configArgsOnce sync.Once
	configArgsErr  error
)

func strategyConfigArguments() (abi.Arguments, error) {
	configArgsOnce.Do(func() {
		for _, name := range []string{
			"address", // currency
			"uint24",  // tokenSplitToAuction
			"uint64",  // migrationBlock
			"uint64",  // sweepBlock
			"uint24",  // poolLPFee
			"int24",   // poolTickSpacing
			"address", // positionRecipient
			"address", // operator
			"bool",
			"bool",
			"uint64", // auction start
			"uint64", // auction end
			"bytes32",
			"bytes",
			"uint8", // variant
			"address",
		} {
			ty, err := abi.NewType(name, "", nil)
			if err != nil {
				configArgsErr = fmt.Errorf("strategy config abi: %w", err)
				return
			}
			configArgs = append(configArgs, abi.Argument{Type: ty})
		}
	})
	return configArgs, configArgsErr
}

// EncodeStrategyConfig packs cfg into configData.
func EncodeStrategyConfig(cfg StrategyConfig) ([]byte, error) {
	args, err := strategyConfigArguments()
	if err != nil {
		return nil, err
	}
	if cfg.Variant < 0 || cfg.Variant > 255 {
		return nil, fmt.Errorf("%w: variant %d", ErrInvalidConfig, int(cfg.Variant))
	}
	data, err := args.Pack(
		cfg.Currency,
		new(big.Int).SetUint64(uint64(cfg.TokenSplitToAuction)),
		cfg.MigrationBlock,
		cfg.SweepBlock,
		new(big.Int).SetUint64(uint64(cfg.PoolLPFee)),
		big.NewInt(int64(cfg.PoolTickSpacing)),
		cfg.PositionRecipient,
		cfg.Operator,
		cfg.CreateOneSidedTokenPosition,
		cfg.CreateOneSidedCurrencyPosition,
		cfg.AuctionStartBlock,
		cfg.AuctionEndBlock,
		[32]byte(cfg.AuctionSalt),
		cfg.AuctionExtra,
		uint8(cfg.Variant),
		cfg.Governance,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return data, nil
}

// DecodeStrategyConfig unpacks configData.
func DecodeStrategyConfig(data []byte) (StrategyConfig, error) {
	args, err := strategyConfigArguments()
	if err != nil {
		return StrategyConfig{}, err
	}
	values, err := args.Unpack(data)
	if err != nil {
		return StrategyConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if len(values) != len(args) {
		return StrategyConfig{}, fmt.Errorf("%w: %d values", ErrInvalidConfig, len(values))
	}

	var cfg StrategyConfig
	var ok bool
	fail := func(field string) (StrategyConfig, error) {
		return StrategyConfig{}, fmt.Errorf("%w: field %s", ErrInvalidConfig, field)
	}

	if cfg.Currency, ok = values[0].(common.Address); !ok {
		return fail("currency")
	}
	split, ok := values[1].(*big.Int)
	if !ok {
		return fail("tokenSplitToAuction")
	}
	cfg.TokenSplitToAuction = uint32(split.Uint64())
	if cfg.MigrationBlock, ok = values[2].(uint64); !ok {
		return fail("migrationBlock")
	}
	if cfg.SweepBlock, ok = values[3].(uint64); !ok {
		return fail("sweepBlock")
	}
	fee, ok := values[4].(*big.Int)
	if !ok {
		return fail("poolLPFee")
	}
	cfg.PoolLPFee = uint32(fee.Uint64())
	spacing, ok := values[5].(*big.Int)
	if !ok {
		return fail("poolTickSpacing")
	}
	cfg.PoolTickSpacing = int32(spacing.Int64())
	if cfg.PositionRecipient, ok = values[6].(common.Address); !ok {
		return fail("positionRecipient")
	}
	if cfg.Operator, ok = values[7].(common.Address); !ok {
		return fail("operator")
	}
	if cfg.CreateOneSidedTokenPosition, ok = values[8].(bool); !ok {
		return fail("createOneSidedTokenPosition")
	}
	if cfg.CreateOneSidedCurrencyPosition, ok = values[9].(bool); !ok {
		return fail("createOneSidedCurrencyPosition")
	}
	if cfg.AuctionStartBlock, ok = values[10].(uint64); !ok {
		return fail("auctionStartBlock")
	}
	if cfg.AuctionEndBlock, ok = values[11].(uint64); !ok {
		return fail("auctionEndBlock")
	}
	salt, ok := values[12].([32]byte)
	if !ok {
		return fail("auctionSalt")
	}
	cfg.AuctionSalt = common.Hash(salt)
	if cfg.AuctionExtra, ok = values[13].([]byte); !ok {
		return fail("auctionExtra")
	}
	variant, ok := values[14].(uint8)
	if !ok {
		return fail("variant")
	}
	cfg.Variant = strategy.Variant(variant)
	if cfg.Governance, ok = values[15].(common.Address); !ok {
		return fail("governance")
	}
	return cfg, nil
}

// Params builds strategy parameters for a distribution of amount of token.
func (c StrategyConfig) Params(strategyAddr, token common.Address, amount *uint256.Int) strategy.Params {
	return strategy.Params{
		Address:                        strategyAddr,
		Token:                          token,
		TotalSupply:                    amount.Clone(),
		Currency:                       c.Currency,
		TokenSplitToAuction:            c.TokenSplitToAuction,
		MigrationBlock:                 c.MigrationBlock,
		SweepBlock:                     c.SweepBlock,
		PoolLPFee:                      c.PoolLPFee,
		PoolTickSpacing:                c.PoolTickSpacing,
		PositionRecipient:              c.PositionRecipient,
		Operator:                       c.Operator,
		CreateOneSidedTokenPosition:    c.CreateOneSidedTokenPosition,
		CreateOneSidedCurrencyPosition: c.CreateOneSidedCurrencyPosition,
		Auction: strategy.AuctionParams{
			StartBlock: c.AuctionStartBlock,
			EndBlock:   c.AuctionEndBlock,
			Salt:       c.AuctionSalt,
			Extra:      append([]byte(nil), c.AuctionExtra...),
		},
		Variant:    c.Variant,
		Governance: c.Governance,
	}
}
