package launcher

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityLauncher/internal/deploy"
)

// Ledger is the host surface the launcher moves tokens on.
type Ledger interface {
	Exec(ctx context.Context, fn func(ctx context.Context) error) error
	BalanceOf(token, holder common.Address) *uint256.Int
	Transfer(token, from, to common.Address, amount *uint256.Int) error
	Snapshot() int
	RevertToSnapshot(id int) error
	DiscardSnapshot(id int) error
}

// TokenCreator deploys tokens.
type TokenCreator interface {
	CreateToken(ctx context.Context, name, symbol string, decimals uint8, initialSupply *uint256.Int, recipient common.Address, extraData []byte, salt common.Hash) (common.Address, error)
	PredictAddress(name, symbol string, decimals uint8, initialSupply *uint256.Int, recipient common.Address, salt common.Hash) (common.Address, error)
}

// TokenSpec describes a token to create.
type TokenSpec struct {
	Name          string
	Symbol        string
	Decimals      uint8
	InitialSupply *uint256.Int
	Recipient     common.Address
	ExtraData     []byte
}

// DistributionSpec routes amount of a token to a registered strategy factory.
type DistributionSpec struct {
	Strategy   common.Address
	Amount     *uint256.Int
	ConfigData []byte
}

// Launcher creates tokens and hands their supply to distribution strategies.
// Every call executes all-or-nothing against the ledger.
type Launcher struct {
	address  common.Address
	ledger   Ledger
	tokens   TokenCreator
	registry *Registry
	logger   *zap.Logger
}

func New(address common.Address, l Ledger, tokens TokenCreator, registry *Registry, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{
		address:  address,
		ledger:   l,
		tokens:   tokens,
		registry: registry,
		logger:   logger,
	}
}

func (l *Launcher) Address() common.Address {
	return l.address
}

// CreateToken deploys a token. The salt is bound to sender so two senders
// cannot collide on an address.
func (l *Launcher) CreateToken(ctx context.Context, sender common.Address, spec TokenSpec, salt common.Hash) (common.Address, error) {
	senderSalt, err := deploy.SenderSalt(sender, salt)
	if err != nil {
		return common.Address{}, err
	}
	var token common.Address
	err = l.ledger.Exec(ctx, func(ctx context.Context) error {
		var createErr error
		token, createErr = l.tokens.CreateToken(ctx, spec.Name, spec.Symbol, spec.Decimals, spec.InitialSupply, spec.Recipient, spec.ExtraData, senderSalt)
		return createErr
	})
	return token, err
}

// PredictToken returns the address CreateToken deploys to.
func (l *Launcher) PredictToken(sender common.Address, spec TokenSpec, salt common.Hash) (common.Address, error) {
	senderSalt, err := deploy.SenderSalt(sender, salt)
	if err != nil {
		return common.Address{}, err
	}
	return l.tokens.PredictAddress(spec.Name, spec.Symbol, spec.Decimals, spec.InitialSupply, spec.Recipient, senderSalt)
}

// PredictDistribution returns the address DistributeToken deploys to.
func (l *Launcher) PredictDistribution(sender, token common.Address, spec DistributionSpec, salt common.Hash) (common.Address, error) {
	d, err := l.registry.Lookup(spec.Strategy)
	if err != nil {
		return common.Address{}, err
	}
	senderSalt, err := deploy.SenderSalt(sender, salt)
	if err != nil {
		return common.Address{}, err
	}
	return d.PredictAddress(l.address, token, spec.Amount, spec.ConfigData, senderSalt)
}

// DistributeToken deploys a distribution through the factory named in spec,
// funds it with spec.Amount of token and notifies it. Tokens come from sender
// when payerIsUser is set and from the launcher's own balance otherwise.
func (l *Launcher) DistributeToken(ctx context.Context, sender, token common.Address, spec DistributionSpec, payerIsUser bool, salt common.Hash) (Distribution, error) {
	if spec.Amount == nil || spec.Amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	factory, err := l.registry.Lookup(spec.Strategy)
	if err != nil {
		return nil, err
	}
	senderSalt, err := deploy.SenderSalt(sender, salt)
	if err != nil {
		return nil, err
	}
	payer := l.address
	if payerIsUser {
		payer = sender
	}

	var dist Distribution
	err = l.ledger.Exec(ctx, func(ctx context.Context) (err error) {
		snap := l.ledger.Snapshot()
		defer func() {
			if err != nil {
				if revertErr := l.ledger.RevertToSnapshot(snap); revertErr != nil {
					l.logger.Error("revert distribution failed", zap.Error(revertErr))
				}
				return
			}
			err = l.ledger.DiscardSnapshot(snap)
		}()

		dist, err = factory.InitializeDistribution(ctx, l.address, token, spec.Amount, spec.ConfigData, senderSalt)
		if err != nil {
			return fmt.Errorf("initialize distribution: %w", err)
		}

		target := dist.Address()
		before := l.ledger.BalanceOf(token, target)
		if err := l.ledger.Transfer(token, payer, target, spec.Amount); err != nil {
			return fmt.Errorf("fund distribution: %w", err)
		}
		after := l.ledger.BalanceOf(token, target)
		received := new(uint256.Int)
		if after.Gt(before) {
			received.Sub(after, before)
		}
		if !received.Eq(spec.Amount) {
			return fmt.Errorf("%w: sent %s received %s", ErrTokensNotReceived, spec.Amount.Dec(), received.Dec())
		}

		if err := dist.OnTokensReceived(ctx); err != nil {
			return fmt.Errorf("notify distribution: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("token distributed",
		zap.String("token", token.Hex()),
		zap.String("strategy_factory", spec.Strategy.Hex()),
		zap.String("distribution", dist.Address().Hex()),
		zap.String("amount", spec.Amount.Dec()),
		zap.String("payer", payer.Hex()),
	)
	return dist, nil
}
