package strategy

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityLauncher/internal/distribution"
	"liquidityLauncher/internal/model"
	"liquidityLauncher/internal/pool"
	"liquidityLauncher/internal/pricing"
)

// state is the mutable part of a strategy. Values are replaced, never
// mutated in place, so a shallow copy is a full snapshot.
type state struct {
	lifecycle Lifecycle
	auction   Auction

	price *pricing.Result

	positionIDs []uint64
	updated     uint64
}

func (s state) clone() state {
	out := s
	out.positionIDs = append([]uint64(nil), s.positionIDs...)
	return out
}

// Strategy is an LBP distribution strategy: it funds an auction, turns the
// auction's clearing price into an initial pool price and migrates the
// proceeds plus the token reserve into pool liquidity.
type Strategy struct {
	params Params
	caps   Capabilities
	alloc  distribution.Allocation

	ledger    Ledger
	auctions  AuctionDeployer
	pools     PoolManager
	positions PositionManager
	virtual   VirtualToken
	logger    *zap.Logger

	// approved is read by the pool hook, which can run while mu is held.
	approved atomic.Bool

	mu          sync.Mutex
	st          state
	runID       string
	pending     []model.TransitionRecord
	transitions []model.TransitionRecord
}

// New validates params and builds a strategy in AwaitingTokens.
func New(params Params, deps Deps, logger *zap.Logger) (*Strategy, error) {
	alloc, caps, err := params.validate()
	if err != nil {
		return nil, err
	}
	if deps.Ledger == nil || deps.Auctions == nil || deps.Pools == nil || deps.Positions == nil {
		return nil, fmt.Errorf("%w: ledger, auction deployer, pool manager and position manager are required", ErrMissingCollaborator)
	}
	if caps.UsesVirtualToken {
		if deps.Virtual == nil || deps.Virtual.Address() != params.Token {
			return nil, fmt.Errorf("%w: token %s", ErrInvalidVirtualToken, params.Token.Hex())
		}
		if deps.Virtual.Underlying() == params.Currency {
			return nil, fmt.Errorf("%w: underlying equals currency", ErrInvalidVirtualToken)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Strategy{
		params:    params,
		caps:      caps,
		alloc:     alloc,
		ledger:    deps.Ledger,
		auctions:  deps.Auctions,
		pools:     deps.Pools,
		positions: deps.Positions,
		virtual:   deps.Virtual,
		logger:    logger.With(zap.String("strategy", params.Address.Hex()), zap.String("variant", params.Variant.String())),
		st:        state{lifecycle: AwaitingTokens},
	}
	return s, nil
}

// SetRunID tags subsequent transition records with a run identifier.
func (s *Strategy) SetRunID(runID string) {
	s.mu.Lock()
	s.runID = runID
	s.mu.Unlock()
}

func (s *Strategy) Address() common.Address             { return s.params.Address }
func (s *Strategy) Params() Params                      { return s.params }
func (s *Strategy) Capabilities() Capabilities          { return s.caps }
func (s *Strategy) Allocation() distribution.Allocation { return s.alloc }

func (s *Strategy) Lifecycle() Lifecycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.lifecycle
}

// Auction returns the deployed auction, or nil before tokens are received.
func (s *Strategy) Auction() Auction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.auction
}

// ValidationResult returns the price derived at validation.
func (s *Strategy) ValidationResult() (pricing.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.price == nil {
		return pricing.Result{}, false
	}
	return *s.st.price, true
}

// PositionIDs returns the positions minted at migration.
func (s *Strategy) PositionIDs() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.st.positionIDs...)
}

// MigrationApproved reports the governance approval flag.
func (s *Strategy) MigrationApproved() bool {
	return s.approved.Load()
}

// PoolToken is the asset paired with the currency in the pool: the
// underlying for virtual variants, the launched token otherwise.
func (s *Strategy) PoolToken() common.Address {
	if s.caps.UsesVirtualToken {
		return s.virtual.Underlying()
	}
	return s.params.Token
}

// PoolKey is the key of the pool the strategy migrates into. Governed
// variants hook pool initialization through the strategy address.
func (s *Strategy) PoolKey() pool.Key {
	var hooks common.Address
	if s.caps.RequiresGovernanceApproval {
		hooks = s.params.Address
	}
	return pool.NewKey(s.params.Currency, s.PoolToken(), s.params.PoolLPFee, s.params.PoolTickSpacing, hooks)
}

func (s *Strategy) currencyIsCurrency0() bool {
	return currencyIsCurrency0(s.params.Currency, s.PoolToken())
}

// Transitions returns every committed transition record.
func (s *Strategy) Transitions() []model.TransitionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.TransitionRecord(nil), s.transitions...)
}

// DrainTransitions returns and forgets the committed transition records.
func (s *Strategy) DrainTransitions() []model.TransitionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.transitions
	s.transitions = nil
	return out
}

// OnTokensReceived confirms the strategy holds its full supply, deploys the
// auction and funds it with the auction share.
func (s *Strategy) OnTokensReceived(ctx context.Context) error {
	return s.atomically(ctx, "tokens_received", func(ctx context.Context) error {
		if s.st.auction != nil || s.st.lifecycle != AwaitingTokens {
			return fmt.Errorf("%w: state %s", ErrAuctionAlreadyDeployed, s.st.lifecycle)
		}

		balance := s.ledger.BalanceOf(s.params.Token, s.params.Address)
		if balance.Lt(s.params.TotalSupply) {
			return fmt.Errorf("%w: have %s, need %s", ErrInsufficientTokens, balance.Dec(), s.params.TotalSupply.Dec())
		}

		auction, err := s.auctions.DeployAuction(ctx, AuctionRequest{
			Token:          s.params.Token,
			Currency:       s.params.Currency,
			Amount:         s.alloc.AuctionSupply.Clone(),
			FundsRecipient: s.params.Address,
			Params:         s.params.Auction,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrAuctionDeployFailed, err)
		}

		if s.caps.UsesVirtualToken {
			if err := s.virtual.Allow(s.params.Address, auction.Address()); err != nil {
				return fmt.Errorf("%w: allow auction: %w", ErrTransferFailed, err)
			}
		}
		if err := s.ledger.Transfer(s.params.Token, s.params.Address, auction.Address(), s.alloc.AuctionSupply); err != nil {
			return fmt.Errorf("%w: fund auction: %w", ErrTransferFailed, err)
		}

		s.st.auction = auction
		s.transition(AuctionActive, common.Address{}, map[string]string{
			"auction":        auction.Address().Hex(),
			"auction_supply": s.alloc.AuctionSupply.Dec(),
			"reserve_supply": s.alloc.ReserveSupply.Dec(),
		})
		return nil
	})
}

// Validate is called by the auction once it has ended. It derives the
// initial pool price from the auction outcome and pulls the raised currency
// into the strategy.
func (s *Strategy) Validate(ctx context.Context, caller common.Address) error {
	return s.atomically(ctx, "validate", func(ctx context.Context) error {
		auction := s.st.auction
		if auction == nil || caller != auction.Address() {
			return fmt.Errorf("%w: caller %s is not the auction", ErrUnauthorized, caller.Hex())
		}
		switch s.st.lifecycle {
		case AuctionActive:
		case Swept:
			return ErrAlreadySwept
		default:
			return fmt.Errorf("%w: state %s", ErrAlreadyValidated, s.st.lifecycle)
		}

		endBlock, err := auction.EndBlock(ctx)
		if err != nil {
			return fmt.Errorf("%w: end block: %w", ErrAuctionCallFailed, err)
		}
		if block := s.ledger.BlockNumber(); block < endBlock {
			return fmt.Errorf("%w: auction ends at %d, current block %d", ErrTooEarly, endBlock, block)
		}

		clearingPrice, err := auction.ClearingPrice(ctx)
		if err != nil {
			return fmt.Errorf("%w: clearing price: %w", ErrAuctionCallFailed, err)
		}
		raised, err := auction.CurrencyRaised(ctx)
		if err != nil {
			return fmt.Errorf("%w: currency raised: %w", ErrAuctionCallFailed, err)
		}

		res, err := pricing.Validate(pricing.Input{
			ClearingPrice:       clearingPrice,
			CurrencyRaised:      raised,
			ReserveSupply:       s.alloc.ReserveSupply,
			CurrencyIsCurrency0: s.currencyIsCurrency0(),
		})
		if err != nil {
			return fmt.Errorf("validate price: %w", err)
		}

		before := s.ledger.BalanceOf(s.params.Currency, s.params.Address)
		if err := auction.SweepCurrency(ctx, s.params.Address); err != nil {
			return fmt.Errorf("%w: %w", ErrSweepFailed, err)
		}
		after := s.ledger.BalanceOf(s.params.Currency, s.params.Address)
		received := new(uint256.Int)
		if after.Gt(before) {
			received.Sub(after, before)
		}
		if received.Lt(raised) {
			return fmt.Errorf("%w: expected %s, received %s", ErrCurrencyNotReceived, raised.Dec(), received.Dec())
		}

		s.st.price = &res
		s.transition(PriceValidated, caller, map[string]string{
			"clearing_price_q96": clearingPrice.Dec(),
			"currency_raised":    raised.Dec(),
			"sqrt_price_x96":     res.SqrtPriceX96.Dec(),
			"token_amount":       res.TokenAmount.Dec(),
			"currency_amount":    res.CurrencyAmount.Dec(),
			"leftover_currency":  res.LeftoverCurrency.Dec(),
		})
		return nil
	})
}

// Sweep sends every balance the strategy holds to the operator once the
// sweep block is reached, provided migration has not happened.
func (s *Strategy) Sweep(ctx context.Context, caller common.Address) error {
	return s.atomically(ctx, "sweep", func(ctx context.Context) error {
		switch s.st.lifecycle {
		case Migrated:
			return ErrAlreadyMigrated
		case Swept:
			return ErrAlreadySwept
		}
		if block := s.ledger.BlockNumber(); block < s.params.SweepBlock {
			return fmt.Errorf("%w: sweep block %d, current block %d", ErrTooEarly, s.params.SweepBlock, block)
		}

		self := s.params.Address
		details := make(map[string]string)
		if s.caps.UsesVirtualToken {
			if held := s.ledger.BalanceOf(s.params.Token, self); !held.IsZero() {
				if err := s.virtual.Redeem(self, held); err != nil {
					return fmt.Errorf("%w: redeem virtual: %w", ErrTransferFailed, err)
				}
			}
		}
		assets := []struct {
			name  string
			token common.Address
		}{
			{"token", s.PoolToken()},
			{"currency", s.params.Currency},
		}
		for _, asset := range assets {
			amount := s.ledger.BalanceOf(asset.token, self)
			if amount.IsZero() {
				continue
			}
			if err := s.ledger.Transfer(asset.token, self, s.params.Operator, amount); err != nil {
				return fmt.Errorf("%w: sweep %s: %w", ErrTransferFailed, asset.name, err)
			}
			details[asset.name+"_swept"] = amount.Dec()
		}
		details["operator"] = s.params.Operator.Hex()

		s.transition(Swept, caller, details)
		return nil
	})
}

// ApproveMigration is the governance switch of governed variants.
func (s *Strategy) ApproveMigration(_ context.Context, caller common.Address) error {
	if !s.caps.RequiresGovernanceApproval || caller != s.params.Governance {
		return fmt.Errorf("%w: %s", ErrNotGovernance, caller.Hex())
	}
	if s.approved.CompareAndSwap(false, true) {
		s.logger.Info("migration approved", zap.String("governance", caller.Hex()))
	}
	return nil
}

// BeforeInitialize implements pool.Hook. Only the strategy may initialize its
// pool, and governed variants additionally need approval.
func (s *Strategy) BeforeInitialize(_ context.Context, sender common.Address, _ pool.Key, _ *uint256.Int) error {
	if sender != s.params.Address {
		return fmt.Errorf("%w: %s", ErrInvalidInitializer, sender.Hex())
	}
	if s.caps.RequiresGovernanceApproval && !s.approved.Load() {
		return ErrMigrationNotApproved
	}
	return nil
}

// Record snapshots the strategy for persistence.
func (s *Strategy) Record() model.StrategyRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := model.StrategyRecord{
		Address:           s.params.Address.Hex(),
		Variant:           s.params.Variant.String(),
		Lifecycle:         s.st.lifecycle.String(),
		Token:             s.params.Token.Hex(),
		PoolToken:         s.PoolToken().Hex(),
		Currency:          s.params.Currency.Hex(),
		TotalSupply:       s.params.TotalSupply.Dec(),
		AuctionSupply:     s.alloc.AuctionSupply.Dec(),
		ReserveSupply:     s.alloc.ReserveSupply.Dec(),
		MigrationBlock:    s.params.MigrationBlock,
		SweepBlock:        s.params.SweepBlock,
		PoolFee:           s.params.PoolLPFee,
		PoolTickSpacing:   s.params.PoolTickSpacing,
		PositionRecipient: s.params.PositionRecipient.Hex(),
		Operator:          s.params.Operator.Hex(),
		PositionIDs:       append([]uint64(nil), s.st.positionIDs...),
		MigrationApproved: s.approved.Load(),
		UpdatedBlock:      s.st.updated,
		UpdatedAt:         time.Now().UTC().Format(time.RFC3339Nano),
	}
	if s.st.auction != nil {
		rec.Auction = s.st.auction.Address().Hex()
	}
	if p := s.st.price; p != nil {
		rec.InitialSqrtPriceX96 = p.SqrtPriceX96.Dec()
		rec.InitialTokenAmount = p.TokenAmount.Dec()
		rec.InitialCurrencyAmount = p.CurrencyAmount.Dec()
		rec.LeftoverCurrency = p.LeftoverCurrency.Dec()
	}
	return rec
}

// atomically runs fn as one all-or-nothing call on the ledger: on error the
// ledger and the strategy state are restored and pending records are dropped.
// The ledger call lock is taken before s.mu.
func (s *Strategy) atomically(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return s.ledger.Exec(ctx, func(ctx context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		snap := s.ledger.Snapshot()
		saved := s.st.clone()

		if err := fn(ctx); err != nil {
			if rerr := s.ledger.RevertToSnapshot(snap); rerr != nil {
				s.logger.Error("revert snapshot failed", zap.String("op", op), zap.Error(rerr))
			}
			s.st = saved
			s.pending = nil
			s.logger.Debug("call reverted", zap.String("op", op), zap.String("kind", KindOf(err).String()), zap.Error(err))
			return err
		}

		if err := s.ledger.DiscardSnapshot(snap); err != nil {
			s.logger.Warn("discard snapshot failed", zap.String("op", op), zap.Error(err))
		}
		s.transitions = append(s.transitions, s.pending...)
		s.pending = nil
		return nil
	})
}

func (s *Strategy) transition(to Lifecycle, caller common.Address, details map[string]string) {
	from := s.st.lifecycle
	block := s.ledger.BlockNumber()
	s.st.lifecycle = to
	s.st.updated = block

	rec := model.TransitionRecord{
		ID:          uuid.NewString(),
		RunID:       s.runID,
		Strategy:    s.params.Address.Hex(),
		Variant:     s.params.Variant.String(),
		From:        from.String(),
		To:          to.String(),
		BlockNumber: block,
		Details:     details,
		RecordedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if caller != (common.Address{}) {
		rec.Caller = caller.Hex()
	}
	s.pending = append(s.pending, rec)

	s.logger.Info("strategy transition",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Uint64("block", block),
	)
}
