package strategy

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityLauncher/internal/pool"
	"liquidityLauncher/internal/pricing"
)

// positionPlan is one position the migration mints.
type positionPlan struct {
	kind      string
	tickLower int32
	tickUpper int32
	liquidity *uint256.Int
	amount0   *uint256.Int
	amount1   *uint256.Int
}

// Migrate initializes the pool at the validated price and mints the
// full-range position, plus an optional one-sided position, to the position
// recipient. Whatever the positions do not absorb stays in the strategy.
func (s *Strategy) Migrate(ctx context.Context) error {
	return s.atomically(ctx, "migrate", func(ctx context.Context) error {
		switch s.st.lifecycle {
		case PriceValidated:
		case Migrated:
			return ErrAlreadyMigrated
		case Swept:
			return ErrAlreadySwept
		default:
			return fmt.Errorf("%w: state %s", ErrNotValidated, s.st.lifecycle)
		}
		if block := s.ledger.BlockNumber(); block < s.params.MigrationBlock {
			return fmt.Errorf("%w: migration block %d, current block %d", ErrTooEarly, s.params.MigrationBlock, block)
		}

		key := s.PoolKey()
		initialized, err := s.pools.IsInitialized(key)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPoolInitFailed, err)
		}
		if initialized {
			return fmt.Errorf("%w: %s/%s", ErrPoolAlreadyInitialized, key.Currency0.Hex(), key.Currency1.Hex())
		}

		self := s.params.Address
		if s.caps.UsesVirtualToken {
			if held := s.ledger.BalanceOf(s.params.Token, self); !held.IsZero() {
				if err := s.virtual.Redeem(self, held); err != nil {
					return fmt.Errorf("%w: redeem virtual: %w", ErrTransferFailed, err)
				}
			}
		}

		price := s.st.price
		tick, err := s.pools.Initialize(ctx, key, price.SqrtPriceX96, self)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPoolInitFailed, err)
		}

		plans, err := s.planPositions(key, tick)
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(plans))
		for _, plan := range plans {
			pos, err := s.positions.Mint(ctx, pool.MintParams{
				Key:        key,
				TickLower:  plan.tickLower,
				TickUpper:  plan.tickUpper,
				Liquidity:  plan.liquidity,
				Amount0Max: plan.amount0,
				Amount1Max: plan.amount1,
				Payer:      self,
				Recipient:  s.params.PositionRecipient,
			})
			if err != nil {
				return fmt.Errorf("%w: %s position: %w", ErrMintFailed, plan.kind, err)
			}
			s.st.positionIDs = append(s.st.positionIDs, pos.ID)
			ids = append(ids, strconv.FormatUint(pos.ID, 10))
		}

		tokenDust := s.ledger.BalanceOf(s.PoolToken(), self)
		currencyDust := s.ledger.BalanceOf(s.params.Currency, self)
		if !tokenDust.IsZero() || !currencyDust.IsZero() {
			s.logger.Info("dust remains locked",
				zap.String("token", tokenDust.Dec()),
				zap.String("currency", currencyDust.Dec()),
			)
		}

		poolID, err := key.ID()
		if err != nil {
			return err
		}
		s.transition(Migrated, common.Address{}, map[string]string{
			"pool_id":         poolID.Hex(),
			"tick":            strconv.FormatInt(int64(tick), 10),
			"position_ids":    strings.Join(ids, ","),
			"recipient":       s.params.PositionRecipient.Hex(),
			"token_locked":    tokenDust.Dec(),
			"currency_locked": currencyDust.Dec(),
		})
		return nil
	})
}

// planPositions sizes the full-range position from the validated amounts and
// the optional one-sided position from what the full range leaves over.
func (s *Strategy) planPositions(key pool.Key, tick int32) ([]positionPlan, error) {
	price := s.st.price
	spacing := key.TickSpacing
	currencyIs0 := s.currencyIsCurrency0()

	amount0, amount1 := price.TokenAmount, price.CurrencyAmount
	if currencyIs0 {
		amount0, amount1 = price.CurrencyAmount, price.TokenAmount
	}

	lower, upper := pricing.MinUsableTick(spacing), pricing.MaxUsableTick(spacing)
	sqrtLower, sqrtUpper, err := tickPrices(lower, upper)
	if err != nil {
		return nil, err
	}
	liquidity, err := pricing.GetLiquidityForAmounts(price.SqrtPriceX96, sqrtLower, sqrtUpper, amount0, amount1)
	if err != nil {
		return nil, fmt.Errorf("full range liquidity: %w", err)
	}
	full := positionPlan{
		kind:      "full_range",
		tickLower: lower,
		tickUpper: upper,
		liquidity: s.capLiquidity("full_range", liquidity, spacing),
		amount0:   amount0,
		amount1:   amount1,
	}
	plans := []positionPlan{full}

	used0, used1, err := pricing.AmountsForLiquidity(price.SqrtPriceX96, sqrtLower, sqrtUpper, full.liquidity, true)
	if err != nil {
		return nil, fmt.Errorf("full range amounts: %w", err)
	}
	held0, held1 := s.heldAmounts(key)
	rest0 := saturatingSub(held0, used0)
	rest1 := saturatingSub(held1, used1)

	restCurrency, restToken := rest1, rest0
	if currencyIs0 {
		restCurrency, restToken = rest0, rest1
	}

	var (
		one    *positionPlan
		oneErr error
	)
	// The reserve is either under-used or fully used with currency left over;
	// the side with the surplus gets the one-sided position.
	switch {
	case price.TokenAmount.Lt(s.alloc.ReserveSupply):
		if s.params.CreateOneSidedTokenPosition && !restToken.IsZero() {
			one, oneErr = s.oneSided("one_sided_token", !currencyIs0, restToken, tick, spacing)
		}
	case !price.LeftoverCurrency.IsZero():
		if s.params.CreateOneSidedCurrencyPosition && !restCurrency.IsZero() {
			one, oneErr = s.oneSided("one_sided_currency", currencyIs0, restCurrency, tick, spacing)
		}
	}
	if oneErr != nil {
		return nil, oneErr
	}
	if one != nil {
		plans = append(plans, *one)
	}
	return plans, nil
}

// oneSided places a single-asset position strictly outside the current
// price. Currency0 sits above the price and currency1 below it. A nil plan
// means the position was skipped.
func (s *Strategy) oneSided(kind string, isCurrency0 bool, amount *uint256.Int, tick, spacing int32) (*positionPlan, error) {
	var lower, upper int32
	if isCurrency0 {
		lower, upper = pricing.FloorTick(tick, spacing)+spacing, pricing.MaxUsableTick(spacing)
	} else {
		lower, upper = pricing.MinUsableTick(spacing), pricing.FloorTick(tick, spacing)
	}
	if lower >= upper {
		s.logger.Info("one-sided position skipped", zap.String("kind", kind), zap.String("reason", "empty tick range"))
		return nil, nil
	}

	sqrtLower, sqrtUpper, err := tickPrices(lower, upper)
	if err != nil {
		return nil, err
	}
	plan := &positionPlan{kind: kind, tickLower: lower, tickUpper: upper}
	var liquidity *uint256.Int
	if isCurrency0 {
		liquidity, err = pricing.GetLiquidityForAmount0(sqrtLower, sqrtUpper, amount)
		plan.amount0, plan.amount1 = amount, new(uint256.Int)
	} else {
		liquidity, err = pricing.GetLiquidityForAmount1(sqrtLower, sqrtUpper, amount)
		plan.amount0, plan.amount1 = new(uint256.Int), amount
	}
	if err != nil {
		return nil, fmt.Errorf("%s liquidity: %w", kind, err)
	}
	if liquidity.IsZero() {
		s.logger.Info("one-sided position skipped", zap.String("kind", kind), zap.String("reason", "zero liquidity"))
		return nil, nil
	}
	plan.liquidity = s.capLiquidity(kind, liquidity, spacing)
	return plan, nil
}

func (s *Strategy) capLiquidity(kind string, liquidity *uint256.Int, spacing int32) *uint256.Int {
	limit := pricing.MaxLiquidityPerTick(spacing)
	if liquidity.Gt(limit) {
		s.logger.Warn("position liquidity capped",
			zap.String("kind", kind),
			zap.String("liquidity", liquidity.Dec()),
			zap.String("max", limit.Dec()),
		)
		return limit
	}
	return liquidity
}

func (s *Strategy) heldAmounts(key pool.Key) (*uint256.Int, *uint256.Int) {
	self := s.params.Address
	return s.ledger.BalanceOf(key.Currency0, self), s.ledger.BalanceOf(key.Currency1, self)
}

func tickPrices(lower, upper int32) (*uint256.Int, *uint256.Int, error) {
	sqrtLower, err := pricing.GetSqrtPriceAtTick(lower)
	if err != nil {
		return nil, nil, err
	}
	sqrtUpper, err := pricing.GetSqrtPriceAtTick(upper)
	if err != nil {
		return nil, nil, err
	}
	return sqrtLower, sqrtUpper, nil
}

func saturatingSub(a, b *uint256.Int) *uint256.Int {
	if !a.Gt(b) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}
