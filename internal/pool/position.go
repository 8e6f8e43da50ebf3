package pool

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityLauncher/internal/ledger"
	"liquidityLauncher/internal/pricing"
)

// MintParams describes a new liquidity position.
type MintParams struct {
	Key        Key
	TickLower  int32
	TickUpper  int32
	Liquidity  *uint256.Int
	Amount0Max *uint256.Int
	Amount1Max *uint256.Int
	Payer      common.Address
	Recipient  common.Address
}

// Position is a minted liquidity position.
type Position struct {
	ID        uint64
	Owner     common.Address
	PoolID    common.Hash
	TickLower int32
	TickUpper int32
	Liquidity *uint256.Int
	Amount0   *uint256.Int
	Amount1   *uint256.Int
}

// PositionManager mints positions into pools of a Manager and tracks their
// ownership.
type PositionManager struct {
	address common.Address
	manager *Manager
	state   StateDB
	logger  *zap.Logger
}

func NewPositionManager(address common.Address, manager *Manager, state StateDB, logger *zap.Logger) *PositionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PositionManager{
		address: address,
		manager: manager,
		state:   state,
		logger:  logger,
	}
}

func (p *PositionManager) Address() common.Address {
	return p.address
}

// Mint adds liquidity to an initialized pool and records a position owned by
// the recipient. Amounts are rounded up in the pool's favour and pulled from
// the payer.
func (p *PositionManager) Mint(_ context.Context, params MintParams) (Position, error) {
	if params.Recipient == (common.Address{}) {
		return Position{}, ErrInvalidRecipient
	}
	key := params.Key
	if err := checkTicks(params.TickLower, params.TickUpper, key.TickSpacing); err != nil {
		return Position{}, err
	}
	if params.Liquidity == nil || params.Liquidity.IsZero() {
		return Position{}, ErrZeroLiquidity
	}
	if params.Liquidity.Gt(pricing.MaxLiquidityPerTick(key.TickSpacing)) {
		return Position{}, fmt.Errorf("%w: %s", ErrLiquidityTooHigh, params.Liquidity.Dec())
	}

	slot0, err := p.manager.Slot0(key)
	if err != nil {
		return Position{}, err
	}
	sqrtLower, err := pricing.GetSqrtPriceAtTick(params.TickLower)
	if err != nil {
		return Position{}, err
	}
	sqrtUpper, err := pricing.GetSqrtPriceAtTick(params.TickUpper)
	if err != nil {
		return Position{}, err
	}
	amount0, amount1, err := pricing.AmountsForLiquidity(slot0.SqrtPriceX96, sqrtLower, sqrtUpper, params.Liquidity, true)
	if err != nil {
		return Position{}, fmt.Errorf("position amounts: %w", err)
	}
	if amount0.IsZero() && amount1.IsZero() {
		return Position{}, ErrZeroAmounts
	}
	if exceeds(amount0, params.Amount0Max) || exceeds(amount1, params.Amount1Max) {
		return Position{}, fmt.Errorf("%w: need %s/%s", ErrSlippage, amount0.Dec(), amount1.Dec())
	}

	poolID, err := key.ID()
	if err != nil {
		return Position{}, err
	}
	if err := p.manager.modifyLiquidity(key, poolID, slot0, params.TickLower, params.TickUpper, params.Liquidity, amount0, amount1, params.Payer); err != nil {
		return Position{}, err
	}

	pos := Position{
		ID:        p.nextID(),
		Owner:     params.Recipient,
		PoolID:    poolID,
		TickLower: params.TickLower,
		TickUpper: params.TickUpper,
		Liquidity: params.Liquidity.Clone(),
		Amount0:   amount0,
		Amount1:   amount1,
	}
	p.store(pos)

	p.logger.Info("position minted",
		zap.Uint64("position_id", pos.ID),
		zap.String("owner", pos.Owner.Hex()),
		zap.String("pool_id", poolID.Hex()),
		zap.Int32("tick_lower", pos.TickLower),
		zap.Int32("tick_upper", pos.TickUpper),
		zap.String("liquidity", pos.Liquidity.Dec()),
		zap.String("amount0", amount0.Dec()),
		zap.String("amount1", amount1.Dec()),
	)

	return pos, nil
}

// Position loads a minted position.
func (p *PositionManager) Position(id uint64) (Position, error) {
	owner := p.state.GetState(p.address, positionSlot(id, "owner"))
	if owner == (common.Hash{}) {
		return Position{}, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
	}
	return Position{
		ID:        id,
		Owner:     common.BytesToAddress(owner.Bytes()),
		PoolID:    p.state.GetState(p.address, positionSlot(id, "pool")),
		TickLower: int32(int64(ledger.Uint64FromWord(p.state.GetState(p.address, positionSlot(id, "tickLower"))))),
		TickUpper: int32(int64(ledger.Uint64FromWord(p.state.GetState(p.address, positionSlot(id, "tickUpper"))))),
		Liquidity: ledger.Uint256FromWord(p.state.GetState(p.address, positionSlot(id, "liquidity"))),
		Amount0:   ledger.Uint256FromWord(p.state.GetState(p.address, positionSlot(id, "amount0"))),
		Amount1:   ledger.Uint256FromWord(p.state.GetState(p.address, positionSlot(id, "amount1"))),
	}, nil
}

// OwnerOf returns the owner of a position.
func (p *PositionManager) OwnerOf(id uint64) (common.Address, error) {
	pos, err := p.Position(id)
	if err != nil {
		return common.Address{}, err
	}
	return pos.Owner, nil
}

func (p *PositionManager) nextID() uint64 {
	counter := ledger.Slot("position.nextId")
	id := ledger.Uint64FromWord(p.state.GetState(p.address, counter)) + 1
	p.state.SetState(p.address, counter, ledger.WordFromUint64(id))
	return id
}

func (p *PositionManager) store(pos Position) {
	p.state.SetState(p.address, positionSlot(pos.ID, "owner"), common.BytesToHash(pos.Owner.Bytes()))
	p.state.SetState(p.address, positionSlot(pos.ID, "pool"), pos.PoolID)
	p.state.SetState(p.address, positionSlot(pos.ID, "tickLower"), ledger.WordFromUint64(uint64(int64(pos.TickLower))))
	p.state.SetState(p.address, positionSlot(pos.ID, "tickUpper"), ledger.WordFromUint64(uint64(int64(pos.TickUpper))))
	p.state.SetState(p.address, positionSlot(pos.ID, "liquidity"), ledger.WordFromUint256(pos.Liquidity))
	p.state.SetState(p.address, positionSlot(pos.ID, "amount0"), ledger.WordFromUint256(pos.Amount0))
	p.state.SetState(p.address, positionSlot(pos.ID, "amount1"), ledger.WordFromUint256(pos.Amount1))
}

func checkTicks(lower, upper, spacing int32) error {
	if lower >= upper {
		return fmt.Errorf("%w: %d >= %d", ErrInvalidTickRange, lower, upper)
	}
	if lower < pricing.MinTick || upper > pricing.MaxTick {
		return fmt.Errorf("%w: [%d, %d] outside tick bounds", ErrInvalidTickRange, lower, upper)
	}
	if spacing <= 0 || lower%spacing != 0 || upper%spacing != 0 {
		return fmt.Errorf("%w: [%d, %d] not aligned to %d", ErrInvalidTickRange, lower, upper, spacing)
	}
	return nil
}

func exceeds(amount, max *uint256.Int) bool {
	return max != nil && amount.Gt(max)
}

func positionSlot(id uint64, field string) common.Hash {
	return ledger.Slot("position."+field, ledger.WordFromUint64(id).Bytes())
}
