package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityLauncher/internal/ledger"
	"liquidityLauncher/internal/pricing"
)

// StateDB is the slice of the host ledger the pool contracts use.
type StateDB interface {
	BlockNumber() uint64
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)
	BalanceOf(token, holder common.Address) *uint256.Int
	Transfer(token, from, to common.Address, amount *uint256.Int) error
}

// Hook is called by the manager before a pool whose key names the hook's
// address is initialized.
type Hook interface {
	BeforeInitialize(ctx context.Context, sender common.Address, key Key, sqrtPriceX96 *uint256.Int) error
}

// Slot0 is the price state of an initialized pool.
type Slot0 struct {
	SqrtPriceX96 *uint256.Int
	Tick         int32
}

// Manager is a singleton pool manager. Pool state lives in the host ledger
// under the manager's address so that it reverts with the calling transaction.
type Manager struct {
	address common.Address
	state   StateDB
	logger  *zap.Logger

	mu    sync.RWMutex
	hooks map[common.Address]Hook
}

func NewManager(address common.Address, state StateDB, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		address: address,
		state:   state,
		logger:  logger,
		hooks:   make(map[common.Address]Hook),
	}
}

func (m *Manager) Address() common.Address {
	return m.address
}

// RegisterHook binds a hook implementation to a hook address.
func (m *Manager) RegisterHook(address common.Address, hook Hook) {
	m.mu.Lock()
	m.hooks[address] = hook
	m.mu.Unlock()
}

// Initialize sets the initial price of the pool identified by key. sender is
// the account calling the manager and is passed through to the hook.
func (m *Manager) Initialize(ctx context.Context, key Key, sqrtPriceX96 *uint256.Int, sender common.Address) (int32, error) {
	if !key.Sorted() {
		return 0, fmt.Errorf("%w: %s >= %s", ErrCurrenciesOutOfOrder, key.Currency0.Hex(), key.Currency1.Hex())
	}
	if key.Fee > MaxLPFee {
		return 0, fmt.Errorf("%w: %d", ErrInvalidFee, key.Fee)
	}
	if err := pricing.CheckTickSpacing(key.TickSpacing); err != nil {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTickSpacing, key.TickSpacing)
	}
	tick, err := pricing.GetTickAtSqrtPrice(sqrtPriceX96)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSqrtPrice, err)
	}

	id, err := key.ID()
	if err != nil {
		return 0, err
	}
	if m.initialized(id) {
		return 0, fmt.Errorf("%w: %s", ErrPoolAlreadyInitialized, id.Hex())
	}

	if key.Hooks != (common.Address{}) {
		m.mu.RLock()
		hook, ok := m.hooks[key.Hooks]
		m.mu.RUnlock()
		if ok {
			if err := hook.BeforeInitialize(ctx, sender, key, sqrtPriceX96); err != nil {
				return 0, err
			}
		}
	}

	m.state.SetState(m.address, poolSlot(id, "sqrtPrice"), ledger.WordFromUint256(sqrtPriceX96))
	m.state.SetState(m.address, poolSlot(id, "tick"), ledger.WordFromUint64(uint64(int64(tick))))

	m.logger.Info("pool initialized",
		zap.String("pool_id", id.Hex()),
		zap.String("currency0", key.Currency0.Hex()),
		zap.String("currency1", key.Currency1.Hex()),
		zap.Uint32("fee", key.Fee),
		zap.Int32("tick_spacing", key.TickSpacing),
		zap.String("sqrt_price_x96", sqrtPriceX96.Dec()),
		zap.Int32("tick", tick),
	)

	return tick, nil
}

// IsInitialized reports whether a pool with this exact key exists.
func (m *Manager) IsInitialized(key Key) (bool, error) {
	id, err := key.ID()
	if err != nil {
		return false, err
	}
	return m.initialized(id), nil
}

// Slot0 returns the price state of the pool.
func (m *Manager) Slot0(key Key) (Slot0, error) {
	id, err := key.ID()
	if err != nil {
		return Slot0{}, err
	}
	if !m.initialized(id) {
		return Slot0{}, fmt.Errorf("%w: %s", ErrPoolNotInitialized, id.Hex())
	}
	return Slot0{
		SqrtPriceX96: ledger.Uint256FromWord(m.state.GetState(m.address, poolSlot(id, "sqrtPrice"))),
		Tick:         int32(int64(ledger.Uint64FromWord(m.state.GetState(m.address, poolSlot(id, "tick"))))),
	}, nil
}

// Liquidity returns the in-range liquidity of the pool.
func (m *Manager) Liquidity(key Key) (*uint256.Int, error) {
	id, err := key.ID()
	if err != nil {
		return nil, err
	}
	return ledger.Uint256FromWord(m.state.GetState(m.address, poolSlot(id, "liquidity"))), nil
}

// modifyLiquidity settles a new position's amounts from payer into the
// manager.
func (m *Manager) modifyLiquidity(key Key, id common.Hash, slot0 Slot0, tickLower, tickUpper int32, liquidity, amount0, amount1 *uint256.Int, payer common.Address) error {
	if !amount0.IsZero() {
		if err := m.state.Transfer(key.Currency0, payer, m.address, amount0); err != nil {
			return fmt.Errorf("settle currency0: %w", err)
		}
	}
	if !amount1.IsZero() {
		if err := m.state.Transfer(key.Currency1, payer, m.address, amount1); err != nil {
			return fmt.Errorf("settle currency1: %w", err)
		}
	}

	if slot0.Tick >= tickLower && slot0.Tick < tickUpper {
		current := ledger.Uint256FromWord(m.state.GetState(m.address, poolSlot(id, "liquidity")))
		next, overflow := new(uint256.Int).AddOverflow(current, liquidity)
		if overflow || next.Gt(pricing.MaxUint128) {
			return fmt.Errorf("%w: pool liquidity overflow", ErrLiquidityTooHigh)
		}
		m.state.SetState(m.address, poolSlot(id, "liquidity"), ledger.WordFromUint256(next))
	}
	return nil
}

func (m *Manager) initialized(id common.Hash) bool {
	return m.state.GetState(m.address, poolSlot(id, "sqrtPrice")) != (common.Hash{})
}

func poolSlot(id common.Hash, field string) common.Hash {
	return ledger.Slot("pool."+field, id.Bytes())
}
