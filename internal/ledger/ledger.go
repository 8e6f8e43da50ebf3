package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
	ErrUnknownSnapshot     = errors.New("unknown snapshot")
)

// NativeCurrency is the token identity of the chain's native asset.
var NativeCurrency = common.Address{}

// TransferPolicy gates movements of a token. Mints arrive from the zero
// address and burns leave to it.
type TransferPolicy interface {
	CheckTransfer(from, to common.Address) error
}

type state struct {
	block    uint64
	balances map[common.Address]map[common.Address]*uint256.Int
	storage  map[common.Address]map[common.Hash]common.Hash
}

// Ledger is an in-memory host ledger: token balances, contract storage and the
// block height, with journaled snapshots for all-or-nothing calls.
//
// Snapshots form one stack, so calls that take them must run through Exec.
type Ledger struct {
	// call serializes top-level calls. It is always taken before mu.
	call sync.Mutex

	mu        sync.Mutex
	cur       state
	policies  map[common.Address]TransferPolicy
	snapshots []state
}

func New(startBlock uint64) *Ledger {
	return &Ledger{
		cur: state{
			block:    startBlock,
			balances: make(map[common.Address]map[common.Address]*uint256.Int),
			storage:  make(map[common.Address]map[common.Hash]common.Hash),
		},
		policies: make(map[common.Address]TransferPolicy),
	}
}

// BlockNumber returns the current block height.
func (l *Ledger) BlockNumber() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cur.block
}

// LatestBlockNumber matches the chain client's signature so the ledger can
// stand in as a block source.
func (l *Ledger) LatestBlockNumber(_ context.Context) (uint64, error) {
	return l.BlockNumber(), nil
}

func (l *Ledger) SetBlockNumber(block uint64) {
	l.mu.Lock()
	l.cur.block = block
	l.mu.Unlock()
}

// AdvanceBlocks moves the height forward and returns the new height.
func (l *Ledger) AdvanceBlocks(n uint64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cur.block += n
	return l.cur.block
}

// SetPolicy installs a transfer policy for token.
func (l *Ledger) SetPolicy(token common.Address, policy TransferPolicy) {
	l.mu.Lock()
	l.policies[token] = policy
	l.mu.Unlock()
}

func (l *Ledger) BalanceOf(token, holder common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(token, holder).Clone()
}

func (l *Ledger) Mint(token, to common.Address, amount *uint256.Int) error {
	if err := l.checkPolicy(token, common.Address{}, to); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.creditLocked(token, to, amount)
}

func (l *Ledger) Burn(token, from common.Address, amount *uint256.Int) error {
	if err := l.checkPolicy(token, from, common.Address{}); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debitLocked(token, from, amount)
}

// Transfer moves amount of token between holders.
func (l *Ledger) Transfer(token, from, to common.Address, amount *uint256.Int) error {
	if err := l.checkPolicy(token, from, to); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debitLocked(token, from, amount); err != nil {
		return err
	}
	return l.creditLocked(token, to, amount)
}

// GetState reads a storage slot of a contract address.
func (l *Ledger) GetState(addr common.Address, key common.Hash) common.Hash {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cur.storage[addr][key]
}

// SetState writes a storage slot of a contract address.
func (l *Ledger) SetState(addr common.Address, key common.Hash, value common.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slots, ok := l.cur.storage[addr]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		l.cur.storage[addr] = slots
	}
	if value == (common.Hash{}) {
		delete(slots, key)
		return
	}
	slots[key] = value
}

type callKey struct{ l *Ledger }

// Exec runs fn as one call. Top-level calls run one at a time. A call made
// with the context fn receives joins the running call instead of waiting, so
// nested entry points on the same call path do not deadlock.
func (l *Ledger) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(callKey{l}) != nil {
		return fn(ctx)
	}
	l.call.Lock()
	defer l.call.Unlock()
	return fn(context.WithValue(ctx, callKey{l}, struct{}{}))
}

// Snapshot records the current state and returns its id.
func (l *Ledger) Snapshot() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshots = append(l.snapshots, l.cur.clone())
	return len(l.snapshots) - 1
}

// RevertToSnapshot restores the state recorded by id and drops it together
// with every later snapshot.
func (l *Ledger) RevertToSnapshot(id int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id < 0 || id >= len(l.snapshots) {
		return fmt.Errorf("%w: %d", ErrUnknownSnapshot, id)
	}
	l.cur = l.snapshots[id]
	l.snapshots = l.snapshots[:id]
	return nil
}

// DiscardSnapshot keeps the current state and drops snapshot id and every
// later one.
func (l *Ledger) DiscardSnapshot(id int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id < 0 || id >= len(l.snapshots) {
		return fmt.Errorf("%w: %d", ErrUnknownSnapshot, id)
	}
	l.snapshots = l.snapshots[:id]
	return nil
}

func (l *Ledger) checkPolicy(token, from, to common.Address) error {
	l.mu.Lock()
	policy := l.policies[token]
	l.mu.Unlock()
	if policy == nil {
		return nil
	}
	return policy.CheckTransfer(from, to)
}

func (l *Ledger) balanceLocked(token, holder common.Address) *uint256.Int {
	if bal, ok := l.cur.balances[token][holder]; ok {
		return bal
	}
	return new(uint256.Int)
}

func (l *Ledger) creditLocked(token, to common.Address, amount *uint256.Int) error {
	holders, ok := l.cur.balances[token]
	if !ok {
		holders = make(map[common.Address]*uint256.Int)
		l.cur.balances[token] = holders
	}
	next, overflow := new(uint256.Int).AddOverflow(l.balanceLocked(token, to), amount)
	if overflow {
		return fmt.Errorf("%w: token %s holder %s", ErrBalanceOverflow, token.Hex(), to.Hex())
	}
	holders[to] = next
	return nil
}

func (l *Ledger) debitLocked(token, from common.Address, amount *uint256.Int) error {
	bal := l.balanceLocked(token, from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: token %s holder %s has %s, needs %s", ErrInsufficientBalance, token.Hex(), from.Hex(), bal.Dec(), amount.Dec())
	}
	holders, ok := l.cur.balances[token]
	if !ok {
		holders = make(map[common.Address]*uint256.Int)
		l.cur.balances[token] = holders
	}
	holders[from] = new(uint256.Int).Sub(bal, amount)
	return nil
}

func (s state) clone() state {
	out := state{
		block:    s.block,
		balances: make(map[common.Address]map[common.Address]*uint256.Int, len(s.balances)),
		storage:  make(map[common.Address]map[common.Hash]common.Hash, len(s.storage)),
	}
	for token, holders := range s.balances {
		copied := make(map[common.Address]*uint256.Int, len(holders))
		for holder, bal := range holders {
			copied[holder] = bal.Clone()
		}
		out.balances[token] = copied
	}
	for addr, slots := range s.storage {
		copied := make(map[common.Hash]common.Hash, len(slots))
		for k, v := range slots {
			copied[k] = v
		}
		out.storage[addr] = copied
	}
	return out
}
