package pool

import (
	"bytes"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MaxLPFee is 100% in hundredths of a bip.
const MaxLPFee uint32 = 1_000_000

// Key identifies a pool. Currency0 must sort below Currency1; the zero
// address stands for the native currency.
type Key struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         uint32
	TickSpacing int32
	Hooks       common.Address
}

// NewKey orders the two currencies canonically.
func NewKey(a, b common.Address, fee uint32, tickSpacing int32, hooks common.Address) Key {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return Key{Currency0: a, Currency1: b, Fee: fee, TickSpacing: tickSpacing, Hooks: hooks}
}

// Sorted reports whether the currencies are in canonical order.
func (k Key) Sorted() bool {
	return bytes.Compare(k.Currency0.Bytes(), k.Currency1.Bytes()) < 0
}

var (
	keyArgs     abi.Arguments
	keyArgsOnce sync.Once
	keyArgsErr  error
)

func keyArguments() (abi.Arguments, error) {
	keyArgsOnce.Do(func() {
		types := []string{"address", "address", "uint24", "int24", "address"}
		for _, name := range types {
			ty, err := abi.NewType(name, "", nil)
			if err != nil {
				keyArgsErr = err
				return
			}
			keyArgs = append(keyArgs, abi.Argument{Type: ty})
		}
	})
	return keyArgs, keyArgsErr
}

// ID is keccak256(abi.encode(key)).
func (k Key) ID() (common.Hash, error) {
	args, err := keyArguments()
	if err != nil {
		return common.Hash{}, fmt.Errorf("pool key abi: %w", err)
	}
	encoded, err := args.Pack(
		k.Currency0,
		k.Currency1,
		new(big.Int).SetUint64(uint64(k.Fee)),
		big.NewInt(int64(k.TickSpacing)),
		k.Hooks,
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack pool key: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}
