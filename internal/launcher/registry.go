package launcher

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Distribution is a deployed distribution strategy instance.
type Distribution interface {
	Address() common.Address
	// OnTokensReceived is called once the full amount has been transferred in.
	OnTokensReceived(ctx context.Context) error
}

// Distributor deploys distribution instances. caller is the account that
// deploys through it; the launcher passes itself.
type Distributor interface {
	InitializeDistribution(ctx context.Context, caller, token common.Address, amount *uint256.Int, configData []byte, salt common.Hash) (Distribution, error)
	PredictAddress(caller, token common.Address, amount *uint256.Int, configData []byte, salt common.Hash) (common.Address, error)
}

// Registry is the explicit table of distribution strategy factories the
// launcher may route to, keyed by factory address.
type Registry struct {
	mu      sync.RWMutex
	entries map[common.Address]Distributor
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[common.Address]Distributor)}
}

// Register adds a factory. Addresses are registered once.
func (r *Registry) Register(addr common.Address, d Distributor) error {
	if addr == (common.Address{}) || d == nil {
		return fmt.Errorf("%w: %s", ErrUnknownDistributor, addr.Hex())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[addr]; ok {
		return fmt.Errorf("%w: %s", ErrDistributorExists, addr.Hex())
	}
	r.entries[addr] = d
	return nil
}

func (r *Registry) Lookup(addr common.Address) (Distributor, error) {
	r.mu.RLock()
	d, ok := r.entries[addr]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDistributor, addr.Hex())
	}
	return d, nil
}

// Addresses lists the registered factories in byte order.
func (r *Registry) Addresses() []common.Address {
	r.mu.RLock()
	out := make([]common.Address, 0, len(r.entries))
	for addr := range r.entries {
		out = append(out, addr)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Bytes(), out[j].Bytes()) < 0
	})
	return out
}
