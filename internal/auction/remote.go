package auction

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityLauncher/internal/model"
)

const auctionABIJSON = `[
  {"inputs": [], "name": "clearingPrice", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "currencyRaised", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "endBlock", "outputs": [{"internalType": "uint64", "name": "", "type": "uint64"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "token", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "currency", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint128", "name": "", "type": "uint128"}], "stateMutability": "view", "type": "function"}
]`

var (
	auctionABI     abi.ABI
	auctionABIOnce sync.Once
	auctionABIErr  error
)

// AuctionABI returns the parsed read-only auction ABI.
func AuctionABI() (abi.ABI, error) {
	auctionABIOnce.Do(func() {
		auctionABI, auctionABIErr = abi.JSON(strings.NewReader(auctionABIJSON))
	})
	return auctionABI, auctionABIErr
}

// ContractCaller performs eth_call. *chain.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// Remote reads a live auction contract over JSON-RPC.
type Remote struct {
	address common.Address
	caller  ContractCaller
}

func NewRemote(address common.Address, caller ContractCaller) *Remote {
	return &Remote{address: address, caller: caller}
}

func (r *Remote) Address() common.Address {
	return r.address
}

func (r *Remote) ClearingPrice(ctx context.Context) (*uint256.Int, error) {
	return r.callUint256(ctx, "clearingPrice")
}

func (r *Remote) CurrencyRaised(ctx context.Context) (*uint256.Int, error) {
	return r.callUint256(ctx, "currencyRaised")
}

func (r *Remote) EndBlock(ctx context.Context) (uint64, error) {
	v, err := r.callUint256(ctx, "endBlock")
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

func (r *Remote) Token(ctx context.Context) (common.Address, error) {
	return r.callAddress(ctx, "token")
}

func (r *Remote) Currency(ctx context.Context) (common.Address, error) {
	return r.callAddress(ctx, "currency")
}

func (r *Remote) TotalSupply(ctx context.Context) (*uint256.Int, error) {
	return r.callUint256(ctx, "totalSupply")
}

// SweepCurrency is not available on a read-only reader.
func (r *Remote) SweepCurrency(context.Context, common.Address) error {
	return ErrReadOnly
}

// Outcome reads the auction's current result.
func (r *Remote) Outcome(ctx context.Context) (model.AuctionOutcome, error) {
	out := model.AuctionOutcome{Auction: r.address.Hex()}

	block, err := r.caller.LatestBlockNumber(ctx)
	if err != nil {
		return out, fmt.Errorf("latest block: %w", err)
	}
	out.ObservedBlock = block

	if out.EndBlock, err = r.EndBlock(ctx); err != nil {
		return out, err
	}
	out.Ended = block >= out.EndBlock

	price, err := r.ClearingPrice(ctx)
	if err != nil {
		return out, err
	}
	out.ClearingPrice = price.Dec()

	raised, err := r.CurrencyRaised(ctx)
	if err != nil {
		return out, err
	}
	out.CurrencyRaised = raised.Dec()
	return out, nil
}

func (r *Remote) call(ctx context.Context, method string) ([]interface{}, error) {
	parsed, err := AuctionABI()
	if err != nil {
		return nil, fmt.Errorf("parse auction abi: %w", err)
	}
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &r.address, Data: data}
	resp, err := r.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

func (r *Remote) callUint256(ctx context.Context, method string) (*uint256.Int, error) {
	values, err := r.call(ctx, method)
	if err != nil {
		return nil, err
	}
	v, err := asUint256(values[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return v, nil
}

func (r *Remote) callAddress(ctx context.Context, method string) (common.Address, error) {
	values, err := r.call(ctx, method)
	if err != nil {
		return common.Address{}, err
	}
	switch v := values[0].(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("%s: unsupported address type %T", method, values[0])
	}
}

func asUint256(value interface{}) (*uint256.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		out, overflow := uint256.FromBig(v)
		if overflow || v.Sign() < 0 {
			return nil, fmt.Errorf("value %s out of range", v.String())
		}
		return out, nil
	case uint8:
		return uint256.NewInt(uint64(v)), nil
	case uint16:
		return uint256.NewInt(uint64(v)), nil
	case uint32:
		return uint256.NewInt(uint64(v)), nil
	case uint64:
		return uint256.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
