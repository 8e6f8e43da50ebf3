package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type stubCaller struct {
	parsed  abi.ABI
	results map[string]interface{}
}

func (s stubCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	for name, method := range s.parsed.Methods {
		if !bytes.Equal(msg.Data[:4], method.ID) {
			continue
		}
		if value, ok := s.results[name]; ok {
			return method.Outputs.Pack(value)
		}
	}
	return nil, errors.New("execution reverted")
}

func TestFetchTokenMetaStringABI(t *testing.T) {
	parsed, err := erc20ABIStringInstance()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	caller := stubCaller{parsed: parsed, results: map[string]interface{}{
		"decimals": uint8(6),
		"symbol":   "USDC",
		"name":     "USD Coin",
	}}

	token := common.HexToAddress("0x00000000000000000000000000000000000000c0")
	meta, err := FetchTokenMeta(context.Background(), caller, token, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if meta.Decimals != 6 || meta.Symbol != "USDC" || meta.Name != "USD Coin" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if meta.Address != token.Hex() {
		t.Fatalf("address mismatch: %s", meta.Address)
	}
}

func TestFetchTokenMetaNative(t *testing.T) {
	meta, err := FetchTokenMeta(context.Background(), nil, common.Address{}, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if meta.Decimals != 18 || meta.Symbol != "ETH" {
		t.Fatalf("unexpected native meta: %+v", meta)
	}
}

func TestFetchTokenMetaMissingDecimals(t *testing.T) {
	parsed, err := erc20ABIStringInstance()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	caller := stubCaller{parsed: parsed, results: map[string]interface{}{}}
	if _, err := FetchTokenMeta(context.Background(), caller, common.HexToAddress("0x01"), nil); err == nil {
		t.Fatalf("expected error without decimals")
	}
}
