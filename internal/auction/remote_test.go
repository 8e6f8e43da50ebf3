package auction

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"liquidityLauncher/internal/pricing"
)

type fakeCaller struct {
	t       *testing.T
	block   uint64
	results map[string]interface{}
}

func (c *fakeCaller) LatestBlockNumber(context.Context) (uint64, error) {
	return c.block, nil
}

func (c *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	parsed, err := AuctionABI()
	require.NoError(c.t, err)
	for name, method := range parsed.Methods {
		if !bytes.Equal(msg.Data[:4], method.ID) {
			continue
		}
		value, ok := c.results[name]
		if !ok {
			return nil, errors.New("execution reverted")
		}
		return method.Outputs.Pack(value)
	}
	return nil, errors.New("unknown selector")
}

func TestRemoteOutcome(t *testing.T) {
	auctionAddr := common.HexToAddress("0x00000000000000000000000000000000000000ab")
	caller := &fakeCaller{
		t:     t,
		block: 250,
		results: map[string]interface{}{
			"clearingPrice":  pricing.Q96.ToBig(),
			"currencyRaised": ether(500).ToBig(),
			"endBlock":       uint64(200),
			"token":          tokenAddr,
		},
	}
	r := NewRemote(auctionAddr, caller)

	out, err := r.Outcome(context.Background())
	require.NoError(t, err)
	require.Equal(t, auctionAddr.Hex(), out.Auction)
	require.Equal(t, pricing.Q96.Dec(), out.ClearingPrice)
	require.Equal(t, ether(500).Dec(), out.CurrencyRaised)
	require.Equal(t, uint64(200), out.EndBlock)
	require.Equal(t, uint64(250), out.ObservedBlock)
	require.True(t, out.Ended)

	token, err := r.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, tokenAddr, token)

	_, err = r.Currency(context.Background())
	require.Error(t, err)

	require.ErrorIs(t, r.SweepCurrency(context.Background(), recipientAddr), ErrReadOnly)
}
