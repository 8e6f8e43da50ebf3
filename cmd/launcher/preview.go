package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityLauncher/internal/auction"
	"liquidityLauncher/internal/chain"
	"liquidityLauncher/internal/config"
	"liquidityLauncher/internal/model"
	"liquidityLauncher/internal/pricing"
)

func runPreview(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPreview(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.Auction) {
		return fmt.Errorf("invalid auction address %q", cfg.Auction)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return err
	}
	defer client.Close()

	auctionAddr := common.HexToAddress(cfg.Auction)
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	deployed, err := client.HasCode(ctx, auctionAddr)
	if err != nil {
		return fmt.Errorf("auction code: %w", err)
	}
	if !deployed {
		return fmt.Errorf("auction %s has no code on chain %s", auctionAddr.Hex(), chainID)
	}
	logger.Info("previewing auction", zap.String("auction", auctionAddr.Hex()), zap.String("chain_id", chainID.String()))

	remote := auction.NewRemote(auctionAddr, client)
	outcome, err := remote.Outcome(ctx)
	if err != nil {
		return err
	}

	tokenAddr, err := resolveAddress(ctx, cfg.Token, remote.Token)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	currencyAddr, err := resolveAddress(ctx, cfg.Currency, remote.Currency)
	if err != nil {
		return fmt.Errorf("currency: %w", err)
	}

	var reserve *uint256.Int
	if cfg.ReserveSupply != "" {
		if reserve, err = uint256.FromDecimal(cfg.ReserveSupply); err != nil {
			return fmt.Errorf("reserve supply %q: %w", cfg.ReserveSupply, err)
		}
	} else {
		if reserve, err = remote.TotalSupply(ctx); err != nil {
			return fmt.Errorf("auction supply: %w", err)
		}
		logger.Info("reserve supply defaults to the auction supply", zap.String("reserve", reserve.Dec()))
	}

	tokenMeta, err := chain.FetchTokenMeta(ctx, client, tokenAddr, logger)
	if err != nil {
		return fmt.Errorf("token metadata: %w", err)
	}
	currencyMeta, err := chain.FetchTokenMeta(ctx, client, currencyAddr, logger)
	if err != nil {
		return fmt.Errorf("currency metadata: %w", err)
	}

	preview := buildPreview(outcome, tokenMeta, currencyMeta, tokenAddr, currencyAddr, reserve)
	if preview.Error != "" {
		logger.Warn("auction outcome does not validate", zap.String("error", preview.Error))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(preview)
}

func resolveAddress(ctx context.Context, override string, fallback func(context.Context) (common.Address, error)) (common.Address, error) {
	if override == "" {
		return fallback(ctx)
	}
	if !common.IsHexAddress(override) {
		return common.Address{}, fmt.Errorf("invalid address %q", override)
	}
	return common.HexToAddress(override), nil
}

// buildPreview derives the pool a strategy would seed from outcome. Pricing
// failures are reported in the Error field.
func buildPreview(outcome model.AuctionOutcome, tokenMeta, currencyMeta model.TokenMeta, tokenAddr, currencyAddr common.Address, reserve *uint256.Int) model.PricePreview {
	preview := model.PricePreview{
		Outcome:  outcome,
		Token:    tokenMeta,
		Currency: currencyMeta,
	}
	currencyIsCurrency0 := bytes.Compare(currencyAddr.Bytes(), tokenAddr.Bytes()) < 0
	if currencyIsCurrency0 {
		preview.Currency0, preview.Currency1 = currencyAddr.Hex(), tokenAddr.Hex()
	} else {
		preview.Currency0, preview.Currency1 = tokenAddr.Hex(), currencyAddr.Hex()
	}

	price, err := uint256.FromDecimal(outcome.ClearingPrice)
	if err != nil {
		preview.Error = fmt.Sprintf("clearing price %q: %v", outcome.ClearingPrice, err)
		return preview
	}
	raised, err := uint256.FromDecimal(outcome.CurrencyRaised)
	if err != nil {
		preview.Error = fmt.Sprintf("currency raised %q: %v", outcome.CurrencyRaised, err)
		return preview
	}

	res, err := pricing.Validate(pricing.Input{
		ClearingPrice:       price,
		CurrencyRaised:      raised,
		ReserveSupply:       reserve,
		CurrencyIsCurrency0: currencyIsCurrency0,
	})
	if err != nil {
		preview.Error = err.Error()
		return preview
	}
	tick, err := pricing.GetTickAtSqrtPrice(res.SqrtPriceX96)
	if err != nil {
		preview.Error = err.Error()
		return preview
	}

	preview.SqrtPriceX96 = res.SqrtPriceX96.Dec()
	preview.Tick = tick
	preview.TokenAmount = res.TokenAmount.Dec()
	preview.CurrencyAmount = res.CurrencyAmount.Dec()
	preview.LeftoverCurrency = res.LeftoverCurrency.Dec()
	return preview
}
