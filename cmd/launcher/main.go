package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "launcher",
		Short:        "Token launch and liquidity migration toolkit",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a full launch against an in-memory ledger",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("variant", "basic", "strategy variant (basic, governed, virtual, governed_virtual)")
	simulateCmd.Flags().String("token-name", "Launch Token", "token name")
	simulateCmd.Flags().String("token-symbol", "LAUNCH", "token symbol")
	simulateCmd.Flags().Uint8("decimals", 18, "token decimals")
	simulateCmd.Flags().String("total-supply", "1000000", "total supply in whole tokens")
	simulateCmd.Flags().String("auction-split", "0.5", "share of the supply sold in the auction, in (0, 1)")
	simulateCmd.Flags().String("floor-price", "0.0001", "auction floor price, currency per token")
	simulateCmd.Flags().StringSlice("bids", nil, "bids as amount@maxPrice in whole currency units (comma-separated)")
	simulateCmd.Flags().Uint64("start-block", 90, "ledger start block")
	simulateCmd.Flags().Uint64("auction-start", 100, "auction start block")
	simulateCmd.Flags().Uint64("auction-end", 200, "auction end block")
	simulateCmd.Flags().Uint64("migration", 250, "migration block")
	simulateCmd.Flags().Uint64("sweep", 400, "sweep block")
	simulateCmd.Flags().Uint64("block-step", 10, "blocks mined per keeper poll")
	simulateCmd.Flags().Uint32("pool-fee", 3000, "pool LP fee in hundredths of a bip")
	simulateCmd.Flags().Int32("tick-spacing", 60, "pool tick spacing")
	simulateCmd.Flags().Bool("one-sided-token", true, "mint a one-sided token position with leftover reserve")
	simulateCmd.Flags().Bool("one-sided-currency", false, "mint a one-sided currency position with leftover currency")
	simulateCmd.Flags().Bool("approve-migration", false, "approve migration as governance (governed variants)")
	simulateCmd.Flags().Duration("poll-interval", 10*time.Millisecond, "keeper poll interval")
	simulateCmd.Flags().String("checkpoint", "./data/checkpoint.json", "keeper checkpoint file path")
	simulateCmd.Flags().Int("max-retries", 3, "maximum retry attempts for storage writes")
	simulateCmd.Flags().Duration("retry-backoff", 200*time.Millisecond, "initial retry backoff")
	simulateCmd.Flags().String("out", "./data", "output directory for JSONL records")
	simulateCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional)")
	simulateCmd.Flags().String("redis-addr", "", "Redis address (optional)")
	simulateCmd.Flags().String("s3-bucket", "", "S3 bucket for run reports (optional)")
	simulateCmd.Flags().String("s3-endpoint", "", "S3-compatible endpoint (optional)")
	simulateCmd.Flags().String("s3-prefix", "", "S3 key prefix")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview the pool a live auction outcome would seed",
		RunE:  runPreview,
	}

	previewCmd.Flags().String("rpc", "", "RPC URL")
	previewCmd.Flags().String("auction", "", "auction contract address")
	previewCmd.Flags().String("token", "", "token address (defaults to the auction's token)")
	previewCmd.Flags().String("currency", "", "currency address (defaults to the auction's currency)")
	previewCmd.Flags().String("reserve-supply", "", "strategy reserve in token base units (defaults to the auction supply)")
	previewCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(previewCmd)

	addressCmd := &cobra.Command{
		Use:   "address",
		Short: "Derive a CREATE2 deployment address",
		RunE:  runAddress,
	}

	addressCmd.Flags().String("deployer", "", "factory address")
	addressCmd.Flags().String("launcher", "", "launcher address when deploying through the launcher")
	addressCmd.Flags().String("sender", "", "account that supplied the salt")
	addressCmd.Flags().String("salt", "", "32-byte salt")
	addressCmd.Flags().String("init-code-hash", "", "keccak256 of the init code")
	addressCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(addressCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
