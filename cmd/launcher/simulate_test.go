package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"liquidityLauncher/internal/config"
	"liquidityLauncher/internal/storage"
	"liquidityLauncher/internal/strategy"
)

func testSimulateConfig(t *testing.T, variant string) config.SimulateConfig {
	t.Helper()
	dir := t.TempDir()
	return config.SimulateConfig{
		Variant:           variant,
		TokenName:         "Launch Token",
		TokenSymbol:       "LAUNCH",
		Decimals:          18,
		TotalSupply:       "1000000",
		AuctionSplit:      "0.5",
		FloorPrice:        "0.0001",
		Bids:              []string{"150@0.5", "100@0.3", "50@0.1"},
		StartBlock:        90,
		AuctionStartBlock: 100,
		AuctionEndBlock:   200,
		MigrationBlock:    250,
		SweepBlock:        400,
		BlockStep:         10,
		PoolFee:           3000,
		TickSpacing:       60,
		OneSidedToken:     true,
		PollInterval:      time.Millisecond,
		Checkpoint:        filepath.Join(dir, "checkpoint.json"),
		MaxRetries:        1,
		RetryBackoff:      time.Millisecond,
		LogLevel:          "info",
		Storage:           config.StorageConfig{Out: dir},
	}
}

func runTestSimulation(t *testing.T, cfg config.SimulateConfig) (*simulation, *strategy.Strategy) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sim, err := newSimulation(cfg, zap.NewNop())
	require.NoError(t, err)
	s, err := sim.launch(ctx, "run-1")
	require.NoError(t, err)
	require.NoError(t, sim.placeBids(ctx, s))

	sink, state, closeStorage, err := openStorage(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeStorage()

	require.NoError(t, sim.newKeeper("run-1", s, sink, state).Run(ctx))
	return sim, s
}

func TestSimulateBasicMigrates(t *testing.T) {
	cfg := testSimulateConfig(t, "basic")
	sim, s := runTestSimulation(t, cfg)

	require.Equal(t, strategy.Migrated, s.Lifecycle())
	require.NotEmpty(t, s.PositionIDs())
	require.GreaterOrEqual(t, sim.ledger.BlockNumber(), cfg.MigrationBlock)

	raised, err := s.Auction().CurrencyRaised(context.Background())
	require.NoError(t, err)
	require.Equal(t, "300", formatUnits(raised, currencyDecimals))

	transitions, err := storage.ReadTransitions(storage.NewJsonlStorage(cfg.Storage.Out).TransitionsPath())
	require.NoError(t, err)
	require.NotEmpty(t, transitions)
	last := transitions[len(transitions)-1]
	require.Equal(t, strategy.Migrated.String(), last.To)
	require.Equal(t, "run-1", last.RunID)

	records, err := storage.ReadStrategies(storage.NewJsonlStorage(cfg.Storage.Out).StrategiesPath())
	require.NoError(t, err)
	require.NotEmpty(t, records)
}

func TestSimulateGovernedWithoutApprovalSweeps(t *testing.T) {
	cfg := testSimulateConfig(t, "governed")
	sim, s := runTestSimulation(t, cfg)

	require.Equal(t, strategy.Swept, s.Lifecycle())
	require.Empty(t, s.PositionIDs())
	require.GreaterOrEqual(t, sim.ledger.BlockNumber(), cfg.SweepBlock)
	require.True(t, sim.ledger.BalanceOf(currencyAddr, s.Address()).IsZero())
	require.False(t, sim.ledger.BalanceOf(currencyAddr, creatorAddr).IsZero())
}

func TestSimulateGovernedWithApprovalMigrates(t *testing.T) {
	cfg := testSimulateConfig(t, "governed")
	cfg.ApproveMigration = true
	_, s := runTestSimulation(t, cfg)

	require.Equal(t, strategy.Migrated, s.Lifecycle())
	require.True(t, s.MigrationApproved())
}

func TestSimulateVirtualMigrates(t *testing.T) {
	cfg := testSimulateConfig(t, "virtual")
	_, s := runTestSimulation(t, cfg)

	require.Equal(t, strategy.Migrated, s.Lifecycle())
	require.NotEqual(t, s.Params().Token, s.PoolToken())
}

func TestNewSimulationRejectsBadConfig(t *testing.T) {
	for name, mutate := range map[string]func(*config.SimulateConfig){
		"variant":    func(c *config.SimulateConfig) { c.Variant = "dutch" },
		"supply":     func(c *config.SimulateConfig) { c.TotalSupply = "lots" },
		"split":      func(c *config.SimulateConfig) { c.AuctionSplit = "1" },
		"floor":      func(c *config.SimulateConfig) { c.FloorPrice = "0" },
		"bid":        func(c *config.SimulateConfig) { c.Bids = []string{"100"} },
		"block step": func(c *config.SimulateConfig) { c.BlockStep = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := testSimulateConfig(t, "basic")
			mutate(&cfg)
			_, err := newSimulation(cfg, zap.NewNop())
			require.Error(t, err)
		})
	}
}
