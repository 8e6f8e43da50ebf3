package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityLauncher/internal/auction"
	"liquidityLauncher/internal/config"
	"liquidityLauncher/internal/keeper"
	"liquidityLauncher/internal/launcher"
	"liquidityLauncher/internal/ledger"
	"liquidityLauncher/internal/pool"
	"liquidityLauncher/internal/storage"
	"liquidityLauncher/internal/storage/postgres"
	redisstore "liquidityLauncher/internal/storage/redis"
	s3archive "liquidityLauncher/internal/storage/s3"
	"liquidityLauncher/internal/strategy"
	"liquidityLauncher/internal/token"
)

// Well-known addresses of the simulated deployment.
var (
	launcherAddr     = common.HexToAddress("0x1a00000000000000000000000000000000000001")
	tokenFactoryAddr = common.HexToAddress("0x1a00000000000000000000000000000000000002")
	lbpFactoryAddr   = common.HexToAddress("0x1a00000000000000000000000000000000000003")
	auctionsAddr     = common.HexToAddress("0x1a00000000000000000000000000000000000004")
	poolManagerAddr  = common.HexToAddress("0x1a00000000000000000000000000000000000005")
	positionsAddr    = common.HexToAddress("0x1a00000000000000000000000000000000000006")

	currencyAddr   = common.HexToAddress("0x1a000000000000000000000000000000000000c0")
	creatorAddr    = common.HexToAddress("0x1a000000000000000000000000000000000000e0")
	governanceAddr = common.HexToAddress("0x1a000000000000000000000000000000000000e1")
	keeperAddr     = common.HexToAddress("0x1a000000000000000000000000000000000000e2")
)

const currencyDecimals = 18

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	startedAt := time.Now()
	logger = logger.With(zap.String("run_id", runID))

	sim, err := newSimulation(cfg, logger)
	if err != nil {
		return err
	}
	s, err := sim.launch(ctx, runID)
	if err != nil {
		return err
	}
	if err := sim.placeBids(ctx, s); err != nil {
		return err
	}

	sink, state, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	k := sim.newKeeper(runID, s, sink, state)
	if err := k.Run(ctx); err != nil {
		return fmt.Errorf("keeper: %w", err)
	}

	report := k.Report(runID, startedAt)
	if cfg.Storage.S3Bucket != "" {
		archive, err := s3archive.New(ctx, s3archive.Config{
			Endpoint:       cfg.Storage.S3Endpoint,
			Region:         cfg.Storage.S3Region,
			Bucket:         cfg.Storage.S3Bucket,
			Prefix:         cfg.Storage.S3Prefix,
			AccessKey:      cfg.Storage.S3AccessKey,
			SecretKey:      cfg.Storage.S3SecretKey,
			ForcePathStyle: cfg.Storage.S3PathStyle,
		})
		if err != nil {
			return err
		}
		key, err := archive.PutReport(ctx, report)
		if err != nil {
			return fmt.Errorf("archive report: %w", err)
		}
		logger.Info("run report archived", zap.String("bucket", cfg.Storage.S3Bucket), zap.String("key", key))
	}

	sim.logSummary(ctx, s)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(s.Record())
}

// simulation is one launch wired against an in-memory ledger.
type simulation struct {
	cfg      config.SimulateConfig
	logger   *zap.Logger
	ledger   *ledger.Ledger
	auctions *auction.Factory
	lbp      *launcher.LBPFactory
	launcher *launcher.Launcher

	variant  strategy.Variant
	supply   *uint256.Int
	split    uint32
	floorX96 *uint256.Int
	bids     []bid
}

func newSimulation(cfg config.SimulateConfig, logger *zap.Logger) (*simulation, error) {
	variant, err := strategy.ParseVariant(cfg.Variant)
	if err != nil {
		return nil, err
	}
	supply, err := parseUnits(cfg.TotalSupply, cfg.Decimals)
	if err != nil {
		return nil, fmt.Errorf("total supply: %w", err)
	}
	split, err := parseSplit(cfg.AuctionSplit)
	if err != nil {
		return nil, err
	}
	floor, err := priceToQ96(cfg.FloorPrice, cfg.Decimals, currencyDecimals)
	if err != nil {
		return nil, fmt.Errorf("floor price: %w", err)
	}
	bids := make([]bid, 0, len(cfg.Bids))
	for _, raw := range cfg.Bids {
		b, err := parseBid(raw, cfg.Decimals, currencyDecimals)
		if err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	if cfg.BlockStep == 0 {
		return nil, fmt.Errorf("block step must be positive")
	}

	l := ledger.New(cfg.StartBlock)
	manager := pool.NewManager(poolManagerAddr, l, logger)
	auctions := auction.NewFactory(auctionsAddr, l, logger)
	lbp := launcher.NewLBPFactory(lbpFactoryAddr, launcher.LBPDeps{
		Ledger:    l,
		Auctions:  auctions,
		Pools:     manager,
		Positions: pool.NewPositionManager(positionsAddr, manager, l, logger),
	}, logger)

	registry := launcher.NewRegistry()
	if err := registry.Register(lbpFactoryAddr, lbp); err != nil {
		return nil, err
	}

	return &simulation{
		cfg:      cfg,
		logger:   logger,
		ledger:   l,
		auctions: auctions,
		lbp:      lbp,
		launcher: launcher.New(launcherAddr, l, token.NewFactory(tokenFactoryAddr, l, logger), registry, logger),
		variant:  variant,
		supply:   supply,
		split:    split,
		floorX96: floor,
		bids:     bids,
	}, nil
}

// launch creates the token and distributes the whole supply to a new
// strategy. Virtual variants wrap the created token first.
func (sim *simulation) launch(ctx context.Context, runID string) (*strategy.Strategy, error) {
	caps, err := sim.variant.Capabilities()
	if err != nil {
		return nil, err
	}
	salt := crypto.Keccak256Hash([]byte(runID))

	created, err := sim.launcher.CreateToken(ctx, creatorAddr, launcher.TokenSpec{
		Name:          sim.cfg.TokenName,
		Symbol:        sim.cfg.TokenSymbol,
		Decimals:      sim.cfg.Decimals,
		InitialSupply: sim.supply,
		Recipient:     creatorAddr,
	}, salt)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}

	extra, err := auction.EncodeConfig(sim.floorX96)
	if err != nil {
		return nil, err
	}
	configData, err := launcher.EncodeStrategyConfig(launcher.StrategyConfig{
		Currency:                       currencyAddr,
		TokenSplitToAuction:            sim.split,
		MigrationBlock:                 sim.cfg.MigrationBlock,
		SweepBlock:                     sim.cfg.SweepBlock,
		PoolLPFee:                      sim.cfg.PoolFee,
		PoolTickSpacing:                sim.cfg.TickSpacing,
		PositionRecipient:              creatorAddr,
		Operator:                       creatorAddr,
		CreateOneSidedTokenPosition:    sim.cfg.OneSidedToken,
		CreateOneSidedCurrencyPosition: sim.cfg.OneSidedCurrency,
		AuctionStartBlock:              sim.cfg.AuctionStartBlock,
		AuctionEndBlock:                sim.cfg.AuctionEndBlock,
		AuctionSalt:                    salt,
		AuctionExtra:                   extra,
		Variant:                        sim.variant,
		Governance:                     governanceAddr,
	})
	if err != nil {
		return nil, err
	}
	spec := launcher.DistributionSpec{Strategy: lbpFactoryAddr, Amount: sim.supply, ConfigData: configData}

	distributed := created
	if caps.UsesVirtualToken {
		v, err := token.NewVirtual(sim.ledger, crypto.CreateAddress(created, 1), created, creatorAddr)
		if err != nil {
			return nil, err
		}
		sim.lbp.RegisterVirtual(v)
		if err := v.Wrap(creatorAddr, creatorAddr, sim.supply); err != nil {
			return nil, fmt.Errorf("wrap: %w", err)
		}
		predicted, err := sim.launcher.PredictDistribution(creatorAddr, v.Address(), spec, salt)
		if err != nil {
			return nil, err
		}
		if err := v.SetStrategy(creatorAddr, predicted); err != nil {
			return nil, err
		}
		distributed = v.Address()
	}

	dist, err := sim.launcher.DistributeToken(ctx, creatorAddr, distributed, spec, true, salt)
	if err != nil {
		return nil, fmt.Errorf("distribute: %w", err)
	}
	s, ok := sim.lbp.Strategy(dist.Address())
	if !ok {
		return nil, fmt.Errorf("strategy %s not found after distribution", dist.Address().Hex())
	}
	s.SetRunID(runID)

	if caps.RequiresGovernanceApproval && sim.cfg.ApproveMigration {
		if err := s.ApproveMigration(ctx, governanceAddr); err != nil {
			return nil, err
		}
	}

	sim.logger.Info("launch ready",
		zap.String("token", created.Hex()),
		zap.String("distributed", distributed.Hex()),
		zap.String("strategy", s.Address().Hex()),
		zap.String("auction", s.Auction().Address().Hex()),
		zap.String("variant", sim.variant.String()),
	)
	return s, nil
}

// placeBids funds one bidder per configured bid and submits it at the
// auction start block.
func (sim *simulation) placeBids(ctx context.Context, s *strategy.Strategy) error {
	a, ok := sim.auctions.Auction(s.Auction().Address())
	if !ok {
		return fmt.Errorf("auction %s not found", s.Auction().Address().Hex())
	}
	if sim.ledger.BlockNumber() < sim.cfg.AuctionStartBlock {
		sim.ledger.SetBlockNumber(sim.cfg.AuctionStartBlock)
	}
	for i, b := range sim.bids {
		bidder := bidderAddress(i)
		if err := sim.ledger.Mint(currencyAddr, bidder, b.amount); err != nil {
			return err
		}
		id, err := a.Bid(ctx, bidder, b.amount, b.maxPrice)
		if err != nil {
			return fmt.Errorf("bid %d: %w", i, err)
		}
		sim.logger.Debug("bid placed",
			zap.Uint64("id", id),
			zap.String("bidder", bidder.Hex()),
			zap.String("amount", formatUnits(b.amount, currencyDecimals)),
			zap.String("max_price", formatQ96Price(b.maxPrice, sim.cfg.Decimals, currencyDecimals)),
		)
	}
	return nil
}

// newKeeper drives s on a clock that mines BlockStep blocks per poll.
func (sim *simulation) newKeeper(runID string, s *strategy.Strategy, sink storage.Storage, state keeper.StateStore) *keeper.Keeper {
	return keeper.New(keeper.Config{
		Name:         "simulate-" + runID,
		Address:      keeperAddr,
		PollInterval: sim.cfg.PollInterval,
		MaxRetries:   sim.cfg.MaxRetries,
		RetryBackoff: sim.cfg.RetryBackoff,
	}, &ledgerClock{ledger: sim.ledger, step: sim.cfg.BlockStep}, []keeper.Target{s}, sim.lookupAuction, sink, state, sim.logger)
}

func (sim *simulation) lookupAuction(addr common.Address) (keeper.Finalizer, bool) {
	a, ok := sim.auctions.Auction(addr)
	if !ok {
		return nil, false
	}
	return a, true
}

func (sim *simulation) logSummary(ctx context.Context, s *strategy.Strategy) {
	fields := []zap.Field{
		zap.String("strategy", s.Address().Hex()),
		zap.String("lifecycle", s.Lifecycle().String()),
		zap.Int("positions", len(s.PositionIDs())),
	}
	if a := s.Auction(); a != nil {
		if price, err := a.ClearingPrice(ctx); err == nil {
			fields = append(fields, zap.String("clearing_price", formatQ96Price(price, sim.cfg.Decimals, currencyDecimals)))
		}
		if raised, err := a.CurrencyRaised(ctx); err == nil {
			fields = append(fields, zap.String("currency_raised", formatUnits(raised, currencyDecimals)))
		}
	}
	sim.logger.Info("simulation complete", fields...)
}

func bidderAddress(i int) common.Address {
	return common.BigToAddress(big.NewInt(0xb1d0000 + int64(i)))
}

// ledgerClock mines BlockStep blocks per poll after reporting the starting
// height once.
type ledgerClock struct {
	ledger  *ledger.Ledger
	step    uint64
	started bool
}

func (c *ledgerClock) LatestBlockNumber(ctx context.Context) (uint64, error) {
	if !c.started {
		c.started = true
		return c.ledger.LatestBlockNumber(ctx)
	}
	return c.ledger.AdvanceBlocks(c.step), nil
}

// openStorage builds the record sinks and the checkpoint store. Postgres,
// then Redis, then the checkpoint file keep keeper state.
func openStorage(ctx context.Context, cfg config.SimulateConfig, logger *zap.Logger) (storage.Storage, keeper.StateStore, func(), error) {
	sinks := storage.Multi{storage.NewJsonlStorage(cfg.Storage.Out)}
	var state keeper.StateStore
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Storage.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.Storage.PGDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		closers = append(closers, pg.Close)
		if cfg.Storage.PGEnsureSchema {
			if err := pg.EnsureSchema(ctx); err != nil {
				closeAll()
				return nil, nil, nil, err
			}
		}
		sinks = append(sinks, pg)
		state = pg
		logger.Info("postgres storage enabled")
	}

	if cfg.Storage.RedisAddr != "" {
		rs, err := redisstore.New(ctx, redisstore.Config{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
			Prefix:   cfg.Storage.RedisPrefix,
		})
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		closers = append(closers, func() {
			if err := rs.Close(); err != nil {
				logger.Warn("close redis", zap.Error(err))
			}
		})
		sinks = append(sinks, rs)
		if state == nil {
			state = rs
		}
		logger.Info("redis storage enabled", zap.String("addr", cfg.Storage.RedisAddr))
	}

	if state == nil {
		state = keeper.NewFileCheckpointStore(cfg.Checkpoint)
	}
	return sinks, state, closeAll, nil
}
