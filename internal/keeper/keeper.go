package keeper

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityLauncher/internal/model"
	"liquidityLauncher/internal/storage"
	"liquidityLauncher/internal/strategy"
)

// BlockSource reports the current block height.
type BlockSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// Target is a launch strategy the keeper drives.
type Target interface {
	Address() common.Address
	Lifecycle() strategy.Lifecycle
	Params() strategy.Params
	Auction() strategy.Auction
	Migrate(ctx context.Context) error
	Sweep(ctx context.Context, caller common.Address) error
	Record() model.StrategyRecord
	DrainTransitions() []model.TransitionRecord
}

// Finalizer settles an auction and hands the outcome to its strategy.
type Finalizer interface {
	Finalize(ctx context.Context) error
}

// AuctionLookup resolves the auctions the keeper can finalize. Auctions it
// cannot resolve are left to someone else.
type AuctionLookup func(addr common.Address) (Finalizer, bool)

// Config holds runtime settings for the keeper.
type Config struct {
	// Name keys the keeper's checkpoint.
	Name string
	// Address is the caller recorded for the keeper's own transitions.
	Address      common.Address
	PollInterval time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Keeper advances strategies through their block gates: it finalizes ended
// auctions, migrates at the migration block and sweeps what could not
// migrate once the sweep block is reached.
type Keeper struct {
	cfg      Config
	source   BlockSource
	targets  []Target
	auctions AuctionLookup
	storage  storage.Storage
	state    StateStore
	logger   *zap.Logger

	unflushed []model.TransitionRecord
	history   []model.TransitionRecord
	firstSeen uint64
	lastSeen  uint64
}

func New(cfg Config, source BlockSource, targets []Target, auctions AuctionLookup, sink storage.Storage, state StateStore, logger *zap.Logger) *Keeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "keeper"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Keeper{
		cfg:      cfg,
		source:   source,
		targets:  targets,
		auctions: auctions,
		storage:  sink,
		state:    state,
		logger:   logger.With(zap.String("keeper", cfg.Name)),
	}
}

// Run polls the block source until every target is terminal or ctx ends.
func (k *Keeper) Run(ctx context.Context) error {
	if k.source == nil {
		return fmt.Errorf("block source is nil")
	}
	if len(k.targets) == 0 {
		return fmt.Errorf("at least one strategy is required")
	}

	var last uint64
	var resumed bool
	if k.state != nil {
		block, ok, err := k.state.LoadState(ctx, k.cfg.Name)
		if err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}
		if ok {
			last, resumed = block, true
			k.logger.Info("resume from checkpoint", zap.Uint64("last_processed", block))
		}
	}

	ticker := time.NewTicker(k.cfg.PollInterval)
	defer ticker.Stop()

	for {
		block, err := k.latestBlockWithRetry(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}

		done, err := k.Step(ctx, block)
		if err != nil {
			return err
		}
		if k.state != nil && (!resumed || block > last) {
			if err := k.state.SaveState(ctx, k.cfg.Name, block); err != nil {
				return fmt.Errorf("save checkpoint: %w", err)
			}
			last, resumed = block, true
		}
		if done {
			k.logger.Info("all strategies terminal", zap.Uint64("block", block))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Step evaluates every target at block and persists what changed. It reports
// whether all targets are terminal. Failed transitions are logged and
// re-evaluated on the next step; only persistence errors are returned.
func (k *Keeper) Step(ctx context.Context, block uint64) (bool, error) {
	if k.firstSeen == 0 {
		k.firstSeen = block
	}
	k.lastSeen = block

	done := true
	for _, t := range k.targets {
		k.advance(ctx, t, block)
		if !t.Lifecycle().Terminal() {
			done = false
		}
	}
	if err := k.flush(ctx); err != nil {
		return false, err
	}
	return done, nil
}

func (k *Keeper) advance(ctx context.Context, t Target, block uint64) {
	p := t.Params()
	log := k.logger.With(zap.String("strategy", t.Address().Hex()), zap.Uint64("block", block))

	switch t.Lifecycle() {
	case strategy.AuctionActive:
		if block < p.Auction.EndBlock {
			return
		}
		if err := k.finalize(ctx, t); err != nil {
			log.Warn("finalize failed", zap.String("kind", strategy.KindOf(err).String()), zap.Error(err))
		}
	case strategy.PriceValidated:
		if block < p.MigrationBlock {
			return
		}
		if err := t.Migrate(ctx); err != nil {
			log.Warn("migrate failed", zap.String("kind", strategy.KindOf(err).String()), zap.Error(err))
		}
	}

	if t.Lifecycle().Terminal() || block < p.SweepBlock {
		return
	}
	if err := t.Sweep(ctx, k.cfg.Address); err != nil {
		log.Warn("sweep failed", zap.String("kind", strategy.KindOf(err).String()), zap.Error(err))
	}
}

func (k *Keeper) finalize(ctx context.Context, t Target) error {
	a := t.Auction()
	if a == nil {
		return fmt.Errorf("strategy %s has no auction", t.Address().Hex())
	}
	if k.auctions == nil {
		return nil
	}
	f, ok := k.auctions(a.Address())
	if !ok {
		k.logger.Debug("auction not finalizable by keeper", zap.String("auction", a.Address().Hex()))
		return nil
	}
	return f.Finalize(ctx)
}

func (k *Keeper) flush(ctx context.Context) error {
	var records []model.StrategyRecord
	for _, t := range k.targets {
		drained := t.DrainTransitions()
		if len(drained) == 0 {
			continue
		}
		k.unflushed = append(k.unflushed, drained...)
		records = append(records, t.Record())
	}
	if len(k.unflushed) == 0 {
		return nil
	}

	if k.storage != nil {
		err := withRetry(ctx, k.cfg.MaxRetries, k.cfg.RetryBackoff, retryable, func(ctx context.Context) error {
			return k.storage.PutTransitions(ctx, k.unflushed)
		})
		if err != nil {
			return fmt.Errorf("store transitions: %w", err)
		}
		err = withRetry(ctx, k.cfg.MaxRetries, k.cfg.RetryBackoff, retryable, func(ctx context.Context) error {
			return k.storage.PutStrategies(ctx, records)
		})
		if err != nil {
			return fmt.Errorf("store strategies: %w", err)
		}
	}

	k.logger.Info("transitions stored", zap.Int("transitions", len(k.unflushed)), zap.Int("strategies", len(records)))
	k.history = append(k.history, k.unflushed...)
	k.unflushed = nil
	return nil
}

func (k *Keeper) latestBlockWithRetry(ctx context.Context) (uint64, error) {
	var block uint64
	err := withRetry(ctx, k.cfg.MaxRetries, k.cfg.RetryBackoff, retryable, func(ctx context.Context) error {
		var err error
		block, err = k.source.LatestBlockNumber(ctx)
		if err != nil {
			k.logger.Warn("latest block fetch failed", zap.Error(err))
		}
		return err
	})
	return block, err
}

// Report summarizes what the keeper has stored so far.
func (k *Keeper) Report(runID string, startedAt time.Time) model.RunReport {
	report := model.RunReport{
		RunID:       runID,
		StartedAt:   startedAt.UTC().Format(time.RFC3339Nano),
		FinishedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		StartBlock:  k.firstSeen,
		EndBlock:    k.lastSeen,
		Transitions: append([]model.TransitionRecord(nil), k.history...),
	}
	for _, t := range k.targets {
		report.Strategies = append(report.Strategies, t.Record())
	}
	return report
}
