package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityLauncher/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store provides Postgres persistence for strategies, transitions and keeper
// progress.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Schema returns the DDL EnsureSchema applies.
func Schema() string {
	return schemaSQL
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PutStrategies implements storage.Storage.
func (s *Store) PutStrategies(ctx context.Context, records []model.StrategyRecord) error {
	return s.UpsertStrategies(ctx, records)
}

// PutTransitions implements storage.Storage.
func (s *Store) PutTransitions(ctx context.Context, records []model.TransitionRecord) error {
	return s.InsertTransitions(ctx, records)
}

// UpsertStrategies inserts or updates strategy snapshots. A snapshot never
// replaces a newer one.
func (s *Store) UpsertStrategies(ctx context.Context, records []model.StrategyRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		positionIDs := make([]int64, 0, len(r.PositionIDs))
		for _, id := range r.PositionIDs {
			positionIDs = append(positionIDs, int64(id))
		}
		batch.Queue(`
			INSERT INTO strategies (
				address, variant, lifecycle, token, pool_token, currency,
				total_supply, auction_supply, reserve_supply, migration_block, sweep_block,
				pool_fee, pool_tick_spacing, position_recipient, operator, auction,
				initial_sqrt_price_x96, initial_token_amount, initial_currency_amount, leftover_currency,
				position_ids, migration_approved, updated_block, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,now(),now())
			ON CONFLICT (address)
			DO UPDATE SET
				lifecycle = EXCLUDED.lifecycle,
				auction = EXCLUDED.auction,
				initial_sqrt_price_x96 = EXCLUDED.initial_sqrt_price_x96,
				initial_token_amount = EXCLUDED.initial_token_amount,
				initial_currency_amount = EXCLUDED.initial_currency_amount,
				leftover_currency = EXCLUDED.leftover_currency,
				position_ids = EXCLUDED.position_ids,
				migration_approved = EXCLUDED.migration_approved,
				updated_block = EXCLUDED.updated_block,
				updated_at = now()
			WHERE strategies.updated_block <= EXCLUDED.updated_block
		`,
			r.Address,
			r.Variant,
			r.Lifecycle,
			r.Token,
			r.PoolToken,
			r.Currency,
			r.TotalSupply,
			r.AuctionSupply,
			r.ReserveSupply,
			int64(r.MigrationBlock),
			int64(r.SweepBlock),
			int32(r.PoolFee),
			r.PoolTickSpacing,
			r.PositionRecipient,
			r.Operator,
			nullable(r.Auction),
			nullable(r.InitialSqrtPriceX96),
			nullable(r.InitialTokenAmount),
			nullable(r.InitialCurrencyAmount),
			nullable(r.LeftoverCurrency),
			positionIDs,
			r.MigrationApproved,
			int64(r.UpdatedBlock),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertTransitions inserts transition records. Records already stored are
// skipped.
func (s *Store) InsertTransitions(ctx context.Context, records []model.TransitionRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		details := r.Details
		if details == nil {
			details = map[string]string{}
		}
		encoded, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
		batch.Queue(`
			INSERT INTO strategy_transitions (
				id, run_id, strategy, variant, from_state, to_state, block_number, caller, details, recorded_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (id) DO NOTHING
		`,
			r.ID,
			nullable(r.RunID),
			r.Strategy,
			r.Variant,
			r.From,
			r.To,
			int64(r.BlockNumber),
			nullable(r.Caller),
			encoded,
			r.RecordedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last processed block for a keeper name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM keeper_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}

// SaveState upserts the last processed block for a keeper name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO keeper_state (name, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, name, int64(block))
	return err
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
