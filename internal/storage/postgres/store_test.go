package postgres

import (
	"context"
	"os"
	"strings"
	"testing"

	"liquidityLauncher/internal/model"
)

func TestSchemaDeclaresTables(t *testing.T) {
	for _, table := range []string{"strategies", "strategy_transitions", "keeper_state"} {
		if !strings.Contains(Schema(), "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Fatalf("schema is missing table %s", table)
		}
	}
}

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestNullable(t *testing.T) {
	if nullable("") != nil {
		t.Fatalf("empty string should map to NULL")
	}
	if v := nullable("0x1"); v == nil || *v != "0x1" {
		t.Fatalf("unexpected value: %v", v)
	}
}

// TestStoreRoundTrip runs against a live database when LAUNCHER_TEST_PG_DSN
// is set.
func TestStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("LAUNCHER_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("LAUNCHER_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}

	rec := model.StrategyRecord{
		Address:           "0x00000000000000000000000000000000000000a1",
		Variant:           "basic",
		Lifecycle:         "auction_active",
		Token:             "0x00000000000000000000000000000000000000b1",
		PoolToken:         "0x00000000000000000000000000000000000000b1",
		Currency:          "0x0000000000000000000000000000000000000000",
		TotalSupply:       "1000",
		AuctionSupply:     "500",
		ReserveSupply:     "500",
		MigrationBlock:    200,
		SweepBlock:        300,
		PoolFee:           3000,
		PoolTickSpacing:   60,
		PositionRecipient: "0x00000000000000000000000000000000000000c1",
		Operator:          "0x00000000000000000000000000000000000000d1",
		UpdatedBlock:      100,
	}
	if err := store.PutStrategies(ctx, []model.StrategyRecord{rec}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.PutTransitions(ctx, []model.TransitionRecord{{
		ID:          "7b4c8f3e-1d2a-4c5b-8e9f-0a1b2c3d4e5f",
		Strategy:    rec.Address,
		Variant:     rec.Variant,
		From:        "awaiting_tokens",
		To:          "auction_active",
		BlockNumber: 100,
		RecordedAt:  "2024-01-01T00:00:00Z",
	}}); err != nil {
		t.Fatalf("insert transitions: %v", err)
	}

	if err := store.SaveState(ctx, "test-keeper", 123); err != nil {
		t.Fatalf("save state: %v", err)
	}
	block, ok, err := store.LoadState(ctx, "test-keeper")
	if err != nil || !ok || block != 123 {
		t.Fatalf("load state: %d %v %v", block, ok, err)
	}
}
