package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"liquidityLauncher/internal/model"
)

func sampleTransitions() []model.TransitionRecord {
	return []model.TransitionRecord{
		{
			ID:          "9f0c2a8e-2f0a-4a7e-bb9f-3f0d5d1e0a01",
			Strategy:    "0x1111111111111111111111111111111111111111",
			Variant:     "basic",
			From:        "awaiting_tokens",
			To:          "auction_active",
			BlockNumber: 10,
			RecordedAt:  "2024-01-01T00:00:00Z",
			Details:     map[string]string{"auction": "0x2222222222222222222222222222222222222222"},
		},
		{
			ID:          "9f0c2a8e-2f0a-4a7e-bb9f-3f0d5d1e0a02",
			Strategy:    "0x1111111111111111111111111111111111111111",
			Variant:     "basic",
			From:        "auction_active",
			To:          "price_validated",
			BlockNumber: 150,
			Caller:      "0x2222222222222222222222222222222222222222",
			RecordedAt:  "2024-01-01T00:10:00Z",
		},
	}
}

func TestJsonlTransitionsRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := NewJsonlStorage(dir)
	records := sampleTransitions()

	if err := s.PutTransitions(context.Background(), records[:1]); err != nil {
		t.Fatalf("put first batch: %v", err)
	}
	if err := s.PutTransitions(context.Background(), records[1:]); err != nil {
		t.Fatalf("put second batch: %v", err)
	}
	if err := s.PutTransitions(context.Background(), nil); err != nil {
		t.Fatalf("put empty batch: %v", err)
	}

	got, err := ReadTransitions(s.TransitionsPath())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(records, got) {
		t.Fatalf("round-trip mismatch: %+v != %+v", records, got)
	}
}

func TestJsonlStrategies(t *testing.T) {
	s := NewJsonlStorage(t.TempDir())
	records := []model.StrategyRecord{{
		Address:      "0x1111111111111111111111111111111111111111",
		Lifecycle:    "migrated",
		PositionIDs:  []uint64{1, 2},
		UpdatedBlock: 200,
	}}
	if err := s.PutStrategies(context.Background(), records); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := ReadStrategies(s.StrategiesPath())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(records, got) {
		t.Fatalf("mismatch: %+v != %+v", records, got)
	}
}

func TestReadTransitionsMissingFile(t *testing.T) {
	if _, err := ReadTransitions(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

type memoryStorage struct {
	mu          sync.Mutex
	transitions []model.TransitionRecord
	strategies  []model.StrategyRecord
	err         error
}

func (m *memoryStorage) PutTransitions(_ context.Context, records []model.TransitionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.transitions = append(m.transitions, records...)
	return nil
}

func (m *memoryStorage) PutStrategies(_ context.Context, records []model.StrategyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.strategies = append(m.strategies, records...)
	return nil
}

func TestMultiFansOut(t *testing.T) {
	a, b := &memoryStorage{}, &memoryStorage{}
	multi := Multi{a, b}
	records := sampleTransitions()

	if err := multi.PutTransitions(context.Background(), records); err != nil {
		t.Fatalf("put: %v", err)
	}
	if len(a.transitions) != 2 || len(b.transitions) != 2 {
		t.Fatalf("expected both sinks to receive the batch: %d %d", len(a.transitions), len(b.transitions))
	}

	failing := &memoryStorage{err: errors.New("sink down")}
	err := Multi{a, failing}.PutStrategies(context.Background(), []model.StrategyRecord{{Address: "0x1"}})
	if !errors.Is(err, failing.err) {
		t.Fatalf("expected sink error, got %v", err)
	}
}

func TestJsonlSkipsStoredTransitions(t *testing.T) {
	dir := t.TempDir()
	records := sampleTransitions()

	s := NewJsonlStorage(dir)
	if err := s.PutTransitions(context.Background(), records[:1]); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := s.PutTransitions(context.Background(), records); err != nil {
		t.Fatalf("put again: %v", err)
	}

	reopened := NewJsonlStorage(dir)
	if err := reopened.PutTransitions(context.Background(), records); err != nil {
		t.Fatalf("put after reopen: %v", err)
	}

	got, err := ReadTransitions(s.TransitionsPath())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(records, got) {
		t.Fatalf("expected each transition once, got %+v", got)
	}
}

func TestMultiRetryAfterPartialFailure(t *testing.T) {
	jsonl := NewJsonlStorage(t.TempDir())
	flaky := &memoryStorage{err: errors.New("sink down")}
	multi := Multi{jsonl, flaky}
	records := sampleTransitions()

	if err := multi.PutTransitions(context.Background(), records); err == nil {
		t.Fatalf("expected failure while a sink is down")
	}
	flaky.mu.Lock()
	flaky.err = nil
	flaky.mu.Unlock()
	if err := multi.PutTransitions(context.Background(), records); err != nil {
		t.Fatalf("retry: %v", err)
	}

	got, err := ReadTransitions(jsonl.TransitionsPath())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("expected %d lines after retry, got %d", len(records), len(got))
	}
}
