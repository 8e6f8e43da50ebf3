// Package redis mirrors launch records into Redis: transitions are appended
// to a stream and the latest strategy snapshots are kept in a hash.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"liquidityLauncher/internal/model"
)

const (
	defaultPrefix = "launcher"
	// streamMaxLen bounds the transition stream via XADD MAXLEN ~.
	streamMaxLen int64 = 100000
)

// appendTransition adds a transition to the stream unless its id is already in
// the seen set. KEYS: seen set, stream. ARGV: id, strategy, to, payload, maxlen.
var appendTransition = redis.NewScript(`
if redis.call('SADD', KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call('XADD', KEYS[2], 'MAXLEN', '~', ARGV[5], '*', 'id', ARGV[1], 'strategy', ARGV[2], 'to', ARGV[3], 'payload', ARGV[4])
return 1
`)

// Config holds connection parameters.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store implements storage.Storage on Redis.
type Store struct {
	rdb    *redis.Client
	prefix string
}

// New connects and pings the server.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis: addr is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return NewFromClient(rdb, cfg.Prefix), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) transitionsKey() string { return s.prefix + ":transitions" }
func (s *Store) seenKey() string        { return s.prefix + ":transitions:seen" }
func (s *Store) strategiesKey() string  { return s.prefix + ":strategies" }
func (s *Store) stateKey(name string) string {
	return s.prefix + ":state:" + name
}

// PutTransitions appends records to the transition stream. Records whose id
// was appended before are skipped.
func (s *Store) PutTransitions(ctx context.Context, records []model.TransitionRecord) error {
	if len(records) == 0 {
		return nil
	}
	keys := []string{s.seenKey(), s.transitionsKey()}
	pipe := s.rdb.Pipeline()
	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("redis: marshal transition %s: %w", r.ID, err)
		}
		appendTransition.Eval(ctx, pipe, keys, r.ID, r.Strategy, r.To, payload, streamMaxLen)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: append transitions: %w", err)
	}
	return nil
}

// PutStrategies stores the latest snapshot per strategy address.
func (s *Store) PutStrategies(ctx context.Context, records []model.StrategyRecord) error {
	if len(records) == 0 {
		return nil
	}
	pipe := s.rdb.TxPipeline()
	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("redis: marshal strategy %s: %w", r.Address, err)
		}
		pipe.HSet(ctx, s.strategiesKey(), r.Address, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: put strategies: %w", err)
	}
	return nil
}

// Strategy returns the latest snapshot of a strategy.
func (s *Store) Strategy(ctx context.Context, address string) (model.StrategyRecord, bool, error) {
	data, err := s.rdb.HGet(ctx, s.strategiesKey(), address).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.StrategyRecord{}, false, nil
		}
		return model.StrategyRecord{}, false, fmt.Errorf("redis: get strategy %s: %w", address, err)
	}
	var rec model.StrategyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.StrategyRecord{}, false, fmt.Errorf("redis: unmarshal strategy %s: %w", address, err)
	}
	return rec, true, nil
}

// Transitions reads up to count transitions from the start of the stream.
func (s *Store) Transitions(ctx context.Context, count int64) ([]model.TransitionRecord, error) {
	msgs, err := s.rdb.XRangeN(ctx, s.transitionsKey(), "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: read transitions: %w", err)
	}
	out := make([]model.TransitionRecord, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["payload"].(string)
		if !ok {
			return nil, fmt.Errorf("redis: transition %s has no payload", msg.ID)
		}
		var rec model.TransitionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("redis: unmarshal transition %s: %w", msg.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// LoadState returns the last processed block for a keeper name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	raw, err := s.rdb.Get(ctx, s.stateKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis: load state %s: %w", name, err)
	}
	block, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("redis: parse state %s: %w", name, err)
	}
	return block, true, nil
}

// SaveState stores the last processed block for a keeper name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if err := s.rdb.Set(ctx, s.stateKey(name), strconv.FormatUint(block, 10), 0).Err(); err != nil {
		return fmt.Errorf("redis: save state %s: %w", name, err)
	}
	return nil
}
