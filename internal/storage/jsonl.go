package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"liquidityLauncher/internal/model"
)

const (
	TransitionsFile = "transitions.jsonl"
	StrategiesFile  = "strategies.jsonl"
)

// JsonlStorage appends records as JSON lines under a directory: one file for
// transitions and one for strategy snapshots. Transitions already in the file
// are skipped, so a retried batch is written once.
type JsonlStorage struct {
	dir string
	mu  sync.Mutex

	// written holds transition ids in the file, loaded on first use.
	written map[string]struct{}
}

func NewJsonlStorage(dir string) *JsonlStorage {
	return &JsonlStorage{dir: dir}
}

func (s *JsonlStorage) TransitionsPath() string {
	return filepath.Join(s.dir, TransitionsFile)
}

func (s *JsonlStorage) StrategiesPath() string {
	return filepath.Join(s.dir, StrategiesFile)
}

// PutTransitions appends transition records not yet in the file.
func (s *JsonlStorage) PutTransitions(_ context.Context, records []model.TransitionRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.written == nil {
		existing, err := ReadTransitions(s.TransitionsPath())
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		s.written = make(map[string]struct{}, len(existing))
		for _, r := range existing {
			s.written[r.ID] = struct{}{}
		}
	}

	fresh := make([]model.TransitionRecord, 0, len(records))
	for _, r := range records {
		if _, ok := s.written[r.ID]; ok {
			continue
		}
		fresh = append(fresh, r)
	}
	if err := appendLines(s.TransitionsPath(), fresh); err != nil {
		return err
	}
	for _, r := range fresh {
		s.written[r.ID] = struct{}{}
	}
	return nil
}

// PutStrategies appends strategy snapshots. Readers keep the last line per
// address.
func (s *JsonlStorage) PutStrategies(_ context.Context, records []model.StrategyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendLines(s.StrategiesPath(), records)
}

func appendLines[T any](path string, records []T) error {
	if len(records) == 0 {
		return nil
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// ReadTransitions loads every transition record in a JSONL file.
func ReadTransitions(path string) ([]model.TransitionRecord, error) {
	return readLines[model.TransitionRecord](path)
}

// ReadStrategies loads every strategy snapshot in a JSONL file.
func ReadStrategies(path string) ([]model.StrategyRecord, error) {
	return readLines[model.StrategyRecord](path)
}

func readLines[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out []T
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var record T
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	return out, nil
}
