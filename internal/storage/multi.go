package storage

import (
	"context"

	"golang.org/x/sync/errgroup"

	"liquidityLauncher/internal/model"
)

// Multi writes every batch to all of its sinks concurrently. A write fails if
// any sink fails.
type Multi []Storage

func (m Multi) PutTransitions(ctx context.Context, records []model.TransitionRecord) error {
	if len(records) == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, sink := range m {
		sink := sink
		g.Go(func() error {
			return sink.PutTransitions(ctx, records)
		})
	}
	return g.Wait()
}

func (m Multi) PutStrategies(ctx context.Context, records []model.StrategyRecord) error {
	if len(records) == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, sink := range m {
		sink := sink
		g.Go(func() error {
			return sink.PutStrategies(ctx, records)
		})
	}
	return g.Wait()
}
