package storage

import (
	"context"

	"liquidityLauncher/internal/model"
)

// Storage defines a sink for launch records.
type Storage interface {
	PutTransitions(ctx context.Context, records []model.TransitionRecord) error
	PutStrategies(ctx context.Context, records []model.StrategyRecord) error
}
