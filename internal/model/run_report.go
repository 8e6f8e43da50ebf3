package model

// RunReport summarizes one keeper or simulation run.
type RunReport struct {
	RunID       string             `json:"run_id"`
	StartedAt   string             `json:"started_at"`
	FinishedAt  string             `json:"finished_at"`
	StartBlock  uint64             `json:"start_block"`
	EndBlock    uint64             `json:"end_block"`
	Strategies  []StrategyRecord   `json:"strategies"`
	Transitions []TransitionRecord `json:"transitions"`
}
