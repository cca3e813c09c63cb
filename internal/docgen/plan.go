package docgen

import (
	"fmt"

	errs "github.com/atelierhq/atelier-backend/internal/pkg/errors"
)

type Strategy string

const (
	StrategyNone         Strategy = "none"
	StrategySequential   Strategy = "sequential"
	StrategyHierarchical Strategy = "hierarchical"
)

// Config carries the hand-tuned token budgets as explicit configuration.
// ContextLimit reserves headroom below the model ceiling; the hierarchical
// threshold sits well above it so sequential passes stay the common case.
type Config struct {
	ContextLimit          int
	HierarchicalThreshold int

	// Phase-1 sub-budget for the grounding summary input. Zero means
	// ContextLimit/3.
	GroundingBudget int
	// Target size of the grounding summary itself.
	GroundingTargetTokens int

	// When false, pass/batch outputs are combined by deterministic
	// concatenation instead of a final merge call.
	MergeWithModel bool
}

func DefaultConfig() Config {
	return Config{
		ContextLimit:          100_000,
		HierarchicalThreshold: 260_000,
		GroundingTargetTokens: 2_000,
		MergeWithModel:        true,
	}
}

func (c Config) Validate() error {
	if c.ContextLimit <= 0 {
		return errs.NewPlanningError(fmt.Sprintf("context limit must be positive, got %d", c.ContextLimit))
	}
	if c.HierarchicalThreshold <= c.ContextLimit {
		return errs.NewPlanningError(fmt.Sprintf("hierarchical threshold (%d) must exceed context limit (%d)", c.HierarchicalThreshold, c.ContextLimit))
	}
	if c.GroundingBudget < 0 || c.GroundingTargetTokens < 0 {
		return errs.NewPlanningError("grounding budgets must not be negative")
	}
	return nil
}

func (c Config) groundingBudget() int {
	if c.GroundingBudget > 0 {
		return c.GroundingBudget
	}
	return c.ContextLimit / 3
}

// ContextPlan is the planner's verdict: the ordered chunks, their summed
// cost, and the strategy that cost demands.
type ContextPlan struct {
	TotalEstimatedTokens int
	ContextLimit         int
	Strategy             Strategy
	Chunks               []ContentChunk
}

// Plan sums chunk estimates against the configured budgets. Oversized
// content is never rejected; it only changes how many generation calls the
// assembler makes.
func Plan(chunks []ContentChunk, cfg Config) ContextPlan {
	total := 0
	for _, ch := range chunks {
		total += ch.EstimatedTokens
	}
	strategy := StrategyNone
	switch {
	case total <= cfg.ContextLimit:
		strategy = StrategyNone
	case total <= cfg.HierarchicalThreshold:
		strategy = StrategySequential
	default:
		strategy = StrategyHierarchical
	}
	return ContextPlan{
		TotalEstimatedTokens: total,
		ContextLimit:         cfg.ContextLimit,
		Strategy:             strategy,
		Chunks:               chunks,
	}
}
