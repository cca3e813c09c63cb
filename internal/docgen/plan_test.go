package docgen

import (
	"errors"
	"strings"
	"testing"

	errs "github.com/atelierhq/atelier-backend/internal/pkg/errors"
)

func chunkOfTokens(name string, tokens int) ContentChunk {
	text := strings.Repeat("x", tokens*charsPerToken)
	return ContentChunk{Name: name, Text: text, Priority: PriorityFor(name), EstimatedTokens: EstimateTokens(text)}
}

func testConfig() Config {
	return Config{ContextLimit: 1_000, HierarchicalThreshold: 3_000, GroundingTargetTokens: 100, MergeWithModel: false}
}

func TestPlanStrategyNoneWhenUnderLimit(t *testing.T) {
	cfg := testConfig()
	chunks := []ContentChunk{
		chunkOfTokens(VarProjectSummary, 400),
		chunkOfTokens(VarTemplatePrompt, 600),
	}
	plan := Plan(chunks, cfg)
	if plan.Strategy != StrategyNone {
		t.Fatalf("expected none at exactly the limit, got %s", plan.Strategy)
	}
	if plan.TotalEstimatedTokens != 1_000 {
		t.Fatalf("expected 1000 tokens, got %d", plan.TotalEstimatedTokens)
	}
}

func TestPlanStrategySequentialJustOverLimit(t *testing.T) {
	cfg := testConfig()
	chunks := []ContentChunk{
		chunkOfTokens(VarProjectSummary, 400),
		chunkOfTokens(VarTemplatePrompt, 601),
	}
	plan := Plan(chunks, cfg)
	if plan.Strategy != StrategySequential {
		t.Fatalf("expected sequential at limit+1, got %s", plan.Strategy)
	}
}

func TestPlanStrategyHierarchicalAboveThreshold(t *testing.T) {
	cfg := testConfig()
	chunks := []ContentChunk{
		chunkOfTokens(VarProjectSummary, 500),
		chunkOfTokens(VarQuestionAnswers, 2_600),
	}
	plan := Plan(chunks, cfg)
	if plan.Strategy != StrategyHierarchical {
		t.Fatalf("expected hierarchical above threshold, got %s", plan.Strategy)
	}
}

func TestPlanNeverRejectsOversizedContent(t *testing.T) {
	cfg := testConfig()
	plan := Plan([]ContentChunk{chunkOfTokens(VarFileContent, 1_000_000)}, cfg)
	if plan.Strategy != StrategyHierarchical {
		t.Fatalf("oversized content should plan hierarchical, got %s", plan.Strategy)
	}
}

func TestConfigValidate(t *testing.T) {
	bad := Config{ContextLimit: 1_000, HierarchicalThreshold: 1_000}
	err := bad.Validate()
	if err == nil {
		t.Fatal("expected validation error when threshold == limit")
	}
	var pe *errs.PlanningError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PlanningError, got %T", err)
	}

	if err := (Config{ContextLimit: 0, HierarchicalThreshold: 10}).Validate(); err == nil {
		t.Fatal("expected validation error for zero context limit")
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestGroundingBudgetDefault(t *testing.T) {
	cfg := Config{ContextLimit: 900, HierarchicalThreshold: 2_000}
	if got := cfg.groundingBudget(); got != 300 {
		t.Fatalf("expected ContextLimit/3 = 300, got %d", got)
	}
	cfg.GroundingBudget = 123
	if got := cfg.groundingBudget(); got != 123 {
		t.Fatalf("explicit grounding budget ignored, got %d", got)
	}
}
