package docgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/atelierhq/atelier-backend/internal/logger"
	errs "github.com/atelierhq/atelier-backend/internal/pkg/errors"
)

type recordedCall struct {
	System string
	User   string
}

// stubGenerator echoes its prompt back unless an override or failure is
// scripted for a given call index.
type stubGenerator struct {
	calls     []recordedCall
	overrides map[int]string
	failAt    int
	failErr   error
}

func newStubGenerator() *stubGenerator {
	return &stubGenerator{failAt: -1, overrides: map[int]string{}}
}

func (s *stubGenerator) GenerateText(ctx context.Context, system, user string) (string, error) {
	idx := len(s.calls)
	s.calls = append(s.calls, recordedCall{System: system, User: user})
	if s.failAt >= 0 && idx == s.failAt {
		if s.failErr != nil {
			return "", s.failErr
		}
		return "", errors.New("quota exceeded")
	}
	if out, ok := s.overrides[idx]; ok {
		return out, nil
	}
	return user, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

// markedText returns text of exactly tokens estimated tokens that starts
// with a traceable marker.
func markedText(marker string, tokens int) string {
	filler := tokens*charsPerToken - len(marker)
	if filler < 0 {
		filler = 0
	}
	return marker + strings.Repeat("x", filler)
}

func newTestGenerator(t *testing.T, stub *stubGenerator, cfg Config) *Generator {
	t.Helper()
	gen, err := NewGenerator(testLogger(t), stub, cfg)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return gen
}

func TestScenarioSinglePass(t *testing.T) {
	stub := newStubGenerator()
	gen := newTestGenerator(t, stub, Config{ContextLimit: 1_000, HierarchicalThreshold: 3_000, MergeWithModel: false})

	named := []NamedText{{Name: VarProjectSummary, Text: markedText("[SUMMARY]", 50)}}
	out, plan, err := gen.GenerateWithPlan(context.Background(), named, markedText("[TEMPLATE]", 50))
	if err != nil {
		t.Fatalf("GenerateWithPlan: %v", err)
	}
	if plan.Strategy != StrategyNone {
		t.Fatalf("expected strategy none, got %s", plan.Strategy)
	}
	if len(stub.calls) != 1 {
		t.Fatalf("expected a single generation call, got %d", len(stub.calls))
	}
	if !strings.Contains(out, "[SUMMARY]") || !strings.Contains(out, "[TEMPLATE]") {
		t.Fatalf("single pass output lost a chunk: %q", out[:80])
	}
}

func TestSequentialRoundTrip(t *testing.T) {
	stub := newStubGenerator()
	gen := newTestGenerator(t, stub, Config{ContextLimit: 1_000, HierarchicalThreshold: 3_000, MergeWithModel: false})

	named := []NamedText{
		{Name: VarProjectSummary, Text: markedText("[PS]", 400)},
		{Name: VarQuestionAnswers, Text: markedText("[QA]", 800)},
	}
	out, plan, err := gen.GenerateWithPlan(context.Background(), named, markedText("[TP]", 5))
	if err != nil {
		t.Fatalf("GenerateWithPlan: %v", err)
	}
	if plan.Strategy != StrategySequential {
		t.Fatalf("expected sequential, got %s", plan.Strategy)
	}
	if len(stub.calls) != 2 {
		t.Fatalf("expected two passes, got %d calls", len(stub.calls))
	}
	for _, marker := range []string{"[PS]", "[TP]", "[QA]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("sequential output lost %s", marker)
		}
	}
	// Pass 2 must carry only an excerpt of pass 1, not its full text.
	if !strings.Contains(stub.calls[1].User, "Continuity reference") {
		t.Fatal("pass 2 prompt missing continuity reference")
	}
	if strings.Contains(stub.calls[1].User, markedText("[PS]", 400)) {
		t.Fatal("pass 2 prompt carries the full pass 1 output")
	}
}

func TestSequentialPassFailureAbortsRun(t *testing.T) {
	stub := newStubGenerator()
	stub.failAt = 1
	gen := newTestGenerator(t, stub, Config{ContextLimit: 1_000, HierarchicalThreshold: 3_000, MergeWithModel: false})

	named := []NamedText{
		{Name: VarProjectSummary, Text: markedText("[PS]", 400)},
		{Name: VarQuestionAnswers, Text: markedText("[QA]", 800)},
	}
	out, err := gen.GenerateDocument(context.Background(), named, "template")
	if err == nil {
		t.Fatal("expected pass 2 failure to abort the run")
	}
	if out != "" {
		t.Fatalf("partial output returned on failure: %q", out)
	}
	ge, ok := errs.AsGenerationError(err)
	if !ok {
		t.Fatalf("expected GenerationError, got %T", err)
	}
	if ge.Phase != "sequential_pass_2" {
		t.Fatalf("failure attributed to %q, want sequential_pass_2", ge.Phase)
	}
}

func TestHierarchicalLargeProject(t *testing.T) {
	stub := newStubGenerator()
	stub.overrides[0] = "GROUNDING-SUMMARY"
	cfg := Config{ContextLimit: 100_000, HierarchicalThreshold: 130_000, GroundingTargetTokens: 2_000, MergeWithModel: false}
	gen := newTestGenerator(t, stub, cfg)

	var phases []string
	gen.SetProgressFunc(func(ev ProgressEvent) { phases = append(phases, ev.Phase) })

	named := []NamedText{
		{Name: VarProjectSummary, Text: markedText("[PS]", 5_000)},
		{Name: VarQuestionAnswers, Text: markedText("[QA]", 60_000)},
		{Name: VarStakeholderProfiles, Text: markedText("[SP]", 30_000)},
		{Name: VarFileContent, Text: markedText("[FC]", 40_000)},
		{Name: VarQuestionsList, Text: markedText("[QL]", 8_000)},
		{Name: VarMetadata, Text: markedText("[MD]", 2_000)},
	}
	out, plan, err := gen.GenerateWithPlan(context.Background(), named, markedText("[TP]", 230))
	if err != nil {
		t.Fatalf("GenerateWithPlan: %v", err)
	}
	if plan.Strategy != StrategyHierarchical {
		t.Fatalf("expected hierarchical, got %s", plan.Strategy)
	}
	if plan.TotalEstimatedTokens != 145_230 {
		t.Fatalf("expected 145230 estimated tokens, got %d", plan.TotalEstimatedTokens)
	}

	// Phase 1 sees only the two top-priority chunks: question_answers does
	// not fit the grounding sub-budget, so packing stops there.
	grounding := stub.calls[0].User
	if !strings.Contains(grounding, "[PS]") || !strings.Contains(grounding, "[TP]") {
		t.Fatal("grounding prompt missing a top-priority chunk")
	}
	if strings.Contains(grounding, "[QA]") || strings.Contains(grounding, "[MD]") {
		t.Fatal("grounding prompt leaked a detail chunk")
	}

	// Two detail batches in priority order, each carrying the summary.
	if len(stub.calls) != 3 {
		t.Fatalf("expected grounding + 2 batches = 3 calls, got %d", len(stub.calls))
	}
	batch1, batch2 := stub.calls[1].User, stub.calls[2].User
	for _, c := range []string{batch1, batch2} {
		if !strings.Contains(c, "GROUNDING-SUMMARY") {
			t.Fatal("batch prompt missing grounding summary")
		}
	}
	if !strings.Contains(batch1, "[QA]") || !strings.Contains(batch1, "[SP]") || strings.Contains(batch1, "[FC]") {
		t.Fatal("batch 1 should cover question_answers + stakeholder_profiles only")
	}
	for _, marker := range []string{"[FC]", "[QL]", "[MD]"} {
		if !strings.Contains(batch2, marker) {
			t.Fatalf("batch 2 missing %s", marker)
		}
	}

	// Priority order survives the merge: batch 1 content before batch 2.
	if strings.Index(out, "[QA]") > strings.Index(out, "[FC]") {
		t.Fatal("lower-priority content merged ahead of higher-priority content")
	}

	wantPhases := []string{"hierarchical_grounding", "hierarchical_batch_1", "hierarchical_batch_2", "hierarchical_merge"}
	if len(phases) != len(wantPhases) {
		t.Fatalf("progress phases = %v", phases)
	}
	for i, want := range wantPhases {
		if phases[i] != want {
			t.Fatalf("phase %d = %s, want %s", i, phases[i], want)
		}
	}
}

func TestHierarchicalSubCallFailureAborts(t *testing.T) {
	stub := newStubGenerator()
	stub.overrides[0] = "SUMMARY"
	stub.failAt = 2
	cfg := Config{ContextLimit: 1_000, HierarchicalThreshold: 2_000, GroundingTargetTokens: 100, MergeWithModel: false}
	gen := newTestGenerator(t, stub, cfg)

	named := []NamedText{
		{Name: VarProjectSummary, Text: markedText("[PS]", 100)},
		{Name: VarQuestionAnswers, Text: markedText("[QA]", 900)},
		{Name: VarFileContent, Text: markedText("[FC]", 900)},
		{Name: VarMetadata, Text: markedText("[MD]", 300)},
	}
	out, err := gen.GenerateDocument(context.Background(), named, "tp")
	if err == nil {
		t.Fatal("expected batch failure to abort the run")
	}
	if out != "" {
		t.Fatalf("partial output returned: %q", out)
	}
	ge, ok := errs.AsGenerationError(err)
	if !ok || !strings.HasPrefix(ge.Phase, "hierarchical_batch_") {
		t.Fatalf("failure attributed to %v", err)
	}
}

func TestGenerateDocumentIdempotent(t *testing.T) {
	named := []NamedText{
		{Name: VarProjectSummary, Text: markedText("[PS]", 400)},
		{Name: VarQuestionAnswers, Text: markedText("[QA]", 800)},
	}
	run := func() string {
		stub := newStubGenerator()
		gen := newTestGenerator(t, stub, Config{ContextLimit: 1_000, HierarchicalThreshold: 3_000, MergeWithModel: false})
		out, err := gen.GenerateDocument(context.Background(), named, "template")
		if err != nil {
			t.Fatalf("GenerateDocument: %v", err)
		}
		return out
	}
	if run() != run() {
		t.Fatal("identical inputs with a deterministic generator produced different documents")
	}
}

func TestGenerateDocumentCancellation(t *testing.T) {
	stub := newStubGenerator()
	gen := newTestGenerator(t, stub, Config{ContextLimit: 1_000, HierarchicalThreshold: 3_000, MergeWithModel: false})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gen.GenerateDocument(ctx, []NamedText{{Name: VarProjectSummary, Text: "s"}}, "t")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(stub.calls) != 0 {
		t.Fatalf("generation call made after cancellation: %d", len(stub.calls))
	}
}

func TestPackPasses(t *testing.T) {
	chunks := []ContentChunk{
		{Name: "a", EstimatedTokens: 400},
		{Name: "b", EstimatedTokens: 500},
		{Name: "c", EstimatedTokens: 300},
		{Name: "d", EstimatedTokens: 2_000},
	}
	passes := packPasses(chunks, 1_000)
	if len(passes) != 3 {
		t.Fatalf("expected 3 passes, got %d", len(passes))
	}
	if len(passes[0]) != 2 || passes[0][1].Name != "b" {
		t.Fatalf("pass 1 = %v", chunkNames(passes[0]))
	}
	// An oversized chunk still gets a pass of its own.
	if len(passes[2]) != 1 || passes[2][0].Name != "d" {
		t.Fatalf("pass 3 = %v", chunkNames(passes[2]))
	}
}

func TestSplitGroundingStopsAtFirstMisfit(t *testing.T) {
	chunks := BuildChunks([]NamedText{
		{Name: VarProjectSummary, Text: markedText("s", 50)},
		{Name: VarTemplatePrompt, Text: markedText("t", 10)},
		{Name: VarQuestionAnswers, Text: markedText("q", 500)},
		{Name: VarMetadata, Text: markedText("m", 5)},
	})
	grounding, detail := splitGrounding(chunks, 100)
	if len(grounding) != 2 {
		t.Fatalf("grounding = %v", chunkNames(grounding))
	}
	// metadata would fit the leftover budget, but packing must not jump
	// over question_answers.
	if fmt.Sprint(chunkNames(detail)) != fmt.Sprint([]string{VarQuestionAnswers, VarMetadata}) {
		t.Fatalf("detail = %v", chunkNames(detail))
	}
}
