package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/atelierhq/atelier-backend/internal/docgen"
	errs "github.com/atelierhq/atelier-backend/internal/pkg/errors"
	"github.com/atelierhq/atelier-backend/internal/repos"
	"github.com/atelierhq/atelier-backend/internal/sse"
	"github.com/atelierhq/atelier-backend/internal/types"
)

type fixedVariables struct{ named []docgen.NamedText }

func (v fixedVariables) Resolve(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]docgen.NamedText, error) {
	return v.named, nil
}

type scriptedTextGen struct {
	output string
	err    error
	calls  int
}

func (g *scriptedTextGen) GenerateText(ctx context.Context, system, user string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.output, nil
}

type memoryRunRepo struct {
	repos.GenerationRunRepo
	// honorCtx makes writes fail on a cancelled context, matching the real
	// gorm-backed repo.
	honorCtx  bool
	created   *types.GenerationRun
	strategy  string
	phases    []string
	completed bool
	failPhase string
	failMsg   string
}

func (r *memoryRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.GenerationRun) (*types.GenerationRun, error) {
	run.ID = uuid.New()
	r.created = run
	return run, nil
}

func (r *memoryRunRepo) UpdatePlan(ctx context.Context, tx *gorm.DB, id uuid.UUID, strategy string, chunkCount, totalTokens int) error {
	if r.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	r.strategy = strategy
	return nil
}

func (r *memoryRunRepo) UpdatePhase(ctx context.Context, tx *gorm.DB, id uuid.UUID, phase string) error {
	if r.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	r.phases = append(r.phases, phase)
	return nil
}

func (r *memoryRunRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, diagnostics datatypes.JSON) error {
	if r.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	r.completed = true
	return nil
}

func (r *memoryRunRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, phase, msg string) error {
	if r.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	r.failPhase = phase
	r.failMsg = msg
	return nil
}

type memoryDocumentRepo struct {
	repos.GeneratedDocumentRepo
	created *types.GeneratedDocument
}

func (r *memoryDocumentRepo) Create(ctx context.Context, tx *gorm.DB, doc *types.GeneratedDocument) (*types.GeneratedDocument, error) {
	doc.ID = uuid.New()
	r.created = doc
	return doc, nil
}

type fixedTemplateRepo struct {
	repos.DocumentTemplateRepo
	template *types.DocumentTemplate
}

func (r fixedTemplateRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.DocumentTemplate, error) {
	return r.template, nil
}

func newGenerationService(t *testing.T, f *varsFixture, textGen docgen.TextGenerator, runRepo *memoryRunRepo, docRepo *memoryDocumentRepo, template *types.DocumentTemplate) DocumentGenerationService {
	t.Helper()
	log := testLogger(t)
	cfg := docgen.DefaultConfig()
	cfg.MergeWithModel = false
	svc, err := NewDocumentGenerationService(
		nil,
		log,
		fixedVariables{named: []docgen.NamedText{
			{Name: docgen.VarProjectSummary, Text: "A rebrand for a logistics firm."},
			{Name: docgen.VarQuestionAnswers, Text: "Q: Why?\nA: Because."},
		}},
		textGen,
		cfg,
		fixtureProjectRepo{f: f},
		fixedTemplateRepo{template: template},
		runRepo,
		docRepo,
		sse.NewSSEHub(log),
		nil,
	)
	if err != nil {
		t.Fatalf("NewDocumentGenerationService: %v", err)
	}
	return svc
}

func TestGeneratePersistsDocumentAndRun(t *testing.T) {
	f := fullFixture()
	runRepo := &memoryRunRepo{}
	docRepo := &memoryDocumentRepo{}
	textGen := &scriptedTextGen{output: "# Final document"}
	svc := newGenerationService(t, f, textGen, runRepo, docRepo, nil)

	result, err := svc.Generate(context.Background(), GenerateRequest{
		ProjectID:    f.project.ID,
		InlinePrompt: "Write a creative brief.",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Document == nil || result.Document.Content != "# Final document" {
		t.Fatalf("document not persisted: %+v", result.Document)
	}
	if result.Document.Title != "Brand Refresh document" {
		t.Fatalf("unexpected default title: %q", result.Document.Title)
	}
	if !runRepo.completed {
		t.Fatalf("run not marked completed")
	}
	if runRepo.strategy != string(docgen.StrategyNone) {
		t.Fatalf("expected strategy none for small content, got %q", runRepo.strategy)
	}
	if textGen.calls != 1 {
		t.Fatalf("expected 1 generation call, got %d", textGen.calls)
	}
	if len(runRepo.phases) == 0 || runRepo.phases[0] != "single_pass" {
		t.Fatalf("expected single_pass phase recorded, got %v", runRepo.phases)
	}
}

func TestGenerateUsesTemplatePromptAndTitle(t *testing.T) {
	f := fullFixture()
	runRepo := &memoryRunRepo{}
	docRepo := &memoryDocumentRepo{}
	template := &types.DocumentTemplate{ID: uuid.New(), Name: "Creative Brief", PromptText: "Write a creative brief."}
	svc := newGenerationService(t, f, &scriptedTextGen{output: "doc"}, runRepo, docRepo, template)

	result, err := svc.Generate(context.Background(), GenerateRequest{
		ProjectID:  f.project.ID,
		TemplateID: &template.ID,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Document.Title != "Creative Brief - Brand Refresh" {
		t.Fatalf("unexpected title: %q", result.Document.Title)
	}
	if result.Document.TemplateID == nil || *result.Document.TemplateID != template.ID {
		t.Fatalf("template id not carried onto document")
	}
}

func TestGenerateFailureRecordsFailingPhase(t *testing.T) {
	f := fullFixture()
	runRepo := &memoryRunRepo{}
	docRepo := &memoryDocumentRepo{}
	textGen := &scriptedTextGen{err: errors.New("model unavailable")}
	svc := newGenerationService(t, f, textGen, runRepo, docRepo, nil)

	_, err := svc.Generate(context.Background(), GenerateRequest{
		ProjectID:    f.project.ID,
		InlinePrompt: "Write a creative brief.",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if _, ok := errs.AsGenerationError(err); !ok {
		t.Fatalf("expected GenerationError, got %T", err)
	}
	if runRepo.failPhase != "single_pass" {
		t.Fatalf("expected failing phase single_pass, got %q", runRepo.failPhase)
	}
	if runRepo.failMsg == "" {
		t.Fatalf("expected failure message recorded")
	}
	if docRepo.created != nil {
		t.Fatalf("no document should be persisted on failure")
	}
}

// cancellingTextGen simulates the caller going away mid-call: it cancels the
// request context and fails the way a ctx-aware client would.
type cancellingTextGen struct{ cancel context.CancelFunc }

func (g *cancellingTextGen) GenerateText(ctx context.Context, system, user string) (string, error) {
	g.cancel()
	return "", ctx.Err()
}

func TestGenerateCancelledRequestStillMarksRunFailed(t *testing.T) {
	f := fullFixture()
	runRepo := &memoryRunRepo{honorCtx: true}
	docRepo := &memoryDocumentRepo{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := newGenerationService(t, f, &cancellingTextGen{cancel: cancel}, runRepo, docRepo, nil)

	_, err := svc.Generate(ctx, GenerateRequest{
		ProjectID:    f.project.ID,
		InlinePrompt: "Write a creative brief.",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	if runRepo.failPhase != "single_pass" {
		t.Fatalf("run must reach a terminal state after cancellation, got phase %q", runRepo.failPhase)
	}
	if !strings.Contains(runRepo.failMsg, "context canceled") {
		t.Fatalf("failure message should carry the cause: %q", runRepo.failMsg)
	}
	if runRepo.strategy != string(docgen.StrategyNone) {
		t.Fatalf("plan accounting should still be recorded, got %q", runRepo.strategy)
	}
	if runRepo.completed {
		t.Fatalf("cancelled run must not be marked completed")
	}
}

func TestGenerateRequiresTemplateOrPrompt(t *testing.T) {
	f := fullFixture()
	svc := newGenerationService(t, f, &scriptedTextGen{output: "doc"}, &memoryRunRepo{}, &memoryDocumentRepo{}, nil)

	_, err := svc.Generate(context.Background(), GenerateRequest{ProjectID: f.project.ID})
	if !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
