package docgen

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/pkg/ctxutil"
	errs "github.com/atelierhq/atelier-backend/internal/pkg/errors"
)

// TextGenerator is the external generation service. Failures surface as-is;
// retry policy belongs to the caller, not this pipeline.
type TextGenerator interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

// GenerationPass records one generation call: which chunks went in, the
// prompt that was sent, and what came back. Kept for diagnostics only.
type GenerationPass struct {
	Phase      string
	ChunkNames []string
	PromptText string
	ResultText string
}

// ProgressEvent marks the start of one phase of a run.
type ProgressEvent struct {
	Phase     string
	Strategy  Strategy
	Step      int
	StepCount int
}

// Generator turns resolved template variables into a single document,
// splitting the work across generation calls when the content outgrows the
// context budget. All state is request-scoped; a Generator is safe for
// concurrent use.
type Generator struct {
	log        *logger.Logger
	gen        TextGenerator
	cfg        Config
	onProgress func(ProgressEvent)
}

func NewGenerator(log *logger.Logger, gen TextGenerator, cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		log: log.With("component", "DocumentGenerator"),
		gen: gen,
		cfg: cfg,
	}, nil
}

// SetProgressFunc registers a callback invoked at the start of every phase.
func (g *Generator) SetProgressFunc(fn func(ProgressEvent)) { g.onProgress = fn }

func (g *Generator) Config() Config { return g.cfg }

// BuildPlan resolves the context plan for a set of named texts plus the
// template prompt, without running any generation call. GenerateDocument
// uses the identical construction, so callers can log or persist the plan
// up front.
func (g *Generator) BuildPlan(named []NamedText, templatePrompt string) ContextPlan {
	all := make([]NamedText, 0, len(named)+1)
	all = append(all, NamedText{Name: VarTemplatePrompt, Text: templatePrompt})
	all = append(all, named...)
	return Plan(BuildChunks(all), g.cfg)
}

// GenerateDocument is the single exposed operation: named texts in, one
// combined document out. Deterministic given identical inputs and a
// deterministic TextGenerator.
func (g *Generator) GenerateDocument(ctx context.Context, named []NamedText, templatePrompt string) (string, error) {
	text, _, err := g.GenerateWithPlan(ctx, named, templatePrompt)
	return text, err
}

// GenerateDocumentFromMap is GenerateDocument for callers holding the
// resolved variables as a plain mapping. Ties within a priority tier are
// ordered by name, so identical mappings always produce identical plans.
func (g *Generator) GenerateDocumentFromMap(ctx context.Context, vars map[string]string, templatePrompt string) (string, error) {
	return g.GenerateDocument(ctx, FromMap(vars), templatePrompt)
}

// GenerateWithPlan is GenerateDocument plus the plan that drove it.
func (g *Generator) GenerateWithPlan(ctx context.Context, named []NamedText, templatePrompt string) (string, ContextPlan, error) {
	ctx = ctxutil.Default(ctx)
	plan := g.BuildPlan(named, templatePrompt)

	g.log.Info("document generation planned",
		"chunk_count", len(plan.Chunks),
		"total_estimated_tokens", plan.TotalEstimatedTokens,
		"context_limit", plan.ContextLimit,
		"strategy", string(plan.Strategy),
	)

	var (
		text string
		err  error
	)
	switch plan.Strategy {
	case StrategySequential:
		text, err = g.runSequential(ctx, plan)
	case StrategyHierarchical:
		text, err = g.runHierarchical(ctx, plan)
	default:
		text, err = g.runSinglePass(ctx, plan)
	}
	if err != nil {
		return "", plan, err
	}
	return text, plan, nil
}

func (g *Generator) runSinglePass(ctx context.Context, plan ContextPlan) (string, error) {
	g.progress(ProgressEvent{Phase: "single_pass", Strategy: plan.Strategy, Step: 1, StepCount: 1})
	out, err := g.call(ctx, "single_pass", systemDocument, renderChunkSections(plan.Chunks))
	if err != nil {
		return "", err
	}
	return out, nil
}

// call runs one generation call with cancellation checked up front and the
// failure tagged with the owning phase.
func (g *Generator) call(ctx context.Context, phase string, system string, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errs.NewGenerationError(phase, err)
	}

	tracer := otel.Tracer("docgen")
	ctx, span := tracer.Start(ctx, "docgen.generate")
	span.SetAttributes(
		attribute.String("docgen.phase", phase),
		attribute.Int("docgen.prompt_tokens_est", EstimateTokens(user)),
	)
	defer span.End()

	g.log.Info("generation phase started", "phase", phase, "prompt_tokens_est", EstimateTokens(user))
	out, err := g.gen.GenerateText(ctx, system, user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation call failed")
		g.log.Error("generation phase failed", "phase", phase, "error", err)
		return "", errs.NewGenerationError(phase, err)
	}
	g.log.Info("generation phase completed", "phase", phase, "result_tokens_est", EstimateTokens(out))
	return out, nil
}

// combine folds ordered parts into one document. With MergeWithModel the
// merge is itself a generation call; otherwise the parts are concatenated
// in order with section separators.
func (g *Generator) combine(ctx context.Context, phase string, parts []string) (string, error) {
	if len(parts) == 1 {
		return parts[0], nil
	}
	if !g.cfg.MergeWithModel {
		joined := ""
		for i, p := range parts {
			if i > 0 {
				joined += sectionSeparator
			}
			joined += p
		}
		return joined, nil
	}
	return g.call(ctx, phase, systemMerge, renderMergePrompt(parts))
}

func (g *Generator) progress(ev ProgressEvent) {
	if g.onProgress != nil {
		g.onProgress(ev)
	}
}

func chunkNames(chunks []ContentChunk) []string {
	names := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		names = append(names, ch.Name)
	}
	return names
}
