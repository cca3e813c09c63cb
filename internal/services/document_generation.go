package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/atelierhq/atelier-backend/internal/clients/redis"
	"github.com/atelierhq/atelier-backend/internal/docgen"
	"github.com/atelierhq/atelier-backend/internal/logger"
	errs "github.com/atelierhq/atelier-backend/internal/pkg/errors"
	"github.com/atelierhq/atelier-backend/internal/repos"
	"github.com/atelierhq/atelier-backend/internal/sse"
	"github.com/atelierhq/atelier-backend/internal/types"
)

// GenerateRequest selects what to generate: a stored template by id, or a
// one-off inline prompt. Exactly one must be set.
type GenerateRequest struct {
	ProjectID    uuid.UUID
	TemplateID   *uuid.UUID
	InlinePrompt string
	Title        string
}

type GenerateResult struct {
	Run      *types.GenerationRun
	Document *types.GeneratedDocument
}

// DocumentGenerationService runs the full pipeline for one project: resolve
// variables, plan and execute generation, persist the document, and record
// the run outcome. A failed run keeps the failing phase; retry is simply
// calling Generate again.
type DocumentGenerationService interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

type documentGenerationService struct {
	db  *gorm.DB
	log *logger.Logger

	variables    DocumentVariablesService
	textGen      docgen.TextGenerator
	docgenConfig docgen.Config

	projectRepo  repos.ProjectRepo
	templateRepo repos.DocumentTemplateRepo
	runRepo      repos.GenerationRunRepo
	documentRepo repos.GeneratedDocumentRepo

	hub *sse.SSEHub
	bus redis.SSEBus
}

func NewDocumentGenerationService(
	db *gorm.DB,
	log *logger.Logger,
	variables DocumentVariablesService,
	textGen docgen.TextGenerator,
	docgenConfig docgen.Config,
	projectRepo repos.ProjectRepo,
	templateRepo repos.DocumentTemplateRepo,
	runRepo repos.GenerationRunRepo,
	documentRepo repos.GeneratedDocumentRepo,
	hub *sse.SSEHub,
	bus redis.SSEBus,
) (DocumentGenerationService, error) {
	if err := docgenConfig.Validate(); err != nil {
		return nil, err
	}
	return &documentGenerationService{
		db:           db,
		log:          log.With("service", "DocumentGenerationService"),
		variables:    variables,
		textGen:      textGen,
		docgenConfig: docgenConfig,
		projectRepo:  projectRepo,
		templateRepo: templateRepo,
		runRepo:      runRepo,
		documentRepo: documentRepo,
		hub:          hub,
		bus:          bus,
	}, nil
}

func (s *documentGenerationService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	project, err := s.projectRepo.GetByID(ctx, nil, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}

	templatePrompt, title, err := s.resolvePrompt(ctx, req, project)
	if err != nil {
		return nil, err
	}

	run, err := s.runRepo.Create(ctx, nil, &types.GenerationRun{
		ProjectID:    req.ProjectID,
		TemplateID:   req.TemplateID,
		Status:       types.GenerationRunStatusRunning,
		ContextLimit: s.docgenConfig.ContextLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("create generation run: %w", err)
	}
	runLog := s.log.With("run_id", run.ID, "project_id", req.ProjectID)

	s.publish(ctx, req.ProjectID, sse.SSEEventGenerationStarted, map[string]any{
		"run_id": run.ID,
	})

	named, err := s.variables.Resolve(ctx, nil, req.ProjectID)
	if err != nil {
		return nil, s.failRun(ctx, runLog, run, "resolve_variables", err)
	}

	generator, err := docgen.NewGenerator(runLog, s.textGen, s.docgenConfig)
	if err != nil {
		return nil, s.failRun(ctx, runLog, run, "plan", err)
	}
	generator.SetProgressFunc(func(ev docgen.ProgressEvent) {
		if err := s.runRepo.UpdatePhase(ctx, nil, run.ID, ev.Phase); err != nil {
			runLog.Warn("failed to record run phase", "phase", ev.Phase, "error", err)
		}
		s.publish(ctx, req.ProjectID, sse.SSEEventGenerationPhaseStarted, map[string]any{
			"run_id":     run.ID,
			"phase":      ev.Phase,
			"strategy":   string(ev.Strategy),
			"step":       ev.Step,
			"step_count": ev.StepCount,
		})
	})

	text, plan, genErr := generator.GenerateWithPlan(ctx, named, templatePrompt)

	// Run bookkeeping must land even when the caller has gone away, or the
	// row would stay running forever after a cancelled request.
	writeCtx := context.WithoutCancel(ctx)
	if err := s.runRepo.UpdatePlan(writeCtx, nil, run.ID, string(plan.Strategy), len(plan.Chunks), plan.TotalEstimatedTokens); err != nil {
		runLog.Warn("failed to record run plan", "error", err)
	}
	run.Strategy = string(plan.Strategy)
	run.ChunkCount = len(plan.Chunks)
	run.TotalEstimatedTokens = plan.TotalEstimatedTokens

	if genErr != nil {
		phase := "generate"
		if ge, ok := errs.AsGenerationError(genErr); ok {
			phase = ge.Phase
		}
		return nil, s.failRun(writeCtx, runLog, run, phase, genErr)
	}

	doc, err := s.documentRepo.Create(ctx, nil, &types.GeneratedDocument{
		ProjectID:  req.ProjectID,
		RunID:      run.ID,
		TemplateID: req.TemplateID,
		Title:      title,
		Content:    text,
	})
	if err != nil {
		return nil, s.failRun(ctx, runLog, run, "persist_document", err)
	}

	diagnostics, _ := json.Marshal(map[string]any{
		"strategy":               string(plan.Strategy),
		"chunk_count":            len(plan.Chunks),
		"total_estimated_tokens": plan.TotalEstimatedTokens,
		"result_tokens_est":      docgen.EstimateTokens(text),
	})
	if err := s.runRepo.MarkCompleted(writeCtx, nil, run.ID, datatypes.JSON(diagnostics)); err != nil {
		runLog.Warn("failed to mark run completed", "error", err)
	}
	run.Status = types.GenerationRunStatusCompleted

	s.publish(ctx, req.ProjectID, sse.SSEEventGenerationCompleted, map[string]any{
		"run_id":      run.ID,
		"document_id": doc.ID,
		"strategy":    string(plan.Strategy),
	})
	runLog.Info("document generation completed",
		"document_id", doc.ID,
		"strategy", string(plan.Strategy),
		"result_tokens_est", docgen.EstimateTokens(text),
	)
	return &GenerateResult{Run: run, Document: doc}, nil
}

func (s *documentGenerationService) resolvePrompt(ctx context.Context, req GenerateRequest, project *types.Project) (prompt, title string, err error) {
	title = strings.TrimSpace(req.Title)
	if req.TemplateID != nil {
		template, err := s.templateRepo.GetByID(ctx, nil, *req.TemplateID)
		if err != nil {
			return "", "", fmt.Errorf("load template: %w", err)
		}
		if title == "" {
			title = template.Name + " - " + project.Name
		}
		return template.PromptText, title, nil
	}
	if strings.TrimSpace(req.InlinePrompt) == "" {
		return "", "", fmt.Errorf("%w: template_id or prompt required", errs.ErrInvalidArgument)
	}
	if title == "" {
		title = project.Name + " document"
	}
	return req.InlinePrompt, title, nil
}

func (s *documentGenerationService) failRun(ctx context.Context, runLog *logger.Logger, run *types.GenerationRun, phase string, cause error) error {
	// The most common failure is the caller cancelling mid-run; the terminal
	// state still has to be written and announced.
	ctx = context.WithoutCancel(ctx)
	if err := s.runRepo.MarkFailed(ctx, nil, run.ID, phase, cause.Error()); err != nil {
		runLog.Warn("failed to mark run failed", "error", err)
	}
	run.Status = types.GenerationRunStatusFailed
	run.Phase = phase
	run.ErrorMessage = cause.Error()

	s.publish(ctx, run.ProjectID, sse.SSEEventGenerationFailed, map[string]any{
		"run_id": run.ID,
		"phase":  phase,
		"error":  cause.Error(),
	})
	runLog.Error("document generation failed", "phase", phase, "error", cause)
	return cause
}

// publish routes an event through the redis bus when one is configured,
// falling back to the local hub. The bus forwarder re-broadcasts to hubs on
// every instance, this one included.
func (s *documentGenerationService) publish(ctx context.Context, projectID uuid.UUID, event sse.SSEEvent, data any) {
	msg := sse.SSEMessage{
		Channel: sse.ProjectChannel(projectID),
		Event:   event,
		Data:    data,
	}
	if s.bus != nil {
		if err := s.bus.Publish(ctx, msg); err != nil {
			s.log.Warn("failed to publish SSE event to redis", "event", string(event), "error", err)
			s.hub.Broadcast(msg)
		}
		return
	}
	if s.hub != nil {
		s.hub.Broadcast(msg)
	}
}
