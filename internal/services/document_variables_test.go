package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierhq/atelier-backend/internal/docgen"
	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/repos"
	"github.com/atelierhq/atelier-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

type varsFixture struct {
	project      *types.Project
	client       *types.Client
	stakeholders []*types.Stakeholder
	questions    []*types.Question
	responses    []*types.Response
	uploads      []*types.Upload
}

type fixtureProjectRepo struct {
	repos.ProjectRepo
	f *varsFixture
}

func (r fixtureProjectRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Project, error) {
	return r.f.project, nil
}

type fixtureClientRepo struct {
	repos.ClientRepo
	f *varsFixture
}

func (r fixtureClientRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Client, error) {
	return r.f.client, nil
}

type fixtureStakeholderRepo struct {
	repos.StakeholderRepo
	f *varsFixture
}

func (r fixtureStakeholderRepo) GetByProjectID(ctx context.Context, tx *gorm.DB, id uuid.UUID) ([]*types.Stakeholder, error) {
	return r.f.stakeholders, nil
}

type fixtureQuestionRepo struct {
	repos.QuestionRepo
	f *varsFixture
}

func (r fixtureQuestionRepo) GetByProjectID(ctx context.Context, tx *gorm.DB, id uuid.UUID) ([]*types.Question, error) {
	return r.f.questions, nil
}

type fixtureResponseRepo struct {
	repos.ResponseRepo
	f *varsFixture
}

func (r fixtureResponseRepo) GetByProjectID(ctx context.Context, tx *gorm.DB, id uuid.UUID) ([]*types.Response, error) {
	return r.f.responses, nil
}

type fixtureUploadRepo struct {
	repos.UploadRepo
	f *varsFixture
}

func (r fixtureUploadRepo) GetByProjectID(ctx context.Context, tx *gorm.DB, id uuid.UUID) ([]*types.Upload, error) {
	return r.f.uploads, nil
}

func newVariablesService(t *testing.T, f *varsFixture) DocumentVariablesService {
	t.Helper()
	return NewDocumentVariablesService(
		nil,
		testLogger(t),
		fixtureProjectRepo{f: f},
		fixtureClientRepo{f: f},
		fixtureStakeholderRepo{f: f},
		fixtureQuestionRepo{f: f},
		fixtureResponseRepo{f: f},
		fixtureUploadRepo{f: f},
	)
}

func blockByName(named []docgen.NamedText, name string) (string, bool) {
	for _, nt := range named {
		if nt.Name == name {
			return nt.Text, true
		}
	}
	return "", false
}

func fullFixture() *varsFixture {
	projectID := uuid.New()
	sh1 := &types.Stakeholder{ID: uuid.New(), ProjectID: projectID, FullName: "Dana Reyes", Role: "CTO", Bio: "Runs engineering."}
	sh2 := &types.Stakeholder{ID: uuid.New(), ProjectID: projectID, FullName: "Miko Tan", Role: "Designer"}
	q1 := &types.Question{ID: uuid.New(), ProjectID: projectID, Prompt: "What problem are we solving?", Position: 1}
	q2 := &types.Question{ID: uuid.New(), ProjectID: projectID, Prompt: "Who is the audience?", Position: 2}
	return &varsFixture{
		project: &types.Project{ID: projectID, ClientID: uuid.New(), Name: "Brand Refresh", Summary: "A rebrand for a logistics firm.", Status: "active"},
		client:  &types.Client{ID: uuid.New(), Name: "Northwind"},
		stakeholders: []*types.Stakeholder{sh1, sh2},
		questions:    []*types.Question{q1, q2},
		responses: []*types.Response{
			{ID: uuid.New(), ProjectID: projectID, StakeholderID: sh1.ID, QuestionID: q1.ID, Medium: types.ResponseMediumText, Text: "Shipping visibility."},
			{ID: uuid.New(), ProjectID: projectID, StakeholderID: sh1.ID, QuestionID: q2.ID, Medium: types.ResponseMediumAudio, Text: "Operations teams."},
			{ID: uuid.New(), ProjectID: projectID, StakeholderID: sh2.ID, QuestionID: q1.ID, Medium: types.ResponseMediumText, Text: "Outdated identity."},
		},
		uploads: []*types.Upload{
			{ID: uuid.New(), ProjectID: projectID, FileName: "brief.pdf", MimeType: "application/pdf", ExtractionStatus: types.ExtractionStatusCompleted, ExtractedContent: "Full creative brief text."},
			{ID: uuid.New(), ProjectID: projectID, FileName: "kickoff.mp4", MimeType: "video/mp4", ExtractionStatus: types.ExtractionStatusFailed},
			{ID: uuid.New(), ProjectID: projectID, FileName: "assets.zip", MimeType: "application/zip", ExtractionStatus: types.ExtractionStatusNotApplicable},
		},
	}
}

func TestResolveBuildsAllBlocks(t *testing.T) {
	f := fullFixture()
	svc := newVariablesService(t, f)

	named, err := svc.Resolve(context.Background(), nil, f.project.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	wantNames := []string{
		docgen.VarProjectSummary,
		docgen.VarQuestionAnswers,
		docgen.VarStakeholderProfiles,
		docgen.VarFileContent,
		docgen.VarQuestionsList,
		docgen.VarMetadata,
	}
	if len(named) != len(wantNames) {
		t.Fatalf("expected %d blocks, got %d", len(wantNames), len(named))
	}
	for i, want := range wantNames {
		if named[i].Name != want {
			t.Fatalf("block %d: expected %q, got %q", i, want, named[i].Name)
		}
	}

	qa, _ := blockByName(named, docgen.VarQuestionAnswers)
	if !strings.Contains(qa, "### Dana Reyes (CTO)") {
		t.Fatalf("question_answers missing stakeholder header: %q", qa)
	}
	if !strings.Contains(qa, "Q: What problem are we solving?\nA: Shipping visibility.") {
		t.Fatalf("question_answers missing Q/A pair: %q", qa)
	}
	danaIdx := strings.Index(qa, "Dana Reyes")
	mikoIdx := strings.Index(qa, "Miko Tan")
	if danaIdx < 0 || mikoIdx < 0 || danaIdx > mikoIdx {
		t.Fatalf("answers not grouped in stakeholder order: %q", qa)
	}

	ql, _ := blockByName(named, docgen.VarQuestionsList)
	if !strings.Contains(ql, "1. What problem are we solving?") || !strings.Contains(ql, "2. Who is the audience?") {
		t.Fatalf("questions_list not numbered in order: %q", ql)
	}

	meta, _ := blockByName(named, docgen.VarMetadata)
	if !strings.Contains(meta, "Project: Brand Refresh") || !strings.Contains(meta, "Client: Northwind") {
		t.Fatalf("metadata incomplete: %q", meta)
	}
}

func TestResolveFileContentUsesStatusFallback(t *testing.T) {
	f := fullFixture()
	svc := newVariablesService(t, f)

	named, err := svc.Resolve(context.Background(), nil, f.project.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	fc, ok := blockByName(named, docgen.VarFileContent)
	if !ok {
		t.Fatalf("file_content block missing")
	}

	if !strings.Contains(fc, "brief.pdf\n=== CONTENT ===\nFull creative brief text.\n=== END ===") {
		t.Fatalf("completed extraction not rendered as content block: %q", fc)
	}
	if !strings.Contains(fc, "kickoff.mp4 (extraction failed)") {
		t.Fatalf("failed extraction not rendered as fallback line: %q", fc)
	}
	if !strings.Contains(fc, "assets.zip (extraction not_applicable)") {
		t.Fatalf("not_applicable upload not rendered as fallback line: %q", fc)
	}
	if strings.Contains(fc, "assets.zip\n=== CONTENT ===") {
		t.Fatalf("non-completed upload must not get a content block: %q", fc)
	}
}

func TestResolveOmitsEmptyBlocks(t *testing.T) {
	projectID := uuid.New()
	f := &varsFixture{
		project: &types.Project{ID: projectID, ClientID: uuid.New(), Name: "Empty", Status: "active"},
		client:  &types.Client{ID: uuid.New(), Name: "Northwind"},
	}
	svc := newVariablesService(t, f)

	named, err := svc.Resolve(context.Background(), nil, projectID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for _, nt := range named {
		if nt.Name != docgen.VarMetadata {
			t.Fatalf("expected only metadata for an empty project, got %q", nt.Name)
		}
	}
	if len(named) != 1 {
		t.Fatalf("expected 1 block, got %d", len(named))
	}
}
