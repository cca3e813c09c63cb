package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierhq/atelier-backend/internal/docgen"
	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/repos"
	"github.com/atelierhq/atelier-backend/internal/types"
)

// DocumentVariablesService resolves a project's stored records into the
// named text blocks document generation consumes. It reads whatever is in
// the database right now; uploads whose extraction has not completed show
// up as a one-line placeholder rather than blocking the run.
type DocumentVariablesService interface {
	Resolve(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]docgen.NamedText, error)
}

type documentVariablesService struct {
	db  *gorm.DB
	log *logger.Logger

	projectRepo     repos.ProjectRepo
	clientRepo      repos.ClientRepo
	stakeholderRepo repos.StakeholderRepo
	questionRepo    repos.QuestionRepo
	responseRepo    repos.ResponseRepo
	uploadRepo      repos.UploadRepo
}

func NewDocumentVariablesService(
	db *gorm.DB,
	log *logger.Logger,
	projectRepo repos.ProjectRepo,
	clientRepo repos.ClientRepo,
	stakeholderRepo repos.StakeholderRepo,
	questionRepo repos.QuestionRepo,
	responseRepo repos.ResponseRepo,
	uploadRepo repos.UploadRepo,
) DocumentVariablesService {
	return &documentVariablesService{
		db:              db,
		log:             log.With("service", "DocumentVariablesService"),
		projectRepo:     projectRepo,
		clientRepo:      clientRepo,
		stakeholderRepo: stakeholderRepo,
		questionRepo:    questionRepo,
		responseRepo:    responseRepo,
		uploadRepo:      uploadRepo,
	}
}

func (s *documentVariablesService) Resolve(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]docgen.NamedText, error) {
	project, err := s.projectRepo.GetByID(ctx, tx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	stakeholders, err := s.stakeholderRepo.GetByProjectID(ctx, tx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load stakeholders: %w", err)
	}
	questions, err := s.questionRepo.GetByProjectID(ctx, tx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	responses, err := s.responseRepo.GetByProjectID(ctx, tx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	uploads, err := s.uploadRepo.GetByProjectID(ctx, tx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load uploads: %w", err)
	}

	var clientName string
	if client, err := s.clientRepo.GetByID(ctx, tx, project.ClientID); err == nil {
		clientName = client.Name
	}

	named := make([]docgen.NamedText, 0, 6)
	appendBlock := func(name, text string) {
		if strings.TrimSpace(text) == "" {
			return
		}
		named = append(named, docgen.NamedText{Name: name, Text: text})
	}

	appendBlock(docgen.VarProjectSummary, project.Summary)
	appendBlock(docgen.VarQuestionAnswers, renderQuestionAnswers(stakeholders, questions, responses))
	appendBlock(docgen.VarStakeholderProfiles, renderStakeholderProfiles(stakeholders))
	appendBlock(docgen.VarFileContent, renderFileContent(uploads))
	appendBlock(docgen.VarQuestionsList, renderQuestionsList(questions))
	appendBlock(docgen.VarMetadata, renderMetadata(project, clientName, len(stakeholders), len(responses), len(uploads)))

	s.log.Debug("resolved document variables",
		"project_id", projectID,
		"block_count", len(named),
	)
	return named, nil
}

// renderQuestionAnswers groups answers under each stakeholder, in stakeholder
// order, with each stakeholder's answers in question order.
func renderQuestionAnswers(stakeholders []*types.Stakeholder, questions []*types.Question, responses []*types.Response) string {
	questionByID := make(map[uuid.UUID]*types.Question, len(questions))
	for _, q := range questions {
		questionByID[q.ID] = q
	}
	byStakeholder := make(map[uuid.UUID][]*types.Response, len(stakeholders))
	for _, r := range responses {
		byStakeholder[r.StakeholderID] = append(byStakeholder[r.StakeholderID], r)
	}

	var b strings.Builder
	for _, sh := range stakeholders {
		answers := byStakeholder[sh.ID]
		if len(answers) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		header := sh.FullName
		if sh.Role != "" {
			header += " (" + sh.Role + ")"
		}
		b.WriteString("### " + header + "\n")
		for _, ans := range answers {
			if strings.TrimSpace(ans.Text) == "" {
				continue
			}
			prompt := "(question removed)"
			if q, ok := questionByID[ans.QuestionID]; ok {
				prompt = q.Prompt
			}
			b.WriteString("\nQ: " + prompt + "\n")
			b.WriteString("A: " + strings.TrimSpace(ans.Text) + "\n")
		}
	}
	return b.String()
}

func renderStakeholderProfiles(stakeholders []*types.Stakeholder) string {
	var b strings.Builder
	for _, sh := range stakeholders {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + sh.FullName)
		if sh.Role != "" {
			b.WriteString(", " + sh.Role)
		}
		if strings.TrimSpace(sh.Bio) != "" {
			b.WriteString(": " + strings.TrimSpace(sh.Bio))
		}
	}
	return b.String()
}

// renderFileContent emits a full content block for completed extractions and
// a one-line status placeholder for everything else, so a stuck or failed
// extraction never stalls generation.
func renderFileContent(uploads []*types.Upload) string {
	var parts []string
	for _, up := range uploads {
		if up.ExtractionStatus == types.ExtractionStatusCompleted && strings.TrimSpace(up.ExtractedContent) != "" {
			parts = append(parts, up.FileName+"\n=== CONTENT ===\n"+up.ExtractedContent+"\n=== END ===")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (extraction %s)", up.FileName, up.ExtractionStatus))
	}
	return strings.Join(parts, "\n\n")
}

func renderQuestionsList(questions []*types.Question) string {
	var b strings.Builder
	for i, q := range questions {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%d. %s", i+1, q.Prompt))
	}
	return b.String()
}

func renderMetadata(project *types.Project, clientName string, stakeholderCount, responseCount, uploadCount int) string {
	var b strings.Builder
	b.WriteString("Project: " + project.Name)
	if clientName != "" {
		b.WriteString("\nClient: " + clientName)
	}
	b.WriteString("\nStatus: " + project.Status)
	b.WriteString(fmt.Sprintf("\nStakeholders: %d", stakeholderCount))
	b.WriteString(fmt.Sprintf("\nInterview answers: %d", responseCount))
	b.WriteString(fmt.Sprintf("\nUploads: %d", uploadCount))
	b.WriteString("\nCreated: " + project.CreatedAt.UTC().Format("2006-01-02"))
	return b.String()
}
