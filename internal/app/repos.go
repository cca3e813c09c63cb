package app

import (
	"gorm.io/gorm"

	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/repos"
)

type Repos struct {
	Client            repos.ClientRepo
	Project           repos.ProjectRepo
	Stakeholder       repos.StakeholderRepo
	Question          repos.QuestionRepo
	Response          repos.ResponseRepo
	Upload            repos.UploadRepo
	DocumentTemplate  repos.DocumentTemplateRepo
	GeneratedDocument repos.GeneratedDocumentRepo
	GenerationRun     repos.GenerationRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Client:            repos.NewClientRepo(db, log),
		Project:           repos.NewProjectRepo(db, log),
		Stakeholder:       repos.NewStakeholderRepo(db, log),
		Question:          repos.NewQuestionRepo(db, log),
		Response:          repos.NewResponseRepo(db, log),
		Upload:            repos.NewUploadRepo(db, log),
		DocumentTemplate:  repos.NewDocumentTemplateRepo(db, log),
		GeneratedDocument: repos.NewGeneratedDocumentRepo(db, log),
		GenerationRun:     repos.NewGenerationRunRepo(db, log),
	}
}
