package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	GenerationRunStatusRunning   = "running"
	GenerationRunStatusCompleted = "completed"
	GenerationRunStatusFailed    = "failed"
)

// GenerationRun records one invocation of the document pipeline: which
// strategy the planner chose, the token accounting behind that choice, and
// (on failure) which phase broke so the operator can decide about a retry.
type GenerationRun struct {
	ID         uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"project_id"`
	Project    *Project          `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	TemplateID *uuid.UUID        `gorm:"type:uuid;index" json:"template_id,omitempty"`
	Template   *DocumentTemplate `gorm:"foreignKey:TemplateID;references:ID" json:"template,omitempty"`

	Status   string `gorm:"column:status;not null;default:'running';index" json:"status"`
	Strategy string `gorm:"column:strategy" json:"strategy"`
	Phase    string `gorm:"column:phase" json:"phase"`

	ChunkCount           int `gorm:"column:chunk_count" json:"chunk_count"`
	TotalEstimatedTokens int `gorm:"column:total_estimated_tokens" json:"total_estimated_tokens"`
	ContextLimit         int `gorm:"column:context_limit" json:"context_limit"`

	ErrorMessage string         `gorm:"column:error_message" json:"error_message,omitempty"`
	Diagnostics  datatypes.JSON `gorm:"column:diagnostics;type:jsonb" json:"diagnostics,omitempty"`

	StartedAt  time.Time      `gorm:"not null;default:now()" json:"started_at"`
	FinishedAt *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (GenerationRun) TableName() string { return "generation_run" }
