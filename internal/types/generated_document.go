package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GeneratedDocument struct {
	ID         uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"project_id"`
	Project    *Project          `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	RunID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"run_id"`
	Run        *GenerationRun    `gorm:"constraint:OnDelete:CASCADE;foreignKey:RunID;references:ID" json:"run,omitempty"`
	TemplateID *uuid.UUID        `gorm:"type:uuid;index" json:"template_id,omitempty"`
	Template   *DocumentTemplate `gorm:"foreignKey:TemplateID;references:ID" json:"template,omitempty"`

	Title   string `gorm:"column:title;not null" json:"title"`
	Content string `gorm:"column:content;type:text;not null" json:"content"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (GeneratedDocument) TableName() string { return "generated_document" }
