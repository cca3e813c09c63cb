package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentTemplate struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	PromptText  string    `gorm:"column:prompt_text;type:text;not null" json:"prompt_text"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (DocumentTemplate) TableName() string { return "document_template" }
