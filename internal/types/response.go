package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ResponseMediumText  = "text"
	ResponseMediumAudio = "audio"
	ResponseMediumVideo = "video"
)

// Response is one stakeholder's answer to one interview question. Audio and
// video answers carry their transcript in Text once transcription finishes.
type Response struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"project_id"`
	StakeholderID uuid.UUID    `gorm:"type:uuid;not null;index" json:"stakeholder_id"`
	Stakeholder   *Stakeholder `gorm:"constraint:OnDelete:CASCADE;foreignKey:StakeholderID;references:ID" json:"stakeholder,omitempty"`
	QuestionID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"question_id"`
	Question      *Question    `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestionID;references:ID" json:"question,omitempty"`

	Medium string `gorm:"column:medium;not null;default:'text'" json:"medium"`
	Text   string `gorm:"column:text;type:text" json:"text"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Response) TableName() string { return "response" }
