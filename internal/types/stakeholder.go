package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Stakeholder struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Project   *Project  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`

	FullName string `gorm:"column:full_name;not null" json:"full_name"`
	Role     string `gorm:"column:role" json:"role"`
	Email    string `gorm:"column:email" json:"email"`
	Bio      string `gorm:"column:bio;type:text" json:"bio"`

	InvitedAt *time.Time `gorm:"column:invited_at" json:"invited_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Stakeholder) TableName() string { return "stakeholder" }
