package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ExtractionStatusPending       = "pending"
	ExtractionStatusProcessing    = "processing"
	ExtractionStatusCompleted     = "completed"
	ExtractionStatusFailed        = "failed"
	ExtractionStatusNotApplicable = "not_applicable"
)

const (
	ContentTypeText            = "text"
	ContentTypeVideoTranscript = "video_transcript"
	ContentTypeAudioTranscript = "audio_transcript"
	ContentTypeStructuredData  = "structured_data"
	ContentTypeBinary          = "binary"
)

// Upload is a supporting file attached to a project. The extraction worker
// asynchronously fills ExtractedContent; document generation only reads it.
type Upload struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Project   *Project  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`

	FileName   string `gorm:"column:file_name;not null" json:"file_name"`
	MimeType   string `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes  int64  `gorm:"column:size_bytes" json:"size_bytes"`
	StorageKey string `gorm:"column:storage_key;not null" json:"storage_key"`

	ExtractedContent string         `gorm:"column:extracted_content;type:text" json:"extracted_content"`
	ContentType      string         `gorm:"column:content_type" json:"content_type"`
	ExtractionStatus string         `gorm:"column:extraction_status;not null;default:'pending';index" json:"extraction_status"`
	ExtractionError  string         `gorm:"column:extraction_error" json:"extraction_error,omitempty"`
	ExtractedAt      *time.Time     `gorm:"column:extracted_at" json:"extracted_at,omitempty"`
	Diagnostics      datatypes.JSON `gorm:"column:diagnostics;type:jsonb" json:"diagnostics,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Upload) TableName() string { return "upload" }
