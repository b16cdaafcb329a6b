package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ExtractionRun is the persisted summary of one pipeline run, kept for
// quality trend reporting.
type ExtractionRun struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Success              bool           `gorm:"column:success;not null" json:"success"`
	ExtractionMethod     string         `gorm:"column:extraction_method;not null" json:"extraction_method"`
	NoteCount            int            `gorm:"column:note_count;not null" json:"note_count"`
	RefinementIterations int            `gorm:"column:refinement_iterations;not null" json:"refinement_iterations"`
	ProcessingTimeMs     int64          `gorm:"column:processing_time_ms;not null" json:"processing_time_ms"`
	OverallQuality       float64        `gorm:"column:overall_quality;not null" json:"overall_quality"`
	Completeness         float64        `gorm:"column:completeness;not null" json:"completeness"`
	QualityHistory       datatypes.JSON `gorm:"column:quality_history;type:jsonb" json:"quality_history,omitempty"`
	Result               datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	CreatedAt            time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (ExtractionRun) TableName() string { return "extraction_run" }
