package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Assessment is a completed screening persisted once the summary pipeline
// succeeds for a call.
type Assessment struct {
	ID        string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    string `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	CallID    string `gorm:"column:call_id;type:text;uniqueIndex" json:"call_id"`
	SessionID string `gorm:"column:session_id;type:uuid;index" json:"session_id"`

	ChildName     string `gorm:"column:child_name;type:text" json:"child_name"`
	QuestionCount int    `gorm:"column:question_count" json:"question_count"`

	Languages pq.StringArray `gorm:"column:languages;type:text[]" json:"languages"`

	// Full SummaryRecord as returned by the segmentation backend.
	Summary datatypes.JSON `gorm:"column:summary;type:jsonb" json:"summary"`

	CompletedAt time.Time `gorm:"column:completed_at;type:timestamptz;index" json:"completed_at"`
}

func (Assessment) TableName() string { return "assessments" }
