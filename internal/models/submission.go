package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SubmissionStatus tracks a submission's lifecycle. GRADED is terminal.
type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionGraded    SubmissionStatus = "GRADED"
	SubmissionReturned  SubmissionStatus = "RETURNED"
)

// SubmissionFiles is a JSONB list of student-uploaded attachments.
type SubmissionFiles []Attachment

// Value implements driver.Valuer for JSONB storage.
func (f SubmissionFiles) Value() (driver.Value, error) {
	if f == nil {
		return json.Marshal([]Attachment{})
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (f *SubmissionFiles) Scan(src interface{}) error {
	if src == nil {
		*f = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return fmt.Errorf("unsupported submission files source type %T", src)
	}
}

// Submission is one student's answer to one task. The storage layer
// enforces UNIQUE (task_id, student_id).
type Submission struct {
	ID          int64            `db:"id" json:"id"`
	TaskID      int64            `db:"task_id" json:"task_id"`
	StudentID   int64            `db:"student_id" json:"student_id"`
	Content     string           `db:"content" json:"content"`
	Files       SubmissionFiles  `db:"files" json:"files,omitempty"`
	Status      SubmissionStatus `db:"status" json:"status"`
	Score       *float64         `db:"score" json:"score,omitempty"`
	Feedback    *string          `db:"feedback" json:"feedback,omitempty"`
	GradedBy    *int64           `db:"graded_by" json:"graded_by,omitempty"`
	SubmittedAt time.Time        `db:"submitted_at" json:"submitted_at"`
	GradedAt    *time.Time       `db:"graded_at" json:"graded_at,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// InteractiveResult is the answer payload an interactive activity player
// reports when a student finishes.
type InteractiveResult struct {
	CorrectAnswers int     `json:"correctAnswers"`
	TotalQuestions int     `json:"totalQuestions"`
	Percentage     float64 `json:"percentage"`
}
