package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TaskKind distinguishes manually graded tasks from auto-graded ones.
type TaskKind string

const (
	TaskKindTraditional TaskKind = "TRADITIONAL"
	TaskKindInteractive TaskKind = "INTERACTIVE"
)

// TaskConfigKind tags the config payload variant.
type TaskConfigKind string

const (
	ConfigKindMultimedia  TaskConfigKind = "MULTIMEDIA"
	ConfigKindInteractive TaskConfigKind = "INTERACTIVE"
)

// TaskPriority orders tasks for display.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

// TaskStatus tracks a task row's lifecycle.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusSubmitted TaskStatus = "SUBMITTED"
	TaskStatusGraded    TaskStatus = "GRADED"
)

// FanoutStrategy selects how a template materialises into task rows.
type FanoutStrategy string

const (
	FanoutPerStudent FanoutStrategy = "per_student"
	FanoutGradeWide  FanoutStrategy = "grade_wide"
)

// MultimediaConfig describes attachments for traditional tasks.
type MultimediaConfig struct {
	Attachments  []Attachment `json:"attachments,omitempty"`
	Instructions string       `json:"instructions,omitempty"`
}

// Attachment references an uploaded file by opaque id.
type Attachment struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	URL      string `json:"url"`
}

// InteractiveConfig points at an activity document in the external
// content store and fixes the question count used for auto-grading.
type InteractiveConfig struct {
	ContentID      int64 `json:"content_id"`
	TotalQuestions int   `json:"total_questions"`
	TimeLimitMin   int   `json:"time_limit_min,omitempty"`
}

// TaskConfig is a tagged variant stored as a JSONB column. Exactly one
// payload pointer is set, matching Kind.
type TaskConfig struct {
	Kind        TaskConfigKind     `json:"kind"`
	Multimedia  *MultimediaConfig  `json:"multimedia,omitempty"`
	Interactive *InteractiveConfig `json:"interactive,omitempty"`
}

// Value implements driver.Valuer for JSONB storage.
func (c TaskConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (c *TaskConfig) Scan(src interface{}) error {
	if src == nil {
		*c = TaskConfig{}
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("unsupported task config source type %T", src)
	}
}

// TaskTemplate is the teacher-authored definition a fan-out materialises.
type TaskTemplate struct {
	ID          int64        `db:"id" json:"id"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	SubjectID   int64        `db:"subject_id" json:"subject_id"`
	TeacherID   int64        `db:"teacher_id" json:"teacher_id"`
	Kind        TaskKind     `db:"kind" json:"kind"`
	Priority    TaskPriority `db:"priority" json:"priority"`
	MaxGrade    float64      `db:"max_grade" json:"max_grade"`
	DueDate     time.Time    `db:"due_date" json:"due_date"`
	Config      TaskConfig   `db:"config" json:"config"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// Task is one materialised row of a template fan-out. GradeName and
// StudentID are both nullable: a row with a grade but no student is
// visible to the whole grade, a row with neither is unassigned.
type Task struct {
	ID         int64      `db:"id" json:"id"`
	TemplateID int64      `db:"template_id" json:"template_id"`
	GradeName  *string    `db:"grade_name" json:"grade_name,omitempty"`
	StudentID  *int64     `db:"student_id" json:"student_id,omitempty"`
	Status     TaskStatus `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// TaskWithTemplate joins a task row with its template for read paths.
type TaskWithTemplate struct {
	Task
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	SubjectID   int64        `db:"subject_id" json:"subject_id"`
	TeacherID   int64        `db:"teacher_id" json:"teacher_id"`
	Kind        TaskKind     `db:"kind" json:"kind"`
	Priority    TaskPriority `db:"priority" json:"priority"`
	MaxGrade    float64      `db:"max_grade" json:"max_grade"`
	DueDate     time.Time    `db:"due_date" json:"due_date"`
	Config      TaskConfig   `db:"config" json:"config"`
}

// TaskFilter captures supported filters for task listings.
type TaskFilter struct {
	SubjectID *int64
	GradeName string
	Status    *TaskStatus
	Page      int
	PageSize  int
}
