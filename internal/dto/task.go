package dto

import (
	"time"

	"github.com/altius-academy/academy-api/internal/models"
)

// CreateTaskRequest is the teacher payload that triggers a fan-out.
type CreateTaskRequest struct {
	Title       string                `json:"title" validate:"required,max=200"`
	Description string                `json:"description" validate:"max=5000"`
	SubjectID   int64                 `json:"subjectId" validate:"required,gt=0"`
	Kind        models.TaskKind       `json:"kind" validate:"required,oneof=TRADITIONAL INTERACTIVE"`
	Priority    models.TaskPriority   `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	MaxGrade    float64               `json:"maxGrade" validate:"required,gt=0"`
	DueDate     time.Time             `json:"dueDate" validate:"required"`
	Strategy    models.FanoutStrategy `json:"strategy" validate:"omitempty,oneof=per_student grade_wide"`
	GradeNames  []string              `json:"gradeNames" validate:"omitempty,dive,required"`
	StudentIDs  []int64               `json:"studentIds" validate:"omitempty,dive,gt=0"`
	Config      *models.TaskConfig    `json:"config"`
}

// UpdateTaskRequest carries administrative edits to a template.
type UpdateTaskRequest struct {
	Title       *string              `json:"title" validate:"omitempty,max=200"`
	Description *string              `json:"description" validate:"omitempty,max=5000"`
	Priority    *models.TaskPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	MaxGrade    *float64             `json:"maxGrade" validate:"omitempty,gt=0"`
	DueDate     *time.Time           `json:"dueDate"`
	Config      *models.TaskConfig   `json:"config"`
}

// SubmitRequest is the student payload for an initial submission.
type SubmitRequest struct {
	Content string                 `json:"content" validate:"max=20000"`
	Files   models.SubmissionFiles `json:"files" validate:"omitempty,dive"`
	Answers map[string]interface{} `json:"answers"`
}

// UpdateSubmissionRequest replaces submission content before grading.
type UpdateSubmissionRequest struct {
	Content string                 `json:"content" validate:"max=20000"`
	Files   models.SubmissionFiles `json:"files" validate:"omitempty,dive"`
	Answers map[string]interface{} `json:"answers"`
}

// GradeRequest is the teacher payload for manual grading. Either
// SubmissionID or StudentID resolves the submission on the task.
type GradeRequest struct {
	SubmissionID *int64  `json:"submissionId" validate:"omitempty,gt=0"`
	StudentID    *int64  `json:"studentId" validate:"omitempty,gt=0"`
	Score        float64 `json:"score" validate:"gte=0"`
	Feedback     string  `json:"feedback" validate:"max=5000"`
}

// FanoutResponse reports the template plus the task rows it produced.
type FanoutResponse struct {
	Template     models.TaskTemplate `json:"template"`
	Tasks        []models.Task       `json:"tasks"`
	TasksCreated int                 `json:"tasksCreated"`
}

// TaskView is a task joined with its template and, for students, the
// caller's own submission. EffectiveStatus derives from that submission.
type TaskView struct {
	ID              int64                   `json:"id"`
	TemplateID      int64                   `json:"templateId"`
	Title           string                  `json:"title"`
	Description     string                  `json:"description"`
	SubjectID       int64                   `json:"subjectId"`
	TeacherID       int64                   `json:"teacherId"`
	Kind            models.TaskKind         `json:"kind"`
	Priority        models.TaskPriority     `json:"priority"`
	MaxGrade        float64                 `json:"maxGrade"`
	DueDate         time.Time               `json:"dueDate"`
	GradeName       *string                 `json:"gradeName,omitempty"`
	StudentID       *int64                  `json:"studentId,omitempty"`
	EffectiveStatus models.TaskStatus       `json:"status"`
	Config          *models.TaskConfig      `json:"config,omitempty"`
	Content         *models.ActivityContent `json:"content,omitempty"`
	Submission      *SubmissionView         `json:"submission,omitempty"`
}

// SubmissionView is the submission payload exposed to clients.
type SubmissionView struct {
	ID          int64                   `json:"id"`
	TaskID      int64                   `json:"taskId"`
	StudentID   int64                   `json:"studentId"`
	Content     string                  `json:"content,omitempty"`
	Files       models.SubmissionFiles  `json:"files,omitempty"`
	Status      models.SubmissionStatus `json:"status"`
	Score       *float64                `json:"score,omitempty"`
	Feedback    *string                 `json:"feedback,omitempty"`
	SubmittedAt time.Time               `json:"submittedAt"`
	GradedAt    *time.Time              `json:"gradedAt,omitempty"`
}
