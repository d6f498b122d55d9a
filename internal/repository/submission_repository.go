package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/altius-academy/academy-api/internal/models"
)

// ErrDuplicateSubmission signals that the student already submitted for
// the task. Raised off the UNIQUE (task_id, student_id) constraint so
// concurrent submits cannot both land.
var ErrDuplicateSubmission = errors.New("submission already exists for task and student")

const pqUniqueViolation = "23505"

const submissionColumns = `id, task_id, student_id, content, files, status, score, feedback, graded_by, submitted_at, graded_at, created_at, updated_at`

// SubmissionRepository provides database access for task submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new instance of SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a submission. A unique-constraint violation maps to
// ErrDuplicateSubmission.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	now := time.Now().UTC()
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = now
	}
	submission.CreatedAt = now
	submission.UpdatedAt = now

	const query = `INSERT INTO task_submissions (task_id, student_id, content, files, status, score, feedback, graded_by, submitted_at, graded_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	if err := r.db.GetContext(ctx, &submission.ID, query,
		submission.TaskID,
		submission.StudentID,
		submission.Content,
		submission.Files,
		submission.Status,
		submission.Score,
		submission.Feedback,
		submission.GradedBy,
		submission.SubmittedAt,
		submission.GradedAt,
		submission.CreatedAt,
		submission.UpdatedAt,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrDuplicateSubmission
		}
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// FindByID returns a submission by identifier.
func (r *SubmissionRepository) FindByID(ctx context.Context, id int64) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM task_submissions WHERE id = $1 LIMIT 1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission by id: %w", err)
	}
	return &submission, nil
}

// FindByTaskAndStudent returns the unique submission of a student on a task.
func (r *SubmissionRepository) FindByTaskAndStudent(ctx context.Context, taskID, studentID int64) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM task_submissions WHERE task_id = $1 AND student_id = $2 LIMIT 1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, taskID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission by task and student: %w", err)
	}
	return &submission, nil
}

// UpdateContent replaces the answer content of an ungraded submission.
func (r *SubmissionRepository) UpdateContent(ctx context.Context, submission *models.Submission) error {
	submission.UpdatedAt = time.Now().UTC()
	const query = `UPDATE task_submissions SET content = :content, files = :files, submitted_at = :submitted_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("update submission content: %w", err)
	}
	return nil
}

// Grade records score, feedback and grader, moving the submission to GRADED.
func (r *SubmissionRepository) Grade(ctx context.Context, submission *models.Submission) error {
	submission.UpdatedAt = time.Now().UTC()
	const query = `UPDATE task_submissions SET status = :status, score = :score, feedback = :feedback, graded_by = :graded_by, graded_at = :graded_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	return nil
}

// ListByTask returns every submission received for a task.
func (r *SubmissionRepository) ListByTask(ctx context.Context, taskID int64) ([]models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM task_submissions WHERE task_id = $1 ORDER BY submitted_at`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, taskID); err != nil {
		return nil, fmt.Errorf("list submissions by task: %w", err)
	}
	return submissions, nil
}

// ListByTemplate returns every submission across a template's tasks.
func (r *SubmissionRepository) ListByTemplate(ctx context.Context, templateID int64) ([]models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM task_submissions WHERE task_id IN (SELECT id FROM tasks WHERE template_id = $1) ORDER BY submitted_at`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, templateID); err != nil {
		return nil, fmt.Errorf("list submissions by template: %w", err)
	}
	return submissions, nil
}

// ListByStudentTasks returns the student's submissions for the given tasks,
// keyed by task id.
func (r *SubmissionRepository) ListByStudentTasks(ctx context.Context, studentID int64, taskIDs []int64) (map[int64]models.Submission, error) {
	if len(taskIDs) == 0 {
		return map[int64]models.Submission{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+submissionColumns+` FROM task_submissions WHERE student_id = ? AND task_id IN (?)`, studentID, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("build student submissions query: %w", err)
	}
	query = r.db.Rebind(query)

	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, fmt.Errorf("list submissions by student tasks: %w", err)
	}

	byTask := make(map[int64]models.Submission, len(submissions))
	for _, submission := range submissions {
		byTask[submission.TaskID] = submission
	}
	return byTask, nil
}

// CountPendingGradingByTeacher counts SUBMITTED submissions across all the
// teacher's tasks.
func (r *SubmissionRepository) CountPendingGradingByTeacher(ctx context.Context, teacherID int64) (int, error) {
	const query = `SELECT COUNT(*)
FROM task_submissions s
JOIN tasks t ON t.id = s.task_id
JOIN task_templates tt ON tt.id = t.template_id
WHERE tt.teacher_id = $1 AND s.status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, teacherID, models.SubmissionSubmitted); err != nil {
		return 0, fmt.Errorf("count pending grading by teacher: %w", err)
	}
	return count, nil
}

// AverageGradedScoreByTeacher averages graded scores across the teacher's
// tasks. No graded submissions yields 0.
func (r *SubmissionRepository) AverageGradedScoreByTeacher(ctx context.Context, teacherID int64) (float64, error) {
	const query = `SELECT COALESCE(AVG(s.score), 0)
FROM task_submissions s
JOIN tasks t ON t.id = s.task_id
JOIN task_templates tt ON tt.id = t.template_id
WHERE tt.teacher_id = $1 AND s.status = $2`
	var avg float64
	if err := r.db.GetContext(ctx, &avg, query, teacherID, models.SubmissionGraded); err != nil {
		return 0, fmt.Errorf("average graded score by teacher: %w", err)
	}
	return avg, nil
}

// CountByStudentAndStatus counts a student's submissions in a status.
func (r *SubmissionRepository) CountByStudentAndStatus(ctx context.Context, studentID int64, status models.SubmissionStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM task_submissions WHERE student_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, status); err != nil {
		return 0, fmt.Errorf("count submissions by student and status: %w", err)
	}
	return count, nil
}

// AverageGradedScoreByStudent averages a student's graded scores. No graded
// submissions yields 0.
func (r *SubmissionRepository) AverageGradedScoreByStudent(ctx context.Context, studentID int64) (float64, error) {
	const query = `SELECT COALESCE(AVG(score), 0) FROM task_submissions WHERE student_id = $1 AND status = $2`
	var avg float64
	if err := r.db.GetContext(ctx, &avg, query, studentID, models.SubmissionGraded); err != nil {
		return 0, fmt.Errorf("average graded score by student: %w", err)
	}
	return avg, nil
}

// CountByStudentForTasks counts the student's submissions among the given
// task ids. Used to derive pending counts from visible tasks.
func (r *SubmissionRepository) CountByStudentForTasks(ctx context.Context, studentID int64, taskIDs []int64) (int, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`SELECT COUNT(*) FROM task_submissions WHERE student_id = ? AND task_id IN (?)`, studentID, taskIDs)
	if err != nil {
		return 0, fmt.Errorf("build submissions count query: %w", err)
	}
	query = r.db.Rebind(query)

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count submissions by student for tasks: %w", err)
	}
	return count, nil
}
