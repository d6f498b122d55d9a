package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/altius-academy/academy-api/internal/models"
)

const taskJoinColumns = `t.id, t.template_id, t.grade_name, t.student_id, t.status, t.created_at, t.updated_at,
tt.title, tt.description, tt.subject_id, tt.teacher_id, tt.kind, tt.priority, tt.max_grade, tt.due_date, tt.config`

// TaskRepository provides database access for materialised task rows.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new instance of TaskRepository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// FindByID returns a task row joined with its template.
func (r *TaskRepository) FindByID(ctx context.Context, id int64) (*models.TaskWithTemplate, error) {
	query := `SELECT ` + taskJoinColumns + `
FROM tasks t
JOIN task_templates tt ON tt.id = t.template_id
WHERE t.id = $1 LIMIT 1`
	var task models.TaskWithTemplate
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find task by id: %w", err)
	}
	return &task, nil
}

// ListVisibleForStudent returns the tasks a student can see: rows assigned
// directly plus grade-wide rows matching the student's grade.
func (r *TaskRepository) ListVisibleForStudent(ctx context.Context, studentID int64, gradeName string) ([]models.TaskWithTemplate, error) {
	query := `SELECT ` + taskJoinColumns + `
FROM tasks t
JOIN task_templates tt ON tt.id = t.template_id
WHERE t.student_id = $1 OR (t.student_id IS NULL AND t.grade_name = $2)
ORDER BY tt.due_date ASC, t.id`
	var tasks []models.TaskWithTemplate
	if err := r.db.SelectContext(ctx, &tasks, query, studentID, gradeName); err != nil {
		return nil, fmt.Errorf("list visible tasks for student: %w", err)
	}
	return tasks, nil
}

// ListByTeacher returns the task rows belonging to a teacher's templates.
func (r *TaskRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.TaskWithTemplate, error) {
	query := `SELECT ` + taskJoinColumns + `
FROM tasks t
JOIN task_templates tt ON tt.id = t.template_id
WHERE tt.teacher_id = $1
ORDER BY tt.due_date ASC, t.id`
	var tasks []models.TaskWithTemplate
	if err := r.db.SelectContext(ctx, &tasks, query, teacherID); err != nil {
		return nil, fmt.Errorf("list tasks by teacher: %w", err)
	}
	return tasks, nil
}

// ListByTemplate returns the task rows materialised from one template.
func (r *TaskRepository) ListByTemplate(ctx context.Context, templateID int64) ([]models.Task, error) {
	const query = `SELECT id, template_id, grade_name, student_id, status, created_at, updated_at FROM tasks WHERE template_id = $1 ORDER BY id`
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, templateID); err != nil {
		return nil, fmt.Errorf("list tasks by template: %w", err)
	}
	return tasks, nil
}

// UpdateStatus transitions a task row's lifecycle status.
func (r *TaskRepository) UpdateStatus(ctx context.Context, id int64, status models.TaskStatus) error {
	const query = `UPDATE tasks SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}
