package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/altius-academy/academy-api/internal/models"
)

const templateColumns = `id, title, description, subject_id, teacher_id, kind, priority, max_grade, due_date, config, created_at, updated_at`

// TaskTemplateRepository provides database access for task templates and
// their fan-out into task rows.
type TaskTemplateRepository struct {
	db *sqlx.DB
}

// NewTaskTemplateRepository creates a new instance of TaskTemplateRepository.
func NewTaskTemplateRepository(db *sqlx.DB) *TaskTemplateRepository {
	return &TaskTemplateRepository{db: db}
}

// CreateWithTasks persists the template and all its task rows in a single
// transaction. Any failure rolls back the template together with every
// task already inserted.
func (r *TaskTemplateRepository) CreateWithTasks(ctx context.Context, template *models.TaskTemplate, tasks []models.Task) ([]models.Task, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin fanout transaction: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}
	template.UpdatedAt = now

	const templateQuery = `INSERT INTO task_templates (title, description, subject_id, teacher_id, kind, priority, max_grade, due_date, config, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	if err := tx.GetContext(ctx, &template.ID, templateQuery,
		template.Title,
		template.Description,
		template.SubjectID,
		template.TeacherID,
		template.Kind,
		template.Priority,
		template.MaxGrade,
		template.DueDate,
		template.Config,
		template.CreatedAt,
		template.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert task template: %w", err)
	}

	const taskQuery = `INSERT INTO tasks (template_id, grade_name, student_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	for i := range tasks {
		task := &tasks[i]
		task.TemplateID = template.ID
		task.Status = models.TaskStatusPending
		task.CreatedAt = now
		task.UpdatedAt = now
		if err := tx.GetContext(ctx, &task.ID, taskQuery,
			task.TemplateID,
			task.GradeName,
			task.StudentID,
			task.Status,
			task.CreatedAt,
			task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("insert fanout task: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit fanout transaction: %w", err)
	}
	commit = true

	return tasks, nil
}

// FindByID returns a template by identifier.
func (r *TaskTemplateRepository) FindByID(ctx context.Context, id int64) (*models.TaskTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM task_templates WHERE id = $1 LIMIT 1`
	var template models.TaskTemplate
	if err := r.db.GetContext(ctx, &template, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find task template by id: %w", err)
	}
	return &template, nil
}

// ListByTeacher returns all templates authored by a teacher, newest first.
func (r *TaskTemplateRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.TaskTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM task_templates WHERE teacher_id = $1 ORDER BY created_at DESC`
	var templates []models.TaskTemplate
	if err := r.db.SelectContext(ctx, &templates, query, teacherID); err != nil {
		return nil, fmt.Errorf("list task templates by teacher: %w", err)
	}
	return templates, nil
}

// ListRecentByTeacher returns the most recently created templates.
func (r *TaskTemplateRepository) ListRecentByTeacher(ctx context.Context, teacherID int64, limit int) ([]models.TaskTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM task_templates WHERE teacher_id = $1 ORDER BY created_at DESC LIMIT %d`, templateColumns, limit)
	var templates []models.TaskTemplate
	if err := r.db.SelectContext(ctx, &templates, query, teacherID); err != nil {
		return nil, fmt.Errorf("list recent task templates: %w", err)
	}
	return templates, nil
}

// ListUpcomingByTeacher returns templates whose due date is still ahead,
// soonest first.
func (r *TaskTemplateRepository) ListUpcomingByTeacher(ctx context.Context, teacherID int64, after time.Time, limit int) ([]models.TaskTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM task_templates WHERE teacher_id = $1 AND due_date >= $2 ORDER BY due_date ASC LIMIT %d`, templateColumns, limit)
	var templates []models.TaskTemplate
	if err := r.db.SelectContext(ctx, &templates, query, teacherID, after); err != nil {
		return nil, fmt.Errorf("list upcoming task templates: %w", err)
	}
	return templates, nil
}

// Update persists administrative edits to a template.
func (r *TaskTemplateRepository) Update(ctx context.Context, template *models.TaskTemplate) error {
	template.UpdatedAt = time.Now().UTC()
	const query = `UPDATE task_templates SET title = :title, description = :description, priority = :priority, max_grade = :max_grade, due_date = :due_date, config = :config, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("update task template: %w", err)
	}
	return nil
}

// DeleteCascade removes a template with its tasks and their submissions
// in a single transaction.
func (r *TaskTemplateRepository) DeleteCascade(ctx context.Context, templateID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin template delete: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_submissions WHERE task_id IN (SELECT id FROM tasks WHERE template_id = $1)`, templateID); err != nil {
		return fmt.Errorf("delete template submissions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE template_id = $1`, templateID); err != nil {
		return fmt.Errorf("delete template tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_templates WHERE id = $1`, templateID); err != nil {
		return fmt.Errorf("delete task template: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit template delete: %w", err)
	}
	commit = true

	return nil
}
