package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/altius-academy/academy-api/internal/models"
)

// SubjectRepository provides database access for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new instance of SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindByID returns a subject by identifier.
func (r *SubjectRepository) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	const query = `SELECT id, name, grade_name, teacher_id, created_at, updated_at FROM subjects WHERE id = $1 LIMIT 1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find subject by id: %w", err)
	}
	return &subject, nil
}

// ListByTeacher returns all subjects taught by a teacher.
func (r *SubjectRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.Subject, error) {
	const query = `SELECT id, name, grade_name, teacher_id, created_at, updated_at FROM subjects WHERE teacher_id = $1 ORDER BY grade_name, name`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, teacherID); err != nil {
		return nil, fmt.Errorf("list subjects by teacher: %w", err)
	}
	return subjects, nil
}

// CountByTeacher returns the number of subjects a teacher teaches.
func (r *SubjectRepository) CountByTeacher(ctx context.Context, teacherID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM subjects WHERE teacher_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, teacherID); err != nil {
		return 0, fmt.Errorf("count subjects by teacher: %w", err)
	}
	return count, nil
}

// CountByGrade returns the number of subjects taught to a grade.
func (r *SubjectRepository) CountByGrade(ctx context.Context, gradeName string) (int, error) {
	const query = `SELECT COUNT(*) FROM subjects WHERE grade_name = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, gradeName); err != nil {
		return 0, fmt.Errorf("count subjects by grade: %w", err)
	}
	return count, nil
}

// ListGradeNamesByTeacher returns the distinct grade names a teacher covers.
func (r *SubjectRepository) ListGradeNamesByTeacher(ctx context.Context, teacherID int64) ([]string, error) {
	const query = `SELECT DISTINCT grade_name FROM subjects WHERE teacher_id = $1 ORDER BY grade_name`
	var names []string
	if err := r.db.SelectContext(ctx, &names, query, teacherID); err != nil {
		return nil, fmt.Errorf("list grade names by teacher: %w", err)
	}
	return names, nil
}
