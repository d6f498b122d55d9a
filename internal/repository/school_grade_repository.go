package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/altius-academy/academy-api/internal/models"
)

// SchoolGradeRepository provides database access for grade levels.
type SchoolGradeRepository struct {
	db *sqlx.DB
}

// NewSchoolGradeRepository creates a new instance of SchoolGradeRepository.
func NewSchoolGradeRepository(db *sqlx.DB) *SchoolGradeRepository {
	return &SchoolGradeRepository{db: db}
}

// ListActive returns all active grades ordered by level and name.
func (r *SchoolGradeRepository) ListActive(ctx context.Context) ([]models.SchoolGrade, error) {
	const query = `SELECT id, name, level, active, created_at, updated_at FROM school_grades WHERE active = TRUE ORDER BY level, name`
	var grades []models.SchoolGrade
	if err := r.db.SelectContext(ctx, &grades, query); err != nil {
		return nil, fmt.Errorf("list active grades: %w", err)
	}
	return grades, nil
}

// FindByName returns a grade by its display name.
func (r *SchoolGradeRepository) FindByName(ctx context.Context, name string) (*models.SchoolGrade, error) {
	const query = `SELECT id, name, level, active, created_at, updated_at FROM school_grades WHERE name = $1 LIMIT 1`
	var grade models.SchoolGrade
	if err := r.db.GetContext(ctx, &grade, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find grade by name: %w", err)
	}
	return &grade, nil
}
