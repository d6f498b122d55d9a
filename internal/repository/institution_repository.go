package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// InstitutionRepository provides database access for institutions.
type InstitutionRepository struct {
	db *sqlx.DB
}

// NewInstitutionRepository creates a new instance of InstitutionRepository.
func NewInstitutionRepository(db *sqlx.DB) *InstitutionRepository {
	return &InstitutionRepository{db: db}
}

// Count returns the total number of registered institutions.
func (r *InstitutionRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM institutions`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count institutions: %w", err)
	}
	return count, nil
}

// CountActive returns the number of active institutions.
func (r *InstitutionRepository) CountActive(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM institutions WHERE active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count active institutions: %w", err)
	}
	return count, nil
}

// CountCreatedSince returns institutions created on or after the instant.
func (r *InstitutionRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM institutions WHERE created_at >= $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, since); err != nil {
		return 0, fmt.Errorf("count institutions created since: %w", err)
	}
	return count, nil
}
