package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/altius-academy/academy-api/internal/models"
)

const userColumns = `id, email, first_name, last_name, role, grade_name, institution_id, active, last_login, created_at, updated_at`

// UserRepository provides database access for user records.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// ListActiveStudentsByGrade returns all active students enrolled in a grade.
func (r *UserRepository) ListActiveStudentsByGrade(ctx context.Context, gradeName string) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 AND grade_name = $2 AND active = TRUE ORDER BY id`
	var students []models.User
	if err := r.db.SelectContext(ctx, &students, query, models.RoleStudent, gradeName); err != nil {
		return nil, fmt.Errorf("list active students by grade: %w", err)
	}
	return students, nil
}

// CountActiveStudentsByGrade returns the active student headcount of a grade.
func (r *UserRepository) CountActiveStudentsByGrade(ctx context.Context, gradeName string) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE role = $1 AND grade_name = $2 AND active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, models.RoleStudent, gradeName); err != nil {
		return 0, fmt.Errorf("count active students by grade: %w", err)
	}
	return count, nil
}

// CountByRole returns the number of users holding a role.
func (r *UserRepository) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE role = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, role); err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return count, nil
}

// CountByRoleCreatedSince returns role head-counts restricted to users
// created on or after the given instant.
func (r *UserRepository) CountByRoleCreatedSince(ctx context.Context, role models.UserRole, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE role = $1 AND created_at >= $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, role, since); err != nil {
		return 0, fmt.Errorf("count users by role created since: %w", err)
	}
	return count, nil
}

// CountCreatedSince returns users of any role created on or after the instant.
func (r *UserRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE created_at >= $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, since); err != nil {
		return 0, fmt.Errorf("count users created since: %w", err)
	}
	return count, nil
}

// ListChildren returns the student records linked to a parent account.
func (r *UserRepository) ListChildren(ctx context.Context, parentID int64) ([]models.User, error) {
	const query = `SELECT u.id, u.email, u.first_name, u.last_name, u.role, u.grade_name, u.institution_id, u.active, u.last_login, u.created_at, u.updated_at
FROM users u
JOIN parent_students ps ON ps.student_id = u.id
WHERE ps.parent_id = $1 AND u.active = TRUE
ORDER BY u.id`
	var children []models.User
	if err := r.db.SelectContext(ctx, &children, query, parentID); err != nil {
		return nil, fmt.Errorf("list children of parent: %w", err)
	}
	return children, nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.GradeName != "" {
		conditions = append(conditions, fmt.Sprintf("grade_name = $%d", len(args)+1))
		args = append(args, filter.GradeName)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(first_name || ' ' || last_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"email":      true,
		"created_at": true,
		"updated_at": true,
		"last_name":  true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", userColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}
