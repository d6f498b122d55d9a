package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/altius-academy/academy-api/internal/models"
)

// AttendanceRepository provides database access for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// AttendanceRateForStudent returns the share of recorded days the student
// was present or late, as a percentage. No records yields 0.
func (r *AttendanceRepository) AttendanceRateForStudent(ctx context.Context, studentID int64) (float64, error) {
	const query = `SELECT
    COUNT(*) AS total,
    COUNT(*) FILTER (WHERE status IN ($2, $3)) AS attended
FROM attendance_records WHERE student_id = $1`

	var row struct {
		Total    int `db:"total"`
		Attended int `db:"attended"`
	}
	if err := r.db.GetContext(ctx, &row, query, studentID, models.AttendancePresent, models.AttendanceLate); err != nil {
		return 0, fmt.Errorf("attendance rate for student: %w", err)
	}

	if row.Total == 0 {
		return 0, nil
	}
	return float64(row.Attended) / float64(row.Total) * 100, nil
}

// ListForStudent returns the attendance history of one student.
func (r *AttendanceRepository) ListForStudent(ctx context.Context, studentID int64) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, student_id, date, status, created_at FROM attendance_records WHERE student_id = $1 ORDER BY date DESC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list attendance for student: %w", err)
	}
	return records, nil
}
