package models

import "time"

// Subject represents an academic subject taught to a grade by one teacher.
type Subject struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	GradeName string    `db:"grade_name" json:"grade_name"`
	TeacherID int64     `db:"teacher_id" json:"teacher_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
