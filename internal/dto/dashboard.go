package dto

import "github.com/altius-academy/academy-api/internal/models"

// TeacherDashboardResponse captures personalised teacher dashboard data.
type TeacherDashboardResponse struct {
	SubjectCount      int                   `json:"subjectCount"`
	StudentCount      int                   `json:"studentCount"`
	PendingGrading    int                   `json:"pendingGrading"`
	AverageScore      float64               `json:"averageScore"`
	RecentTasks       []models.TaskTemplate `json:"recentTasks"`
	UpcomingDeadlines []models.TaskTemplate `json:"upcomingDeadlines"`
}

// StudentDashboardResponse captures personalised student dashboard data.
type StudentDashboardResponse struct {
	SubjectCount   int     `json:"subjectCount"`
	PendingTasks   int     `json:"pendingTasks"`
	CompletedTasks int     `json:"completedTasks"`
	AverageScore   float64 `json:"averageScore"`
	AttendanceRate float64 `json:"attendanceRate"`
}

// ParentDashboardResponse aggregates student metrics across every linked
// child. averageGrade is weighted by each child's graded-task count;
// totalSubjects counts distinct subjects, not a per-child sum.
type ParentDashboardResponse struct {
	TotalChildren int            `json:"totalChildren"`
	TotalSubjects int            `json:"totalSubjects"`
	AverageGrade  float64        `json:"averageGrade"`
	UpcomingTasks int            `json:"upcomingTasks"`
	Children      []ChildSummary `json:"children"`
}

// ChildSummary is one child's metrics inside a parent dashboard.
type ChildSummary struct {
	StudentID   int64                    `json:"studentId"`
	StudentName string                   `json:"studentName"`
	GradeName   string                   `json:"gradeName,omitempty"`
	Stats       StudentDashboardResponse `json:"stats"`
}

// AdminDashboardResponse captures platform-wide headcounts and deltas.
type AdminDashboardResponse struct {
	TotalStudents        int `json:"totalStudents"`
	TotalTeachers        int `json:"totalTeachers"`
	TotalParents         int `json:"totalParents"`
	TotalInstitutions    int `json:"totalInstitutions"`
	NewStudentsThisMonth int `json:"newStudentsThisMonth"`
	NewTeachersThisMonth int `json:"newTeachersThisMonth"`
	NewUsersThisMonth    int `json:"newUsersThisMonth"`
	ActiveInstitutions   int `json:"activeInstitutions"`
}
