package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/altius-academy/academy-api/internal/dto"
	"github.com/altius-academy/academy-api/internal/models"
	appErrors "github.com/altius-academy/academy-api/pkg/errors"
)

type dashboardUserRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	CountActiveStudentsByGrade(ctx context.Context, gradeName string) (int, error)
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
	CountByRoleCreatedSince(ctx context.Context, role models.UserRole, since time.Time) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
	ListChildren(ctx context.Context, parentID int64) ([]models.User, error)
}

type dashboardSubjectRepository interface {
	CountByTeacher(ctx context.Context, teacherID int64) (int, error)
	CountByGrade(ctx context.Context, gradeName string) (int, error)
	ListGradeNamesByTeacher(ctx context.Context, teacherID int64) ([]string, error)
}

type dashboardSubmissionRepository interface {
	CountPendingGradingByTeacher(ctx context.Context, teacherID int64) (int, error)
	AverageGradedScoreByTeacher(ctx context.Context, teacherID int64) (float64, error)
	CountByStudentAndStatus(ctx context.Context, studentID int64, status models.SubmissionStatus) (int, error)
	AverageGradedScoreByStudent(ctx context.Context, studentID int64) (float64, error)
	CountByStudentForTasks(ctx context.Context, studentID int64, taskIDs []int64) (int, error)
}

type dashboardTemplateRepository interface {
	ListRecentByTeacher(ctx context.Context, teacherID int64, limit int) ([]models.TaskTemplate, error)
	ListUpcomingByTeacher(ctx context.Context, teacherID int64, after time.Time, limit int) ([]models.TaskTemplate, error)
}

type dashboardTaskRepository interface {
	ListVisibleForStudent(ctx context.Context, studentID int64, gradeName string) ([]models.TaskWithTemplate, error)
}

type dashboardInstitutionRepository interface {
	Count(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int, error)
}

type dashboardAttendanceRepository interface {
	AttendanceRateForStudent(ctx context.Context, studentID int64) (float64, error)
}

// DashboardServiceConfig bounds the list sections of dashboard payloads.
type DashboardServiceConfig struct {
	RecentTemplatesLimit   int
	UpcomingTemplatesLimit int
}

// DashboardService computes role-specific dashboard payloads. It holds no
// state between requests: every call aggregates fresh from storage.
type DashboardService struct {
	users        dashboardUserRepository
	subjects     dashboardSubjectRepository
	submissions  dashboardSubmissionRepository
	templates    dashboardTemplateRepository
	tasks        dashboardTaskRepository
	institutions dashboardInstitutionRepository
	attendance   dashboardAttendanceRepository
	logger       *zap.Logger
	now          func() time.Time
	cfg          DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Users        dashboardUserRepository
	Subjects     dashboardSubjectRepository
	Submissions  dashboardSubmissionRepository
	Templates    dashboardTemplateRepository
	Tasks        dashboardTaskRepository
	Institutions dashboardInstitutionRepository
	Attendance   dashboardAttendanceRepository
	Logger       *zap.Logger
	Config       DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.RecentTemplatesLimit <= 0 {
		cfg.RecentTemplatesLimit = 5
	}
	if cfg.UpcomingTemplatesLimit <= 0 {
		cfg.UpcomingTemplatesLimit = 5
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		users:        params.Users,
		subjects:     params.Subjects,
		submissions:  params.Submissions,
		templates:    params.Templates,
		tasks:        params.Tasks,
		institutions: params.Institutions,
		attendance:   params.Attendance,
		logger:       logger,
		now:          time.Now,
		cfg:          cfg,
	}
}

// Teacher aggregates a teacher's workload view: subject and student
// head-counts, grading backlog, average graded score and template lists.
// Grade head-counts are summed per subject grade without deduplication.
func (s *DashboardService) Teacher(ctx context.Context, teacherID int64) (*dto.TeacherDashboardResponse, error) {
	subjectCount, err := s.subjects.CountByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count subjects")
	}

	gradeNames, err := s.subjects.ListGradeNamesByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher grades")
	}
	studentCount := 0
	for _, gradeName := range gradeNames {
		count, err := s.users.CountActiveStudentsByGrade(ctx, gradeName)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count grade students")
		}
		studentCount += count
	}

	pendingGrading, err := s.submissions.CountPendingGradingByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending grading")
	}

	averageScore, err := s.submissions.AverageGradedScoreByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to average graded scores")
	}

	recent, err := s.templates.ListRecentByTeacher(ctx, teacherID, s.cfg.RecentTemplatesLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recent templates")
	}

	upcoming, err := s.templates.ListUpcomingByTeacher(ctx, teacherID, s.now().UTC(), s.cfg.UpcomingTemplatesLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list upcoming templates")
	}

	return &dto.TeacherDashboardResponse{
		SubjectCount:      subjectCount,
		StudentCount:      studentCount,
		PendingGrading:    pendingGrading,
		AverageScore:      averageScore,
		RecentTasks:       recent,
		UpcomingDeadlines: upcoming,
	}, nil
}

// Student aggregates a student's own progress view.
func (s *DashboardService) Student(ctx context.Context, studentID int64) (*dto.StudentDashboardResponse, error) {
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	gradeName := ""
	if student.GradeName != nil {
		gradeName = *student.GradeName
	}

	subjectCount := 0
	if gradeName != "" {
		subjectCount, err = s.subjects.CountByGrade(ctx, gradeName)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count grade subjects")
		}
	}

	visible, err := s.tasks.ListVisibleForStudent(ctx, studentID, gradeName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list visible tasks")
	}
	taskIDs := make([]int64, 0, len(visible))
	for i := range visible {
		taskIDs = append(taskIDs, visible[i].ID)
	}

	submittedCount, err := s.submissions.CountByStudentForTasks(ctx, studentID, taskIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count submissions")
	}
	pending := len(visible) - submittedCount
	if pending < 0 {
		pending = 0
	}

	completed, err := s.submissions.CountByStudentAndStatus(ctx, studentID, models.SubmissionGraded)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count graded submissions")
	}

	averageScore, err := s.submissions.AverageGradedScoreByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to average graded scores")
	}

	attendanceRate, err := s.attendance.AttendanceRateForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute attendance rate")
	}

	return &dto.StudentDashboardResponse{
		SubjectCount:   subjectCount,
		PendingTasks:   pending,
		CompletedTasks: completed,
		AverageScore:   averageScore,
		AttendanceRate: attendanceRate,
	}, nil
}

// Parent aggregates student metrics across every linked child: distinct
// subject count, one average over all children's graded tasks (weighted by
// each child's graded count, not an average of averages) and summed pending
// tasks. Children whose stats cannot be computed are skipped, never fatal.
func (s *DashboardService) Parent(ctx context.Context, parentID int64) (*dto.ParentDashboardResponse, error) {
	children, err := s.users.ListChildren(ctx, parentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list children")
	}

	summaries := make([]dto.ChildSummary, 0, len(children))
	seenGrades := make(map[string]struct{}, len(children))
	totalSubjects := 0
	upcomingTasks := 0
	weightedScoreSum := 0.0
	gradedTaskCount := 0
	for i := range children {
		child := &children[i]
		stats, err := s.Student(ctx, child.ID)
		if err != nil {
			s.logger.Warn("skipping child in parent dashboard",
				zap.Int64("parentId", parentID),
				zap.Int64("childId", child.ID),
				zap.Error(err))
			continue
		}
		gradeName := ""
		if child.GradeName != nil {
			gradeName = *child.GradeName
		}
		// Subjects are grade-scoped, so distinct grades give distinct subjects.
		if gradeName != "" {
			if _, seen := seenGrades[gradeName]; !seen {
				seenGrades[gradeName] = struct{}{}
				totalSubjects += stats.SubjectCount
			}
		}
		upcomingTasks += stats.PendingTasks
		weightedScoreSum += stats.AverageScore * float64(stats.CompletedTasks)
		gradedTaskCount += stats.CompletedTasks
		summaries = append(summaries, dto.ChildSummary{
			StudentID:   child.ID,
			StudentName: child.FullName(),
			GradeName:   gradeName,
			Stats:       *stats,
		})
	}

	averageGrade := 0.0
	if gradedTaskCount > 0 {
		averageGrade = weightedScoreSum / float64(gradedTaskCount)
	}

	return &dto.ParentDashboardResponse{
		TotalChildren: len(children),
		TotalSubjects: totalSubjects,
		AverageGrade:  averageGrade,
		UpcomingTasks: upcomingTasks,
		Children:      summaries,
	}, nil
}

// Admin aggregates platform-wide head-counts plus this-month deltas. The
// month boundary is the first instant of the current month in UTC.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboardResponse, error) {
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	totalStudents, err := s.users.CountByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	totalTeachers, err := s.users.CountByRole(ctx, models.RoleTeacher)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count teachers")
	}
	totalParents, err := s.users.CountByRole(ctx, models.RoleParent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count parents")
	}

	totalInstitutions, err := s.institutions.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count institutions")
	}
	activeInstitutions, err := s.institutions.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active institutions")
	}

	newStudents, err := s.users.CountByRoleCreatedSince(ctx, models.RoleStudent, monthStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count new students")
	}
	newTeachers, err := s.users.CountByRoleCreatedSince(ctx, models.RoleTeacher, monthStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count new teachers")
	}
	newUsers, err := s.users.CountCreatedSince(ctx, monthStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count new users")
	}

	return &dto.AdminDashboardResponse{
		TotalStudents:        totalStudents,
		TotalTeachers:        totalTeachers,
		TotalParents:         totalParents,
		TotalInstitutions:    totalInstitutions,
		NewStudentsThisMonth: newStudents,
		NewTeachersThisMonth: newTeachers,
		NewUsersThisMonth:    newUsers,
		ActiveInstitutions:   activeInstitutions,
	}, nil
}
