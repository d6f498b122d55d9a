package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/altius-academy/academy-api/internal/dto"
	"github.com/altius-academy/academy-api/internal/models"
	appErrors "github.com/altius-academy/academy-api/pkg/errors"
)

type taskReadRepository interface {
	FindByID(ctx context.Context, id int64) (*models.TaskWithTemplate, error)
	ListVisibleForStudent(ctx context.Context, studentID int64, gradeName string) ([]models.TaskWithTemplate, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.TaskWithTemplate, error)
}

type taskSubmissionReader interface {
	FindByTaskAndStudent(ctx context.Context, taskID, studentID int64) (*models.Submission, error)
	ListByStudentTasks(ctx context.Context, studentID int64, taskIDs []int64) (map[int64]models.Submission, error)
}

type activityContentProvider interface {
	GetActivity(ctx context.Context, contentID int64) (*models.ActivityContent, error)
}

type taskUserReader interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// TaskService serves the read side of tasks: role-appropriate listings
// and detail views with the caller's submission folded in.
type TaskService struct {
	tasks       taskReadRepository
	submissions taskSubmissionReader
	users       taskUserReader
	content     activityContentProvider
	logger      *zap.Logger
}

// NewTaskService constructs a TaskService.
func NewTaskService(tasks taskReadRepository, submissions taskSubmissionReader, users taskUserReader, content activityContentProvider, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{tasks: tasks, submissions: submissions, users: users, content: content, logger: logger}
}

// ListForStudent returns the tasks visible to a student. The effective
// status of each view derives from the student's own submission.
func (s *TaskService) ListForStudent(ctx context.Context, studentID int64) ([]dto.TaskView, error) {
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	gradeName := ""
	if student.GradeName != nil {
		gradeName = *student.GradeName
	}

	tasks, err := s.tasks.ListVisibleForStudent(ctx, student.ID, gradeName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}

	taskIDs := make([]int64, 0, len(tasks))
	for i := range tasks {
		taskIDs = append(taskIDs, tasks[i].ID)
	}

	submissions, err := s.submissions.ListByStudentTasks(ctx, student.ID, taskIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
	}

	views := make([]dto.TaskView, 0, len(tasks))
	for i := range tasks {
		view := taskView(&tasks[i])
		if submission, ok := submissions[tasks[i].ID]; ok {
			view.EffectiveStatus = models.TaskStatus(submission.Status)
			view.Submission = submissionView(&submission)
		} else {
			view.EffectiveStatus = models.TaskStatusPending
		}
		views = append(views, *view)
	}
	return views, nil
}

// ListForTeacher returns the task rows of a teacher's templates.
func (s *TaskService) ListForTeacher(ctx context.Context, teacherID int64) ([]dto.TaskView, error) {
	tasks, err := s.tasks.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}

	views := make([]dto.TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, *taskView(&tasks[i]))
	}
	return views, nil
}

// Get returns the detail view of one task for the calling user. Students
// only see tasks visible to them and get their own submission attached;
// teachers only see tasks of templates they authored.
func (s *TaskService) Get(ctx context.Context, taskID int64, caller *models.JWTClaims) (*dto.TaskView, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch task")
	}

	view := taskView(task)

	switch caller.Role {
	case models.RoleStudent:
		student, err := s.users.FindByID(ctx, caller.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
		}
		if !visibleToStudent(task, student) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "task is not visible to the student")
		}
		submission, err := s.submissions.FindByTaskAndStudent(ctx, taskID, caller.UserID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch submission")
		}
		if submission != nil {
			view.EffectiveStatus = models.TaskStatus(submission.Status)
			view.Submission = submissionView(submission)
		} else {
			view.EffectiveStatus = models.TaskStatusPending
		}
	case models.RoleTeacher:
		if task.TeacherID != caller.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "task belongs to another teacher")
		}
	}

	s.attachContent(ctx, view, task)

	return view, nil
}

// attachContent folds the external activity document into interactive task
// views. Content failures are logged and ignored.
func (s *TaskService) attachContent(ctx context.Context, view *dto.TaskView, task *models.TaskWithTemplate) {
	if s.content == nil || task.Kind != models.TaskKindInteractive {
		return
	}
	if task.Config.Interactive == nil || task.Config.Interactive.ContentID == 0 {
		return
	}
	content, err := s.content.GetActivity(ctx, task.Config.Interactive.ContentID)
	if err != nil {
		s.logger.Warn("failed to attach activity content", zap.Int64("task_id", task.ID), zap.Error(err))
		return
	}
	view.Content = content
}

func visibleToStudent(task *models.TaskWithTemplate, student *models.User) bool {
	if task.StudentID != nil {
		return *task.StudentID == student.ID
	}
	if task.GradeName != nil {
		return student.GradeName != nil && *student.GradeName == *task.GradeName
	}
	return false
}

func taskView(task *models.TaskWithTemplate) *dto.TaskView {
	config := task.Config
	return &dto.TaskView{
		ID:              task.ID,
		TemplateID:      task.TemplateID,
		Title:           task.Title,
		Description:     task.Description,
		SubjectID:       task.SubjectID,
		TeacherID:       task.TeacherID,
		Kind:            task.Kind,
		Priority:        task.Priority,
		MaxGrade:        task.MaxGrade,
		DueDate:         task.DueDate,
		GradeName:       task.GradeName,
		StudentID:       task.StudentID,
		EffectiveStatus: task.Status,
		Config:          &config,
	}
}
