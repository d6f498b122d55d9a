package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/altius-academy/academy-api/internal/dto"
	"github.com/altius-academy/academy-api/internal/models"
	"github.com/altius-academy/academy-api/internal/repository"
	appErrors "github.com/altius-academy/academy-api/pkg/errors"
)

type submissionTaskRepository interface {
	FindByID(ctx context.Context, id int64) (*models.TaskWithTemplate, error)
	UpdateStatus(ctx context.Context, id int64, status models.TaskStatus) error
}

type submissionStore interface {
	Create(ctx context.Context, submission *models.Submission) error
	FindByID(ctx context.Context, id int64) (*models.Submission, error)
	FindByTaskAndStudent(ctx context.Context, taskID, studentID int64) (*models.Submission, error)
	UpdateContent(ctx context.Context, submission *models.Submission) error
	Grade(ctx context.Context, submission *models.Submission) error
	ListByTask(ctx context.Context, taskID int64) ([]models.Submission, error)
}

type submissionStudentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// SubmissionService owns the submit, resubmit and grade lifecycle of
// task submissions.
type SubmissionService struct {
	tasks       submissionTaskRepository
	submissions submissionStore
	students    submissionStudentRepository
	grader      *AutoGrader
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// SubmissionServiceParams groups constructor dependencies.
type SubmissionServiceParams struct {
	Tasks       submissionTaskRepository
	Submissions submissionStore
	Students    submissionStudentRepository
	Grader      *AutoGrader
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewSubmissionService constructs a SubmissionService with sane defaults.
func NewSubmissionService(params SubmissionServiceParams) *SubmissionService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	grader := params.Grader
	if grader == nil {
		grader = NewAutoGrader()
	}
	return &SubmissionService{
		tasks:       params.Tasks,
		submissions: params.Submissions,
		students:    params.Students,
		grader:      grader,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Submit records a student's first submission for a task. Interactive
// tasks run through the auto-grader; payloads the grader cannot decode
// persist as SUBMITTED for manual review. Returns the task view with the
// new submission folded in.
func (s *SubmissionService) Submit(ctx context.Context, taskID, studentID int64, req dto.SubmitRequest) (*dto.TaskView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	if err := entitledToSubmit(task, student); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	submission := &models.Submission{
		TaskID:      task.ID,
		StudentID:   studentID,
		Content:     req.Content,
		Files:       ensureFileIDs(req.Files),
		Status:      models.SubmissionSubmitted,
		SubmittedAt: now,
	}

	if task.Kind == models.TaskKindInteractive {
		if outcome, ok := s.grader.Evaluate(req.Answers, task.MaxGrade); ok {
			score := outcome.Score
			feedback := outcome.Feedback
			gradedAt := now
			submission.Status = models.SubmissionGraded
			submission.Score = &score
			submission.Feedback = &feedback
			submission.GradedAt = &gradedAt
		} else {
			s.logger.Info("interactive answers not auto-gradable, keeping submission for manual review",
				zap.Int64("task_id", task.ID), zap.Int64("student_id", studentID))
		}
	}

	if err := s.submissions.Create(ctx, submission); err != nil {
		if errors.Is(err, repository.ErrDuplicateSubmission) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "task already submitted")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist submission")
	}

	s.syncTaskStatus(ctx, task, models.TaskStatus(submission.Status))

	return taskViewWithSubmission(task, submission), nil
}

// UpdateSubmission replaces the content of an ungraded submission and
// refreshes its submitted_at timestamp.
func (s *SubmissionService) UpdateSubmission(ctx context.Context, taskID, studentID int64, req dto.UpdateSubmissionRequest) (*dto.TaskView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	submission, err := s.submissions.FindByTaskAndStudent(ctx, taskID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch submission")
	}

	if submission.Status == models.SubmissionGraded {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "submission already graded")
	}

	submission.Content = req.Content
	submission.Files = ensureFileIDs(req.Files)
	submission.SubmittedAt = s.now().UTC()

	if err := s.submissions.UpdateContent(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission")
	}

	return taskViewWithSubmission(task, submission), nil
}

// Grade applies a teacher's manual score to a SUBMITTED submission. The
// submission is resolved by id or by (task, student) pair.
func (s *SubmissionService) Grade(ctx context.Context, taskID, teacherID int64, req dto.GradeRequest) (*dto.TaskView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "task belongs to another teacher")
	}

	submission, err := s.resolveSubmission(ctx, task.ID, req)
	if err != nil {
		return nil, err
	}

	if submission.Status != models.SubmissionSubmitted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only submitted work can be graded")
	}
	if req.Score < 0 || req.Score > task.MaxGrade {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score is outside the task grade range")
	}

	now := s.now().UTC()
	score := req.Score
	feedback := req.Feedback
	submission.Status = models.SubmissionGraded
	submission.Score = &score
	submission.Feedback = &feedback
	submission.GradedBy = &teacherID
	submission.GradedAt = &now

	if err := s.submissions.Grade(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade submission")
	}

	s.syncTaskStatus(ctx, task, models.TaskStatusGraded)
	s.logger.Info("submission graded",
		zap.Int64("submission_id", submission.ID),
		zap.Int64("task_id", task.ID),
		zap.Int64("teacher_id", teacherID),
	)

	return taskViewWithSubmission(task, submission), nil
}

// ListForTask returns every submission of a task the teacher owns.
func (s *SubmissionService) ListForTask(ctx context.Context, taskID, teacherID int64) ([]dto.SubmissionView, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "task belongs to another teacher")
	}

	submissions, err := s.submissions.ListByTask(ctx, taskID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}

	views := make([]dto.SubmissionView, 0, len(submissions))
	for i := range submissions {
		views = append(views, *submissionView(&submissions[i]))
	}
	return views, nil
}

func (s *SubmissionService) findTask(ctx context.Context, taskID int64) (*models.TaskWithTemplate, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch task")
	}
	return task, nil
}

func (s *SubmissionService) resolveSubmission(ctx context.Context, taskID int64, req dto.GradeRequest) (*models.Submission, error) {
	switch {
	case req.SubmissionID != nil:
		submission, err := s.submissions.FindByID(ctx, *req.SubmissionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch submission")
		}
		if submission.TaskID != taskID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission does not belong to the task")
		}
		return submission, nil
	case req.StudentID != nil:
		submission, err := s.submissions.FindByTaskAndStudent(ctx, taskID, *req.StudentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch submission")
		}
		return submission, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "either submissionId or studentId is required")
	}
}

// syncTaskStatus mirrors the submission state onto directly assigned task
// rows. Grade-wide rows stay PENDING because they are shared.
func (s *SubmissionService) syncTaskStatus(ctx context.Context, task *models.TaskWithTemplate, status models.TaskStatus) {
	if task.StudentID == nil {
		return
	}
	if err := s.tasks.UpdateStatus(ctx, task.ID, status); err != nil {
		s.logger.Warn("failed to sync task status", zap.Int64("task_id", task.ID), zap.Error(err))
	}
}

// ensureFileIDs assigns server-side ids to attachments the client sent
// without one.
func ensureFileIDs(files models.SubmissionFiles) models.SubmissionFiles {
	for i := range files {
		if files[i].ID == "" {
			files[i].ID = uuid.NewString()
		}
	}
	return files
}

func entitledToSubmit(task *models.TaskWithTemplate, student *models.User) error {
	if task.StudentID != nil {
		if *task.StudentID != student.ID {
			return appErrors.Clone(appErrors.ErrForbidden, "task is assigned to another student")
		}
		return nil
	}
	if task.GradeName != nil {
		if student.GradeName == nil || *student.GradeName != *task.GradeName {
			return appErrors.Clone(appErrors.ErrForbidden, "task is assigned to another grade")
		}
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "task is not assigned to the student")
}

// taskViewWithSubmission builds a task view whose effective status comes
// from the submission, not the shared task row.
func taskViewWithSubmission(task *models.TaskWithTemplate, submission *models.Submission) *dto.TaskView {
	view := taskView(task)
	view.EffectiveStatus = models.TaskStatus(submission.Status)
	view.Submission = submissionView(submission)
	return view
}

func submissionView(submission *models.Submission) *dto.SubmissionView {
	return &dto.SubmissionView{
		ID:          submission.ID,
		TaskID:      submission.TaskID,
		StudentID:   submission.StudentID,
		Content:     submission.Content,
		Files:       submission.Files,
		Status:      submission.Status,
		Score:       submission.Score,
		Feedback:    submission.Feedback,
		SubmittedAt: submission.SubmittedAt,
		GradedAt:    submission.GradedAt,
	}
}
