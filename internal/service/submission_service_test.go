package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altius-academy/academy-api/internal/dto"
	"github.com/altius-academy/academy-api/internal/models"
	"github.com/altius-academy/academy-api/internal/repository"
	appErrors "github.com/altius-academy/academy-api/pkg/errors"
)

type taskRepoStub struct {
	tasks       map[int64]*models.TaskWithTemplate
	statusCalls map[int64]models.TaskStatus
}

func (s *taskRepoStub) FindByID(ctx context.Context, id int64) (*models.TaskWithTemplate, error) {
	if task, ok := s.tasks[id]; ok {
		return task, nil
	}
	return nil, sql.ErrNoRows
}

func (s *taskRepoStub) UpdateStatus(ctx context.Context, id int64, status models.TaskStatus) error {
	if s.statusCalls == nil {
		s.statusCalls = map[int64]models.TaskStatus{}
	}
	s.statusCalls[id] = status
	return nil
}

type submissionStoreStub struct {
	created    *models.Submission
	createErr  error
	byID       map[int64]*models.Submission
	byTaskPair map[int64]*models.Submission
	graded     *models.Submission
	updated    *models.Submission
	listResult []models.Submission
}

func (s *submissionStoreStub) Create(ctx context.Context, submission *models.Submission) error {
	if s.createErr != nil {
		return s.createErr
	}
	submission.ID = 7
	s.created = submission
	return nil
}

func (s *submissionStoreStub) FindByID(ctx context.Context, id int64) (*models.Submission, error) {
	if submission, ok := s.byID[id]; ok {
		return submission, nil
	}
	return nil, sql.ErrNoRows
}

func (s *submissionStoreStub) FindByTaskAndStudent(ctx context.Context, taskID, studentID int64) (*models.Submission, error) {
	if submission, ok := s.byTaskPair[studentID]; ok && submission.TaskID == taskID {
		return submission, nil
	}
	return nil, sql.ErrNoRows
}

func (s *submissionStoreStub) UpdateContent(ctx context.Context, submission *models.Submission) error {
	s.updated = submission
	return nil
}

func (s *submissionStoreStub) Grade(ctx context.Context, submission *models.Submission) error {
	s.graded = submission
	return nil
}

func (s *submissionStoreStub) ListByTask(ctx context.Context, taskID int64) ([]models.Submission, error) {
	return s.listResult, nil
}

type userFinderStub struct {
	users map[int64]*models.User
}

func (s userFinderStub) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func studentUser(id int64, gradeName string) *models.User {
	return &models.User{ID: id, Role: models.RoleStudent, GradeName: &gradeName, Active: true}
}

func interactiveTask(id, studentID int64, maxGrade float64) *models.TaskWithTemplate {
	sid := studentID
	gradeName := "3°A"
	return &models.TaskWithTemplate{
		Task: models.Task{ID: id, TemplateID: 42, GradeName: &gradeName, StudentID: &sid, Status: models.TaskStatusPending},
		TeacherID: 5,
		Kind:      models.TaskKindInteractive,
		MaxGrade:  maxGrade,
		DueDate:   time.Now().Add(24 * time.Hour),
		Config:    models.TaskConfig{Kind: models.ConfigKindInteractive, Interactive: &models.InteractiveConfig{ContentID: 9, TotalQuestions: 20}},
	}
}

func traditionalTask(id, studentID int64) *models.TaskWithTemplate {
	task := interactiveTask(id, studentID, 5)
	task.Kind = models.TaskKindTraditional
	task.Config = models.TaskConfig{Kind: models.ConfigKindMultimedia, Multimedia: &models.MultimediaConfig{}}
	return task
}

func newSubmissionService(tasks *taskRepoStub, store *submissionStoreStub, users userFinderStub) *SubmissionService {
	return NewSubmissionService(SubmissionServiceParams{
		Tasks:       tasks,
		Submissions: store,
		Students:    users,
	})
}

func TestSubmitInteractiveAutoGrades(t *testing.T) {
	tasks := &taskRepoStub{tasks: map[int64]*models.TaskWithTemplate{1: interactiveTask(1, 100, 5)}}
	store := &submissionStoreStub{}
	users := userFinderStub{users: map[int64]*models.User{100: studentUser(100, "3°A")}}
	svc := newSubmissionService(tasks, store, users)

	view, err := svc.Submit(context.Background(), 1, 100, dto.SubmitRequest{
		Answers: map[string]interface{}{"correctAnswers": 17, "totalQuestions": 20, "percentage": 85.0},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), view.ID)
	assert.Equal(t, models.TaskStatusGraded, view.EffectiveStatus)
	require.NotNil(t, view.Submission)
	assert.Equal(t, models.SubmissionGraded, view.Submission.Status)
	require.NotNil(t, view.Submission.Score)
	assert.InDelta(t, 4.25, *view.Submission.Score, 1e-9)
	require.NotNil(t, view.Submission.Feedback)
	assert.Contains(t, *view.Submission.Feedback, "17/20")
	assert.Equal(t, models.TaskStatusGraded, tasks.statusCalls[1])
}

func TestSubmitUndecodableAnswersStaysSubmitted(t *testing.T) {
	tasks := &taskRepoStub{tasks: map[int64]*models.TaskWithTemplate{1: interactiveTask(1, 100, 5)}}
	store := &submissionStoreStub{}
	users := userFinderStub{users: map[int64]*models.User{100: studentUser(100, "3°A")}}
	svc := newSubmissionService(tasks, store, users)

	view, err := svc.Submit(context.Background(), 1, 100, dto.SubmitRequest{
		Answers: map[string]interface{}{"garbage": true},
	})
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusSubmitted, view.EffectiveStatus)
	require.NotNil(t, view.Submission)
	assert.Equal(t, models.SubmissionSubmitted, view.Submission.Status)
	assert.Nil(t, view.Submission.Score)
	assert.Nil(t, view.Submission.GradedAt)
	assert.Equal(t, models.TaskStatusSubmitted, tasks.statusCalls[1])
}

func TestSubmitDuplicateIsInvalidState(t *testing.T) {
	tasks := &taskRepoStub{tasks: map[int64]*models.TaskWithTemplate{1: traditionalTask(1, 100)}}
	store := &submissionStoreStub{createErr: repository.ErrDuplicateSubmission}
	users := userFinderStub{users: map[int64]*models.User{100: studentUser(100, "3°A")}}
	svc := newSubmissionService(tasks, store, users)

	_, err := svc.Submit(context.Background(), 1, 100, dto.SubmitRequest{Content: "late try"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
}

func TestSubmitWrongStudentIsForbidden(t *testing.T) {
	tasks := &taskRepoStub{tasks: map[int64]*models.TaskWithTemplate{1: traditionalTask(1, 100)}}
	users := userFinderStub{users: map[int64]*models.User{200: studentUser(200, "3°A")}}
	svc := newSubmissionService(tasks, &submissionStoreStub{}, users)

	_, err := svc.Submit(context.Background(), 1, 200, dto.SubmitRequest{Content: "not mine"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestSubmitGradeWideWrongGradeIsForbidden(t *testing.T) {
	task := traditionalTask(1, 100)
	task.StudentID = nil
	tasks := &taskRepoStub{tasks: map[int64]*models.TaskWithTemplate{1: task}}
	users := userFinderStub{users: map[int64]*models.User{200: studentUser(200, "5°B")}}
	svc := newSubmissionService(tasks, &submissionStoreStub{}, users)

	_, err := svc.Submit(context.Background(), 1, 200, dto.SubmitRequest{Content: "wrong grade"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestSubmitGradeWideMatchingGrade(t *testing.T) {
	task := traditionalTask(1, 100)
	task.StudentID = nil
	tasks := &taskRepoStub{tasks: map[int64]*models.TaskWithTemplate{1: task}}
	store := &submissionStoreStub{}
	users := userFinderStub{users: map[int64]*models.User{200: studentUser(200, "3°A")}}
	svc := newSubmissionService(tasks, store, users)

	view, err := svc.Submit(context.Background(), 1, 200, dto.SubmitRequest{Content: "hola"})
	require.NoError(t, err)
	require.NotNil(t, view.Submission)
	assert.Equal(t, models.SubmissionSubmitted, view.Submission.Status)
	assert.Equal(t, models.TaskStatusSubmitted, view.EffectiveStatus)
	// Shared grade-wide rows keep their own status untouched.
	assert.Empty(t, tasks.statusCalls)
}

func TestUpdateSubmissionGradedIsTerminal(t *testing.T) {
	tasks := &taskRepoStub{tasks: map[int64]*models.TaskWithTemplate{1: traditionalTask(1, 100)}}
	score := 4.0
	store := &submissionStoreStub{byTaskPair: map[int64]*models.Submission{
		100: {ID: 7, TaskID: 1, StudentID: 100, Status: models.SubmissionGraded, Score: &score},
	}}
	users := userFinderStub{users: map[int64]*models.User{100: studentUser(100, "3°A")}}
	svc := newSubmissionService(tasks, store, users)

	_, err := svc.UpdateSubmission(context.Background(), 1, 100, dto.UpdateSubmissionRequest{Content: "rework"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
	assert.Nil(t, store.updated)
}

func TestGradeHappyPath(t *testing.T) {
	tasks := &taskRepoStub{tasks: map[int64]*models.TaskWithTemplate{1: traditionalTask(1, 100)}}
	store := &submissionStoreStub{byTaskPair: map[int64]*models.Submission{
		100: {ID: 7, TaskID: 1, StudentID: 100, Status: models.SubmissionSubmitted},
	}}
	users := userFinderStub{users: map[int64]*models.User{100: studentUser(100, "3°A")}}
	svc := newSubmissionService(tasks, store, users)

	studentID := int64(100)
	view, err := svc.Grade(context.Background(), 1, 5, dto.GradeRequest{StudentID: &studentID, Score: 4.5, Feedback: "bien"})
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusGraded, view.EffectiveStatus)
	require.NotNil(t, view.Submission)
	assert.Equal(t, models.SubmissionGraded, view.Submission.Status)
	require.NotNil(t, view.Submission.Score)
	assert.Equal(t, 4.5, *view.Submission.Score)
	require.NotNil(t, store.graded)
	require.NotNil(t, store.graded.GradedBy)
	assert.Equal(t, int64(5), *store.graded.GradedBy)
	assert.Equal(t, models.TaskStatusGraded, tasks.statusCalls[1])
}

func TestGradeForeignTeacherIsForbidden(t *testing.T) {
	tasks := &taskRepoStub{tasks: map[int64]*models.TaskWithTemplate{1: traditionalTask(1, 100)}}
	svc := newSubmissionService(tasks, &submissionStoreStub{}, userFinderStub{})

	studentID := int64(100)
	_, err := svc.Grade(context.Background(), 1, 9, dto.GradeRequest{StudentID: &studentID, Score: 4})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestGradeAlreadyGradedIsInvalidState(t *testing.T) {
	tasks := &taskRepoStub{tasks: map[int64]*models.TaskWithTemplate{1: traditionalTask(1, 100)}}
	score := 4.0
	store := &submissionStoreStub{byTaskPair: map[int64]*models.Submission{
		100: {ID: 7, TaskID: 1, StudentID: 100, Status: models.SubmissionGraded, Score: &score},
	}}
	svc := newSubmissionService(tasks, store, userFinderStub{})

	studentID := int64(100)
	_, err := svc.Grade(context.Background(), 1, 5, dto.GradeRequest{StudentID: &studentID, Score: 3})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
}

func TestGradeScoreAboveMaxIsValidationError(t *testing.T) {
	tasks := &taskRepoStub{tasks: map[int64]*models.TaskWithTemplate{1: traditionalTask(1, 100)}}
	store := &submissionStoreStub{byTaskPair: map[int64]*models.Submission{
		100: {ID: 7, TaskID: 1, StudentID: 100, Status: models.SubmissionSubmitted},
	}}
	svc := newSubmissionService(tasks, store, userFinderStub{})

	studentID := int64(100)
	_, err := svc.Grade(context.Background(), 1, 5, dto.GradeRequest{StudentID: &studentID, Score: 5.5})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestGradeUnknownTaskIsNotFound(t *testing.T) {
	svc := newSubmissionService(&taskRepoStub{}, &submissionStoreStub{}, userFinderStub{})

	studentID := int64(100)
	_, err := svc.Grade(context.Background(), 99, 5, dto.GradeRequest{StudentID: &studentID, Score: 3})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
