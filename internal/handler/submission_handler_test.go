package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altius-academy/academy-api/internal/dto"
	"github.com/altius-academy/academy-api/internal/models"
	appErrors "github.com/altius-academy/academy-api/pkg/errors"
)

type submissionServiceMock struct {
	submitResp    *dto.TaskView
	submitErr     error
	updateResp    *dto.TaskView
	updateErr     error
	gradeResp     *dto.TaskView
	gradeErr      error
	listResp      []dto.SubmissionView
	listErr       error
	submitCalled  bool
	gradeCalled   bool
	lastTaskID    int64
	lastStudentID int64
}

func (m *submissionServiceMock) Submit(ctx context.Context, taskID, studentID int64, req dto.SubmitRequest) (*dto.TaskView, error) {
	m.submitCalled = true
	m.lastTaskID = taskID
	m.lastStudentID = studentID
	return m.submitResp, m.submitErr
}

func (m *submissionServiceMock) UpdateSubmission(ctx context.Context, taskID, studentID int64, req dto.UpdateSubmissionRequest) (*dto.TaskView, error) {
	return m.updateResp, m.updateErr
}

func (m *submissionServiceMock) Grade(ctx context.Context, taskID, teacherID int64, req dto.GradeRequest) (*dto.TaskView, error) {
	m.gradeCalled = true
	m.lastTaskID = taskID
	return m.gradeResp, m.gradeErr
}

func (m *submissionServiceMock) ListForTask(ctx context.Context, taskID, teacherID int64) ([]dto.SubmissionView, error) {
	return m.listResp, m.listErr
}

func TestSubmissionHandlerSubmit(t *testing.T) {
	mockSvc := &submissionServiceMock{
		submitResp: &dto.TaskView{
			ID:              7,
			Title:           "Tarea de álgebra",
			EffectiveStatus: models.TaskStatusSubmitted,
			Submission:      &dto.SubmissionView{ID: 1, TaskID: 7, StudentID: 3, Status: models.SubmissionSubmitted},
		},
	}
	handler := NewSubmissionHandler(mockSvc)

	payload, _ := json.Marshal(dto.SubmitRequest{Content: "mi tarea"})
	c, w := testContext(t, http.MethodPut, "/tasks/7/submit", payload, &models.JWTClaims{UserID: 3, Role: models.RoleStudent})
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	handler.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.submitCalled)
	assert.Equal(t, int64(7), mockSvc.lastTaskID)
	assert.Equal(t, int64(3), mockSvc.lastStudentID)

	var envelope struct {
		Data dto.TaskView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, int64(7), envelope.Data.ID)
	require.NotNil(t, envelope.Data.Submission)
	assert.Equal(t, int64(3), envelope.Data.Submission.StudentID)
	assert.Equal(t, models.TaskStatusSubmitted, envelope.Data.EffectiveStatus)
}

func TestSubmissionHandlerSubmitInvalidTaskID(t *testing.T) {
	handler := NewSubmissionHandler(&submissionServiceMock{})

	payload, _ := json.Marshal(dto.SubmitRequest{Content: "mi tarea"})
	c, w := testContext(t, http.MethodPut, "/tasks/zero/submit", payload, &models.JWTClaims{UserID: 3, Role: models.RoleStudent})
	c.Params = gin.Params{{Key: "id", Value: "zero"}}

	handler.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmissionHandlerSubmitDuplicate(t *testing.T) {
	mockSvc := &submissionServiceMock{
		submitErr: appErrors.Clone(appErrors.ErrInvalidState, "task already submitted"),
	}
	handler := NewSubmissionHandler(mockSvc)

	payload, _ := json.Marshal(dto.SubmitRequest{Content: "otra vez"})
	c, w := testContext(t, http.MethodPut, "/tasks/7/submit", payload, &models.JWTClaims{UserID: 3, Role: models.RoleStudent})
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	handler.Submit(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmissionHandlerGrade(t *testing.T) {
	score := 4.5
	mockSvc := &submissionServiceMock{
		gradeResp: &dto.TaskView{
			ID:              7,
			EffectiveStatus: models.TaskStatusGraded,
			Submission:      &dto.SubmissionView{ID: 1, TaskID: 7, StudentID: 3, Status: models.SubmissionGraded, Score: &score},
		},
	}
	handler := NewSubmissionHandler(mockSvc)

	studentID := int64(3)
	payload, _ := json.Marshal(dto.GradeRequest{StudentID: &studentID, Score: 4.5})
	c, w := testContext(t, http.MethodPut, "/tasks/7/grade", payload, &models.JWTClaims{UserID: 9, Role: models.RoleTeacher})
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	handler.Grade(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.gradeCalled)
	assert.Equal(t, int64(7), mockSvc.lastTaskID)

	var envelope struct {
		Data dto.TaskView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data.Submission)
	require.NotNil(t, envelope.Data.Submission.Score)
	assert.Equal(t, 4.5, *envelope.Data.Submission.Score)
}

func TestSubmissionHandlerListServiceError(t *testing.T) {
	mockSvc := &submissionServiceMock{listErr: appErrors.ErrForbidden}
	handler := NewSubmissionHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/tasks/7/submissions", nil, &models.JWTClaims{UserID: 2, Role: models.RoleTeacher})
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	handler.List(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
